package review

import "genekb/api/internal/model"

// NodeKind splits the tree into grouping-only nodes and nodes carrying an
// actual pending change.
type NodeKind int

const (
	KindMeta NodeKind = iota
	KindReviewable
)

// Node is one element of the reconstructed review tree. A Meta node groups
// children under a location title; a Reviewable node additionally carries
// the pending marker, its classification, and the before/after values the
// audit trail will need. The action is recomputed on every build, never
// persisted.
type Node struct {
	Kind            NodeKind `json:"kind"`
	Title           string   `json:"title"`
	Path            string   `json:"path"`
	HistoryLocation string   `json:"historyLocation"`
	Children        []*Node  `json:"children,omitempty"`

	// NestedUnderCreateOrDelete marks nodes whose fate is decided by an
	// ancestor's CREATE/DELETE/PROMOTE/DEMOTE, so they get no history
	// record and no individual accept handling of their own.
	NestedUnderCreateOrDelete bool `json:"nestedUnderCreateOrDelete,omitempty"`

	Review  *ReviewInfo  `json:"reviewInfo,omitempty"`
	History *HistoryData `json:"historyData,omitempty"`
}

// ReviewInfo is the reviewable payload of a node.
type ReviewInfo struct {
	ReviewPath string        `json:"reviewPath"`
	Marker     *model.Review `json:"review"`
	ID         StableID      `json:"-"`
	WireID     string        `json:"uuid"`
	Action     Action        `json:"action"`
	PriorText  string        `json:"lastReviewedString,omitempty"`

	// PairReviewPath and PairMarker carry the second half of a tumor's
	// cancer-type identity pair when both lists hold pending edits. Accept
	// and reject must resolve the pair together or the second marker stays
	// pending forever.
	PairReviewPath string        `json:"-"`
	PairMarker     *model.Review `json:"-"`
}

// HistoryData holds the prior and proposed values captured at build time.
// Old is absent for additions and promotions, New for deletions.
type HistoryData struct {
	Old  any                `json:"oldState,omitempty"`
	New  any                `json:"newState,omitempty"`
	Info *model.HistoryInfo `json:"info,omitempty"`
}

// Reviewable reports whether the node carries a pending change itself.
func (n *Node) Reviewable() bool { return n.Kind == KindReviewable && n.Review != nil }

// Walk visits the node and every descendant in depth-first order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// NestedIDs collects every stable id carried anywhere in the subtree,
// including the node's own. Accepting or rejecting a CREATE cascades ledger
// cleanup over exactly this set.
func (n *Node) NestedIDs() []StableID {
	var out []StableID
	n.Walk(func(c *Node) {
		if c.Reviewable() {
			out = append(out, c.Review.ID)
		}
	})
	return out
}

// FindByID locates the reviewable node carrying the given wire id.
func (n *Node) FindByID(wireID string) *Node {
	var found *Node
	n.Walk(func(c *Node) {
		if found == nil && c.Reviewable() && c.Review.WireID == wireID {
			found = c
		}
	})
	return found
}

// EditorIndex partitions reviewable nodes by the editor who authored each
// change, so a reviewer can act on one editor's whole batch.
type EditorIndex map[string][]*Node

func (idx EditorIndex) add(n *Node) {
	if n.Review == nil || n.Review.Marker == nil {
		return
	}
	editor := n.Review.Marker.UpdatedBy
	idx[editor] = append(idx[editor], n)
}

// Editors lists the editors with at least one pending change.
func (idx EditorIndex) Editors() []string {
	out := make([]string, 0, len(idx))
	for e := range idx {
		out = append(out, e)
	}
	return out
}
