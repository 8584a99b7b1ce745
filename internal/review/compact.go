package review

import "sort"

// prune removes, bottom-up, grouping nodes that ended up with nothing under
// them and create/promote nodes with no edited inner fields. A freshly
// created entity only surfaces for review once at least one of its own
// fields has been touched.
func prune(n *Node) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		prune(c)
		if c.Kind == KindMeta && len(c.Children) == 0 {
			continue
		}
		if c.Reviewable() && len(c.Children) == 0 {
			switch c.Review.Action {
			case ActionCreate, ActionPromote:
				continue
			}
		}
		kept = append(kept, c)
	}
	n.Children = kept
}

// compact merges single-child grouping nodes into their child so the
// presented hierarchy has no chains of one-child wrappers. Children nested
// under an in-flight create or delete keep their wrapper, since the wrapper
// is what carries the actionable record.
func compact(n *Node) {
	for i, c := range n.Children {
		compact(c)
		for c.Kind == KindMeta && len(c.Children) == 1 && !c.Children[0].NestedUnderCreateOrDelete {
			merged := c.Children[0]
			merged.Title = c.Title + "/" + merged.Title
			n.Children[i] = merged
			c = merged
		}
	}
}

// sortChildren orders siblings for presentation: renames first, then plain
// updates, grouping nodes, creations, deletions. Ties go to the shallower
// path.
func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		pa, pb := sortPriority(a), sortPriority(b)
		if pa != pb {
			return pa < pb
		}
		return Depth(a.Path) < Depth(b.Path)
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

func sortPriority(n *Node) int {
	if !n.Reviewable() {
		return 2
	}
	switch n.Review.Action {
	case ActionNameChange:
		return 0
	case ActionUpdate:
		return 1
	case ActionCreate, ActionPromote:
		return 3
	case ActionDelete, ActionDemote:
		return 4
	}
	return 2
}
