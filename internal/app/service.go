package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"genekb/api/internal/config"
	"genekb/api/internal/docstore"
	"genekb/api/internal/history"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

// documentStore is the slice of the document store the engine uses. Patches
// are atomic across every path they touch; nil patch values delete.
type documentStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, path string) (json.RawMessage, error)
	GetInto(ctx context.Context, path string, dst any) error
	Update(ctx context.Context, patch map[string]any) error
	DeleteFromArray(ctx context.Context, path string, indices []int) error
	PushKey(path string) string
	ListRecords(ctx context.Context, collection string) ([]string, error)
}

// drugResolver resolves drug ids for treatment display names.
type drugResolver interface {
	DrugName(uuid string) string
}

// historyIndexer receives accepted audit records for full-text search.
type historyIndexer interface {
	IndexHistory(symbol, key string, entry *model.HistoryEntry)
}

// snapshotter archives the document after each accepted batch.
type snapshotter interface {
	CommitGene(symbol string, doc []byte, author, message string) error
}

type Service struct {
	cfg     config.Config
	docs    documentStore
	drugs   drugResolver
	indexer historyIndexer
	snaps   snapshotter
}

func New(cfg config.Config, docs documentStore, drugs drugResolver) *Service {
	return &Service{cfg: cfg, docs: docs, drugs: drugs}
}

// SetHistoryIndexer wires the optional search indexer.
func (s *Service) SetHistoryIndexer(idx historyIndexer) { s.indexer = idx }

// SetSnapshotter wires the optional snapshot archive.
func (s *Service) SetSnapshotter(sn snapshotter) { s.snaps = sn }

// Ping reports whether the document store is reachable.
func (s *Service) Ping(ctx context.Context) error { return s.docs.Ping(ctx) }

// loadGene reads a gene document plus its bookkeeping record.
func (s *Service) loadGene(ctx context.Context, symbol string) (*model.Gene, *model.Meta, error) {
	var g model.Gene
	if err := s.docs.GetInto(ctx, review.GenePath(symbol), &g); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, domainError(http.StatusNotFound, "gene_not_found", fmt.Sprintf("gene %s does not exist", symbol), nil)
		}
		return nil, nil, fmt.Errorf("load gene %s: %w", symbol, err)
	}
	var meta model.Meta
	if err := s.docs.GetInto(ctx, review.MetaPath(symbol), &meta); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, nil, fmt.Errorf("load meta %s: %w", symbol, err)
	}
	return &g, &meta, nil
}

func (s *Service) buildTree(g *model.Gene, meta *model.Meta) *review.Result {
	b := review.Builder{}
	if s.drugs != nil {
		b.DrugName = s.drugs.DrugName
	}
	res := b.Build(g, meta.PendingUUIDs())
	if len(res.Dangling) > 0 {
		// Ledger ids with no matching marker are tolerated drift, not an
		// error surfaced to reviewers.
		log.Printf("review: gene %s has %d dangling ledger ids: %v", g.Name, len(res.Dangling), res.Dangling)
	}
	return res
}

// ReviewTree rebuilds the pending-review tree for a gene.
func (s *Service) ReviewTree(ctx context.Context, symbol string) (*review.Result, error) {
	g, meta, err := s.loadGene(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return s.buildTree(g, meta), nil
}

// Selection names the nodes a reviewer acted on: either explicit field ids
// or every pending change by one editor.
type Selection struct {
	UUIDs  []string `json:"uuids,omitempty"`
	Editor string   `json:"editor,omitempty"`
}

// selectNodes re-resolves the selection against a freshly built tree so
// array indices reflect the document as it is now, not as it was when the
// reviewer's copy of the tree was built.
func selectNodes(res *review.Result, sel Selection) ([]*review.Node, error) {
	var nodes []*review.Node
	if sel.Editor != "" {
		for _, n := range res.Editors[sel.Editor] {
			if !n.NestedUnderCreateOrDelete {
				nodes = append(nodes, n)
			}
		}
		if len(nodes) == 0 {
			return nil, domainError(http.StatusNotFound, "no_pending_changes", fmt.Sprintf("no pending changes by %s", sel.Editor), nil)
		}
		return nodes, nil
	}
	for _, raw := range sel.UUIDs {
		// Canonicalize composite ids so a spaced pair matches its node.
		id := review.ParseStableID(raw).String()
		n := res.Root.FindByID(id)
		if n == nil {
			return nil, domainError(http.StatusNotFound, "review_not_found", fmt.Sprintf("no pending change with id %s", raw), nil)
		}
		if n.NestedUnderCreateOrDelete {
			continue
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, domainError(http.StatusBadRequest, "empty_selection", "no actionable review nodes selected", nil)
	}
	return nodes, nil
}

// arrayRemoval is one pending index deletion, applied after the main patch.
type arrayRemoval struct {
	path  string
	index int
	kind  review.EntityKind
}

// AcceptChanges commits a batch of pending changes. The audit entry is
// pushed before any mutation so a failed patch never leaves approved
// changes unrecorded; array removals run after the atomic patch, innermost
// entities first.
func (s *Service) AcceptChanges(ctx context.Context, symbol, admin string, sel Selection) error {
	g, meta, err := s.loadGene(ctx, symbol)
	if err != nil {
		return err
	}
	res := s.buildTree(g, meta)
	nodes, err := selectNodes(res, sel)
	if err != nil {
		return err
	}

	entry := history.NewEntry(admin, history.RecordsFromNodes(nodes))
	historyKey := s.docs.PushKey(review.HistoryPath(symbol))
	if len(entry.Records) > 0 {
		if err := s.docs.Update(ctx, map[string]any{review.HistoryPath(symbol, historyKey): entry}); err != nil {
			return fmt.Errorf("record history for %s: %w", symbol, err)
		}
	}

	patch := make(map[string]any)
	var removals []arrayRemoval
	for _, n := range nodes {
		if err := s.acceptNode(symbol, n, patch, &removals); err != nil {
			return err
		}
	}
	s.stampMeta(symbol, admin, patch)

	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("accept changes for %s: %w", symbol, err)
	}
	if err := s.applyRemovals(ctx, removals); err != nil {
		return err
	}

	s.afterAccept(ctx, symbol, historyKey, entry)
	return nil
}

func (s *Service) acceptNode(symbol string, n *review.Node, patch map[string]any, removals *[]arrayRemoval) error {
	info := n.Review
	switch info.Action {
	case review.ActionUpdate, review.ActionNameChange:
		marker := *info.Marker
		marker.LastReviewed = nil
		marker.InitialUpdate = false
		patch[review.GenePath(symbol, info.ReviewPath)] = &marker
		if info.PairMarker != nil {
			pair := *info.PairMarker
			pair.LastReviewed = nil
			pair.InitialUpdate = false
			patch[review.GenePath(symbol, info.PairReviewPath)] = &pair
		}
		clearLedger(symbol, info.ID, patch)

	case review.ActionDelete, review.ActionDemote:
		arrayPath, index, ok := review.ArrayElement(n.Path)
		if !ok {
			return domainError(http.StatusBadRequest, "bad_path", fmt.Sprintf("path %s does not address an array element", n.Path), nil)
		}
		*removals = append(*removals, arrayRemoval{
			path:  review.GenePath(symbol, arrayPath),
			index: index,
			kind:  review.KindOfPath(n.Path),
		})
		clearLedger(symbol, info.ID, patch)
		if info.Action == review.ActionDemote {
			s.pushVusEntries(symbol, entityName(historyOld(n)), info.Marker.UpdatedBy, patch)
		}

	case review.ActionCreate, review.ActionPromote:
		entity := stripEntity(historyNew(n))
		if entity == nil {
			return domainError(http.StatusConflict, "missing_entity", fmt.Sprintf("no entity recorded for created node at %s", n.Path), nil)
		}
		patch[review.GenePath(symbol, parentOf(n.Path))] = entity
		for _, id := range n.NestedIDs() {
			clearLedger(symbol, id, patch)
		}
	}
	return nil
}

// RejectChanges discards a batch of pending changes, restoring each field to
// its last accepted state.
func (s *Service) RejectChanges(ctx context.Context, symbol, admin string, sel Selection) error {
	g, meta, err := s.loadGene(ctx, symbol)
	if err != nil {
		return err
	}
	res := s.buildTree(g, meta)
	nodes, err := selectNodes(res, sel)
	if err != nil {
		return err
	}

	patch := make(map[string]any)
	var removals []arrayRemoval
	for _, n := range nodes {
		if err := s.rejectNode(symbol, admin, n, patch, &removals); err != nil {
			return err
		}
	}
	s.stampMeta(symbol, admin, patch)

	if err := s.docs.Update(ctx, patch); err != nil {
		return fmt.Errorf("reject changes for %s: %w", symbol, err)
	}
	return s.applyRemovals(ctx, removals)
}

func (s *Service) rejectNode(symbol, admin string, n *review.Node, patch map[string]any, removals *[]arrayRemoval) error {
	info := n.Review
	switch info.Action {
	case review.ActionUpdate, review.ActionNameChange:
		// Restore the prior value; a field that never had an accepted
		// value goes back to nothing.
		var restored any
		if info.Marker.HasLastReviewed() && !info.Marker.InitialUpdate {
			restored = info.Marker.LastReviewed
		}
		patch[review.GenePath(symbol, n.Path)] = restored
		patch[review.GenePath(symbol, info.ReviewPath)] = model.NewReview(admin)
		if info.PairMarker != nil {
			var pairRestored any
			if info.PairMarker.HasLastReviewed() && !info.PairMarker.InitialUpdate {
				pairRestored = info.PairMarker.LastReviewed
			}
			pairPath := strings.TrimSuffix(info.PairReviewPath, "_review")
			patch[review.GenePath(symbol, pairPath)] = pairRestored
			patch[review.GenePath(symbol, info.PairReviewPath)] = model.NewReview(admin)
		}
		clearLedger(symbol, info.ID, patch)

	case review.ActionDelete, review.ActionDemote:
		// The entity was never removed; only the pending flag ends. A
		// rejected demotion restores nothing to the VUS list because
		// nothing ever left the mutation list.
		patch[review.GenePath(symbol, info.ReviewPath)] = model.NewReview(admin)
		clearLedger(symbol, info.ID, patch)

	case review.ActionCreate, review.ActionPromote:
		arrayPath, index, ok := review.ArrayElement(n.Path)
		if !ok {
			return domainError(http.StatusBadRequest, "bad_path", fmt.Sprintf("path %s does not address an array element", n.Path), nil)
		}
		*removals = append(*removals, arrayRemoval{
			path:  review.GenePath(symbol, arrayPath),
			index: index,
			kind:  review.KindOfPath(n.Path),
		})
		for _, id := range n.NestedIDs() {
			clearLedger(symbol, id, patch)
		}
		if info.Action == review.ActionPromote {
			s.pushVusEntries(symbol, entityName(historyNew(n)), info.Marker.UpdatedBy, patch)
		}
	}
	return nil
}

// applyRemovals deletes flagged array elements innermost first, so a
// treatment disappears before the tumor holding it and a tumor before its
// mutation. Each removal is its own atomic operation against indices
// re-read at dispatch time.
func (s *Service) applyRemovals(ctx context.Context, removals []arrayRemoval) error {
	sort.SliceStable(removals, func(i, j int) bool {
		if removals[i].kind != removals[j].kind {
			return removals[i].kind < removals[j].kind
		}
		// Within one array, higher indices go first so earlier removals
		// do not shift later ones.
		if removals[i].path == removals[j].path {
			return removals[i].index > removals[j].index
		}
		return removals[i].path < removals[j].path
	})
	for _, r := range removals {
		if err := s.docs.DeleteFromArray(ctx, r.path, []int{r.index}); err != nil {
			return fmt.Errorf("remove %s[%d]: %w", r.path, r.index, err)
		}
	}
	return nil
}

// pushVusEntries splits a multi-variant mutation name and appends one VUS
// entry per variant.
func (s *Service) pushVusEntries(symbol, name, editor string, patch map[string]any) {
	for _, variant := range review.ParseVariantNames(name) {
		key := s.docs.PushKey(review.VusPath(symbol))
		patch[review.VusPath(symbol, key)] = model.NewVus(variant, editor, "")
	}
}

func (s *Service) stampMeta(symbol, admin string, patch map[string]any) {
	patch[review.MetaPath(symbol, "lastModifiedBy")] = admin
	patch[review.MetaPath(symbol, "lastModifiedAt")] = strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// afterAccept feeds best-effort downstream consumers. Failures are logged,
// never surfaced: the accept itself already committed.
func (s *Service) afterAccept(ctx context.Context, symbol, historyKey string, entry *model.HistoryEntry) {
	if s.indexer != nil && len(entry.Records) > 0 {
		s.indexer.IndexHistory(symbol, historyKey, entry)
	}
	if s.snaps != nil {
		raw, err := s.docs.Get(ctx, review.GenePath(symbol))
		if err != nil {
			log.Printf("snapshot: read %s: %v", symbol, err)
			return
		}
		if err := s.snaps.CommitGene(symbol, raw, entry.Admin, "accept review batch"); err != nil {
			log.Printf("snapshot: commit %s: %v", symbol, err)
		}
	}
}

func clearLedger(symbol string, id review.StableID, patch map[string]any) {
	for _, part := range id.Parts() {
		patch[review.MetaReviewPath(symbol, part)] = nil
	}
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

func historyOld(n *review.Node) any {
	if n.History == nil {
		return nil
	}
	return n.History.Old
}

func historyNew(n *review.Node) any {
	if n.History == nil {
		return nil
	}
	return n.History.New
}

// stripEntity clears pending state from a created or promoted entity before
// it is written as a normal record.
func stripEntity(v any) any {
	switch e := v.(type) {
	case *model.Mutation:
		e.StripPendingReviews()
		return e
	case *model.Tumor:
		e.StripPendingReviews()
		return e
	case *model.Treatment:
		e.StripPendingReviews()
		return e
	case *model.GenomicIndicator:
		e.StripPendingReviews()
		return e
	}
	return nil
}

func entityName(v any) string {
	switch e := v.(type) {
	case *model.Mutation:
		return e.Name
	case *model.Treatment:
		return e.Name
	case *model.GenomicIndicator:
		return e.Name
	}
	return ""
}
