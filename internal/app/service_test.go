package app

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"genekb/api/internal/config"
	"genekb/api/internal/docstore"
	"genekb/api/internal/model"
	"genekb/api/internal/review"
)

func setupService(t *testing.T) (*Service, *docstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := docstore.New("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("docstore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(config.Config{}, store, nil), store
}

func pendingLedger(t *testing.T, store *docstore.Store, symbol string) []string {
	t.Helper()
	var meta model.Meta
	err := store.GetInto(context.Background(), review.MetaPath(symbol), &meta)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("load meta: %v", err)
	}
	return meta.PendingUUIDs()
}

func TestEditThenAccept(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}

	res, err := svc.UpdateReviewableContent(ctx, "BRAF", "summary", "BRAF drives MAPK signaling", "alice")
	if err != nil {
		t.Fatalf("UpdateReviewableContent: %v", err)
	}
	if res.Reverted || res.UUID == "" {
		t.Fatalf("edit result = %+v", res)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 1 || ids[0] != res.UUID {
		t.Fatalf("ledger = %v", ids)
	}

	tree, err := svc.ReviewTree(ctx, "BRAF")
	if err != nil {
		t.Fatalf("ReviewTree: %v", err)
	}
	if len(tree.Root.Children) != 1 || tree.Root.Children[0].Title != "Gene Summary" {
		t.Fatalf("tree = %+v", tree.Root.Children)
	}

	err = svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{res.UUID}})
	if err != nil {
		t.Fatalf("AcceptChanges: %v", err)
	}

	// Value stands, marker resolved, ledger cleared.
	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	if g.Summary != "BRAF drives MAPK signaling" {
		t.Fatalf("summary = %q", g.Summary)
	}
	if g.SummaryReview == nil || g.SummaryReview.Pending() {
		t.Fatalf("marker = %+v", g.SummaryReview)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger after accept = %v", ids)
	}

	records, err := svc.GeneHistory(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GeneHistory: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history has %d records", len(records))
	}
	rec := records[0]
	if rec.Admin != "root" || rec.Record.LastEditBy != "alice" {
		t.Fatalf("record attribution = %+v", rec)
	}
	if rec.Record.Operation != model.HistoryUpdate || rec.Record.Location != "Gene Summary" {
		t.Fatalf("record = %+v", rec.Record)
	}

	var meta model.Meta
	if err := store.GetInto(ctx, review.MetaPath("BRAF"), &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.LastModifiedBy != "root" {
		t.Fatalf("lastModifiedBy = %q", meta.LastModifiedBy)
	}
}

func TestEditBackToAcceptedValueReverts(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	first, err := svc.UpdateReviewableContent(ctx, "BRAF", "background", "accepted text", "alice")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{first.UUID}}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "background", "draft", "bob"); err != nil {
		t.Fatalf("second edit: %v", err)
	}
	res, err := svc.UpdateReviewableContent(ctx, "BRAF", "background", "accepted text", "bob")
	if err != nil {
		t.Fatalf("revert edit: %v", err)
	}
	if !res.Reverted {
		t.Fatal("edit back to accepted value not reported as revert")
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger after revert = %v", ids)
	}

	tree, err := svc.ReviewTree(ctx, "BRAF")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree.Root.Children) != 0 {
		t.Fatalf("tree not empty after revert: %+v", tree.Root.Children)
	}
}

func TestRejectRestoresPriorValue(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	first, err := svc.UpdateReviewableContent(ctx, "BRAF", "summary", "version one", "alice")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{first.UUID}}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "summary", "version two", "bob"); err != nil {
		t.Fatalf("second edit: %v", err)
	}

	if err := svc.RejectChanges(ctx, "BRAF", "root", Selection{Editor: "bob"}); err != nil {
		t.Fatalf("RejectChanges: %v", err)
	}

	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	if g.Summary != "version one" {
		t.Fatalf("summary = %q, want the last accepted value", g.Summary)
	}
	if g.SummaryReview.Pending() {
		t.Fatalf("marker still pending: %+v", g.SummaryReview)
	}
	if g.SummaryReview.UpdatedBy != "root" {
		t.Fatalf("rejected marker stamped by %q, want the admin", g.SummaryReview.UpdatedBy)
	}
}

func TestRejectNeverAcceptedFieldRestoresNothing(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "penetrance", "draft", "alice"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := svc.RejectChanges(ctx, "BRAF", "root", Selection{Editor: "alice"}); err != nil {
		t.Fatalf("RejectChanges: %v", err)
	}
	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	if g.Penetrance != "" {
		t.Fatalf("penetrance = %q, want empty", g.Penetrance)
	}
}

func TestCreateMutationAcceptFlow(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "bob"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if _, err := svc.CreateMutation(ctx, "BRAF", "V600E", "bob"); err != nil {
		t.Fatalf("CreateMutation: %v", err)
	}
	if _, err := svc.CreateMutation(ctx, "BRAF", "v600e", "bob"); err == nil {
		t.Fatal("duplicate mutation accepted")
	}

	// The creation only surfaces for review once a field is edited.
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/mutation_effect/oncogenic", "Oncogenic", "bob"); err != nil {
		t.Fatalf("edit effect: %v", err)
	}

	tree, err := svc.ReviewTree(ctx, "BRAF")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("tree = %+v", tree.Root.Children)
	}
	created := tree.Root.Children[0]
	if created.Review.Action != review.ActionCreate {
		t.Fatalf("action = %v", created.Review.Action)
	}

	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{Editor: "bob"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	if len(g.Mutations) != 1 || g.Mutations[0].Name != "V600E" {
		t.Fatalf("mutations = %+v", g.Mutations)
	}
	if g.Mutations[0].NameReview.Pending() {
		t.Fatalf("name marker still pending: %+v", g.Mutations[0].NameReview)
	}
	if g.Mutations[0].MutationEffect.OncogenicReview.Pending() {
		t.Fatal("nested marker still pending after accept")
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger after accept = %v", ids)
	}

	records, err := svc.GeneHistory(ctx, "BRAF")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].Record.Operation != model.HistoryAdd {
		t.Fatalf("history = %+v", records)
	}
}

func TestFlagDeletionThenAcceptRemovesEntity(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	seedAcceptedMutation(t, svc, "BRAF", "V600E")

	if err := svc.FlagDeletion(ctx, "BRAF", "mutations/0", "carol"); err != nil {
		t.Fatalf("FlagDeletion: %v", err)
	}
	g, _ := svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 1 {
		t.Fatal("entity removed before review")
	}
	if !g.Mutations[0].NameReview.Removed {
		t.Fatalf("marker = %+v", g.Mutations[0].NameReview)
	}

	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{Editor: "carol"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	g, _ = svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 0 {
		t.Fatalf("mutations = %+v", g.Mutations)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger = %v", ids)
	}
}

func TestFlagDeletionOfPendingCreationRemovesImmediately(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "bob"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if _, err := svc.CreateMutation(ctx, "BRAF", "V600E", "bob"); err != nil {
		t.Fatalf("CreateMutation: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/mutation_effect/oncogenic", "Oncogenic", "bob"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// Deleting a never-accepted creation bypasses review entirely.
	if err := svc.FlagDeletion(ctx, "BRAF", "mutations/0", "bob"); err != nil {
		t.Fatalf("FlagDeletion: %v", err)
	}
	g, _ := svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 0 {
		t.Fatalf("mutations = %+v", g.Mutations)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger = %v", ids)
	}
}

func TestRejectCreationRemovesEntity(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "bob"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if _, err := svc.CreateMutation(ctx, "BRAF", "V600E", "bob"); err != nil {
		t.Fatalf("CreateMutation: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/mutation_effect/oncogenic", "Oncogenic", "bob"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if err := svc.RejectChanges(ctx, "BRAF", "root", Selection{Editor: "bob"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	g, _ := svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 0 {
		t.Fatalf("rejected creation still present: %+v", g.Mutations)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger = %v", ids)
	}
}

func TestDemoteAcceptSplitsVariants(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	seedAcceptedMutation(t, svc, "BRAF", "V600E, V600K")

	g, _ := svc.GetGene(ctx, "BRAF")
	if err := svc.DemoteMutation(ctx, "BRAF", g.Mutations[0].NameUUID, "carol"); err != nil {
		t.Fatalf("DemoteMutation: %v", err)
	}
	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{Editor: "carol"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	g, _ = svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 0 {
		t.Fatalf("mutations = %+v", g.Mutations)
	}
	entries, err := svc.ListVus(ctx, "BRAF")
	if err != nil {
		t.Fatalf("ListVus: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("vus entries = %+v", entries)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["V600E"] || !names["V600K"] {
		t.Fatalf("variant names = %v", names)
	}
}

func TestPromoteVusLifecycle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if err := svc.AddVus(ctx, "BRAF", []string{"V600M"}, "alice", "alice@lab.test"); err != nil {
		t.Fatalf("AddVus: %v", err)
	}
	entries, err := svc.ListVus(ctx, "BRAF")
	if err != nil || len(entries) != 1 {
		t.Fatalf("vus = %+v, %v", entries, err)
	}

	m, err := svc.PromoteVus(ctx, "BRAF", entries[0].Key, "alice")
	if err != nil {
		t.Fatalf("PromoteVus: %v", err)
	}
	if !m.NameReview.PromotedToMutation {
		t.Fatalf("marker = %+v", m.NameReview)
	}
	entries, _ = svc.ListVus(ctx, "BRAF")
	if len(entries) != 0 {
		t.Fatal("promoted entry still in vus list")
	}

	// Rejecting the promotion sends the variant back to the list.
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/mutation_effect/oncogenic", "Likely Oncogenic", "alice"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := svc.RejectChanges(ctx, "BRAF", "root", Selection{Editor: "alice"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	g, _ := svc.GetGene(ctx, "BRAF")
	if len(g.Mutations) != 0 {
		t.Fatalf("mutations = %+v", g.Mutations)
	}
	entries, _ = svc.ListVus(ctx, "BRAF")
	if len(entries) != 1 || entries[0].Name != "V600M" {
		t.Fatalf("vus after rejected promotion = %+v", entries)
	}
}

func TestExcludedCancerTypesEditRoundTrip(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	seedAcceptedMutation(t, svc, "BRAF", "V600E")
	tumor := seedTumor(t, svc, store, "BRAF")
	wantKey := tumor.CancerTypesUUID + "," + tumor.ExcludedCancerTypesUUID

	// Editing only the excluded list still keys the ledger on the pair.
	excluded := []map[string]any{{"code": "MEL", "mainType": "Melanoma"}}
	res, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/tumors/0/excludedCancerTypes", excluded, "dana")
	if err != nil {
		t.Fatalf("edit excluded list: %v", err)
	}
	if res.UUID != wantKey {
		t.Fatalf("ledger key = %q, want composite %q", res.UUID, wantKey)
	}

	tree, err := svc.ReviewTree(ctx, "BRAF")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree.Dangling) != 0 {
		t.Fatalf("dangling = %v", tree.Dangling)
	}
	n := tree.Root.FindByID(wantKey)
	if n == nil {
		t.Fatal("excluded-list edit produced no reviewable node")
	}
	if n.Review.Action != review.ActionNameChange {
		t.Errorf("action = %v", n.Review.Action)
	}

	// Clients send the pair with a space after the comma; the selection
	// canonicalizes it before looking up the node.
	spaced := tumor.CancerTypesUUID + ", " + tumor.ExcludedCancerTypesUUID
	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{spaced}}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	got := g.Mutations[0].Tumors[0]
	if len(got.ExcludedCancerTypes) != 1 || got.ExcludedCancerTypes[0].Code != "MEL" {
		t.Fatalf("excluded list = %+v", got.ExcludedCancerTypes)
	}
	if got.ExcludedCancerTypesReview == nil || got.ExcludedCancerTypesReview.Pending() {
		t.Fatalf("excluded marker = %+v", got.ExcludedCancerTypesReview)
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger after accept = %v", ids)
	}

	records, err := svc.GeneHistory(ctx, "BRAF")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	last := records[len(records)-1]
	if last.Record.Operation != model.HistoryNameChange {
		t.Errorf("operation = %v", last.Record.Operation)
	}
}

func TestRejectRestoresBothCancerTypeLists(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	seedAcceptedMutation(t, svc, "BRAF", "V600E")
	tumor := seedTumor(t, svc, store, "BRAF")
	wantKey := tumor.CancerTypesUUID + "," + tumor.ExcludedCancerTypesUUID

	excluded := []map[string]any{{"code": "MEL", "mainType": "Melanoma"}}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/tumors/0/excludedCancerTypes", excluded, "dana"); err != nil {
		t.Fatalf("seed excluded edit: %v", err)
	}
	if err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{wantKey}}); err != nil {
		t.Fatalf("seed accept: %v", err)
	}

	// Edit both halves of the pair, then reject; both lists must come back.
	newIncluded := []map[string]any{{"mainType": "Melanoma"}, {"mainType": "CNS Cancer"}}
	newExcluded := []map[string]any{{"code": "MEL", "mainType": "Melanoma"}, {"code": "OCM", "mainType": "Melanoma"}}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/tumors/0/cancerTypes", newIncluded, "dana"); err != nil {
		t.Fatalf("edit included list: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, "BRAF", "mutations/0/tumors/0/excludedCancerTypes", newExcluded, "dana"); err != nil {
		t.Fatalf("edit excluded list: %v", err)
	}

	if err := svc.RejectChanges(ctx, "BRAF", "root", Selection{Editor: "dana"}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	g, err := svc.GetGene(ctx, "BRAF")
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	got := g.Mutations[0].Tumors[0]
	if len(got.CancerTypes) != 1 || got.CancerTypes[0].MainType != "Melanoma" {
		t.Fatalf("included list = %+v", got.CancerTypes)
	}
	if len(got.ExcludedCancerTypes) != 1 || got.ExcludedCancerTypes[0].Code != "MEL" {
		t.Fatalf("excluded list = %+v", got.ExcludedCancerTypes)
	}
	if got.CancerTypesReview.Pending() || got.ExcludedCancerTypesReview.Pending() {
		t.Fatal("pair markers still pending after reject")
	}
	if ids := pendingLedger(t, store, "BRAF"); len(ids) != 0 {
		t.Fatalf("ledger after reject = %v", ids)
	}
}

func TestSelectionErrors(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.CreateGene(ctx, "BRAF", "alice"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	var derr *DomainError
	err := svc.AcceptChanges(ctx, "BRAF", "root", Selection{UUIDs: []string{"no-such-id"}})
	if !errors.As(err, &derr) || derr.Code != "review_not_found" {
		t.Fatalf("unknown id: %v", err)
	}
	err = svc.AcceptChanges(ctx, "BRAF", "root", Selection{Editor: "nobody"})
	if !errors.As(err, &derr) || derr.Code != "no_pending_changes" {
		t.Fatalf("unknown editor: %v", err)
	}
	err = svc.AcceptChanges(ctx, "MISSING", "root", Selection{Editor: "alice"})
	if !errors.As(err, &derr) || derr.Code != "gene_not_found" {
		t.Fatalf("missing gene: %v", err)
	}
}

// seedTumor attaches a reviewed tumor to the gene's first mutation and
// returns it so tests can reference the pair's ids.
func seedTumor(t *testing.T, svc *Service, store *docstore.Store, symbol string) *model.Tumor {
	t.Helper()
	ctx := context.Background()
	g, err := svc.GetGene(ctx, symbol)
	if err != nil {
		t.Fatalf("GetGene: %v", err)
	}
	tumor := model.NewTumor()
	tumor.CancerTypes = []*model.CancerType{{MainType: "Melanoma"}}
	g.Mutations[0].Tumors = []*model.Tumor{tumor}
	if err := store.Set(ctx, review.GenePath(symbol), g); err != nil {
		t.Fatalf("seed tumor: %v", err)
	}
	return tumor
}

// seedAcceptedMutation drives a mutation through creation and acceptance so
// later steps start from a clean, fully reviewed document.
func seedAcceptedMutation(t *testing.T, svc *Service, symbol, name string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.CreateGene(ctx, symbol, "seed"); err != nil {
		t.Fatalf("CreateGene: %v", err)
	}
	if _, err := svc.CreateMutation(ctx, symbol, name, "seed"); err != nil {
		t.Fatalf("CreateMutation: %v", err)
	}
	if _, err := svc.UpdateReviewableContent(ctx, symbol, "mutations/0/mutation_effect/oncogenic", "Oncogenic", "seed"); err != nil {
		t.Fatalf("seed edit: %v", err)
	}
	if err := svc.AcceptChanges(ctx, symbol, "seed-admin", Selection{Editor: "seed"}); err != nil {
		t.Fatalf("seed accept: %v", err)
	}
}
