package review

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"genekb/api/internal/model"
)

// Location segments used in titles and history location strings.
const (
	locGeneSummary       = "Gene Summary"
	locGeneBackground    = "Gene Background"
	locGeneType          = "Gene Type"
	locPenetrance        = "Penetrance"
	locInheritance       = "Mechanism of Inheritance"
	locGenomicIndicators = "Genomic Indicators"
	locAlleleState       = "Allele State"
	locMutationEffect    = "Mutation Effect"
	locTumorSummary      = "Tumor Type Summary"
	locDiagnosticSummary = "Diagnostic Summary"
	locPrognosticSummary = "Prognostic Summary"
	locDiagnostic        = "Diagnostic"
	locPrognostic        = "Prognostic"
	locRelevantCancers   = "Relevant Cancer Types"
)

var tiLocations = map[model.TIType]string{
	model.TIStandardSensitivity:        "Standard implications for sensitivity to therapy",
	model.TIStandardResistance:         "Standard implications for resistance to therapy",
	model.TIInvestigationalSensitivity: "Investigational implications for sensitivity to therapy",
	model.TIInvestigationalResistance:  "Investigational implications for resistance to therapy",
}

// Builder reconstructs the review tree for one gene from the document plus
// the ledger's pending id set. It holds no state between builds.
type Builder struct {
	// DrugName resolves a drug id to its display name for treatment
	// titles. Unresolved ids fall back to the raw id.
	DrugName func(id string) string
}

// Result is one built tree plus its editor partition and any ledger ids that
// matched nothing in the document. Dangling ids are tolerated drift between
// ledger and document; callers log them and move on.
type Result struct {
	Root     *Node
	Editors  EditorIndex
	Dangling []string
}

// Build walks the gene document guided by pending, producing the pruned,
// compacted, sorted review tree. Matched ids are consumed from a working
// copy of the set so one id never yields two nodes, and traversal
// short-circuits as soon as the working set is empty.
func (b *Builder) Build(g *model.Gene, pending []string) *Result {
	st := &builder{
		drugName: b.DrugName,
		set:      make(map[string]bool, len(pending)),
	}
	for _, id := range pending {
		if id != "" {
			st.set[id] = true
		}
	}

	root := &Node{Kind: KindMeta, Title: g.Name}
	st.gene(root, g)

	prune(root)
	compact(root)
	sortChildren(root)

	// Partition after pruning so nodes dropped from the tree are not
	// selectable through the editor index either.
	idx := make(EditorIndex)
	root.Walk(func(n *Node) {
		if n.Reviewable() {
			idx.add(n)
		}
	})

	dangling := make([]string, 0, len(st.set))
	for id := range st.set {
		dangling = append(dangling, id)
	}
	sort.Strings(dangling)
	return &Result{Root: root, Editors: idx, Dangling: dangling}
}

type builder struct {
	drugName func(string) string
	set      map[string]bool
}

func (st *builder) empty() bool { return len(st.set) == 0 }

// claim consumes a single id from the working set.
func (st *builder) claim(uuid string) (StableID, bool) {
	if uuid == "" || !st.set[uuid] {
		return StableID{}, false
	}
	delete(st.set, uuid)
	return SingleID(uuid), true
}

// claimPair consumes a composite id, matching the joined form or either half
// alone for ledgers that never tracked the pair. All forms present are
// consumed together so the pair yields one node.
func (st *builder) claimPair(a, b string) (StableID, bool) {
	if a == "" {
		return StableID{}, false
	}
	joined := a + "," + b
	matched := st.set[a] || (b != "" && (st.set[b] || st.set[joined]))
	if !matched {
		return StableID{}, false
	}
	delete(st.set, joined)
	delete(st.set, a)
	delete(st.set, b)
	return PairedID(a, b), true
}

func joinLoc(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + ", " + segment
}

// leaf attaches a reviewable scalar-field node under parent when the field's
// id is pending. A field with a marker but no pending id, or the reverse, is
// skipped without error.
func (st *builder) leaf(parent *Node, path, label string, value any, marker *model.Review, uuid string, info *model.HistoryInfo) {
	if marker == nil {
		return
	}
	id, ok := st.claim(uuid)
	if !ok {
		return
	}
	action := Classify(marker, path)
	n := &Node{
		Kind:                      KindReviewable,
		Title:                     label,
		Path:                      path,
		HistoryLocation:           joinLoc(parent.HistoryLocation, label),
		NestedUnderCreateOrDelete: nestedUnder(parent),
		Review: &ReviewInfo{
			ReviewPath: path + "_review",
			Marker:     marker,
			ID:         id,
			WireID:     id.String(),
			Action:     action,
			PriorText:  priorText(marker.LastReviewed),
		},
		History: &HistoryData{Old: marker.LastReviewed, New: value, Info: info},
	}
	parent.Children = append(parent.Children, n)
}

// identity builds the element node for a member of an identity-bearing
// collection. When the identity field itself is pending the node is
// reviewable and classified; otherwise a plain grouping node hosts the
// element's children.
func (st *builder) identity(parent *Node, namePath, title string, nameValue any, marker *model.Review, id StableID, claimed bool, entity any, info *model.HistoryInfo) *Node {
	loc := joinLoc(parent.HistoryLocation, title)
	if !claimed || marker == nil {
		n := &Node{
			Kind:                      KindMeta,
			Title:                     title,
			Path:                      parentPath(namePath),
			HistoryLocation:           loc,
			NestedUnderCreateOrDelete: nestedUnder(parent),
		}
		parent.Children = append(parent.Children, n)
		return n
	}
	action := Classify(marker, namePath)
	hist := &HistoryData{Info: info}
	switch action {
	case ActionCreate, ActionPromote:
		hist.New = entity
	case ActionDelete, ActionDemote:
		hist.Old = entity
	default:
		hist.Old = marker.LastReviewed
		hist.New = nameValue
	}
	n := &Node{
		Kind:                      KindReviewable,
		Title:                     title,
		Path:                      namePath,
		HistoryLocation:           loc,
		NestedUnderCreateOrDelete: nestedUnder(parent),
		Review: &ReviewInfo{
			ReviewPath: namePath + "_review",
			Marker:     marker,
			ID:         id,
			WireID:     id.String(),
			Action:     action,
			PriorText:  priorText(marker.LastReviewed),
		},
		History: hist,
	}
	parent.Children = append(parent.Children, n)
	return n
}

// nestedUnder reports whether children of parent ride along with an
// in-flight create or delete instead of being actionable on their own.
func nestedUnder(parent *Node) bool {
	if parent.NestedUnderCreateOrDelete {
		return true
	}
	return parent.Reviewable() && parent.Review.Action.UnderCreateOrDelete()
}

func (st *builder) gene(root *Node, g *model.Gene) {
	if st.empty() {
		return
	}
	st.leaf(root, "summary", locGeneSummary, g.Summary, g.SummaryReview, g.SummaryUUID, nil)
	st.leaf(root, "background", locGeneBackground, g.Background, g.BackgroundReview, g.BackgroundUUID, nil)
	st.leaf(root, "penetrance", locPenetrance, g.Penetrance, g.PenetranceReview, g.PenetranceUUID, nil)
	st.leaf(root, "inheritanceMechanism", locInheritance, g.InheritanceMechanism, g.InheritanceMechanismReview, g.InheritanceMechanismUUID, nil)

	if t := g.Type; t != nil && !st.empty() {
		typeNode := &Node{Kind: KindMeta, Title: locGeneType, Path: "type", HistoryLocation: joinLoc(root.HistoryLocation, locGeneType)}
		st.leaf(typeNode, "type/ocg", "Oncogene", t.OCG, t.OCGReview, t.OCGUUID, nil)
		st.leaf(typeNode, "type/tsg", "Tumor Suppressor", t.TSG, t.TSGReview, t.TSGUUID, nil)
		root.Children = append(root.Children, typeNode)
	}

	st.genomicIndicators(root, g.GenomicIndicators)
	st.mutations(root, g.Mutations)
}

func (st *builder) genomicIndicators(root *Node, gis []*model.GenomicIndicator) {
	if len(gis) == 0 || st.empty() {
		return
	}
	group := &Node{Kind: KindMeta, Title: locGenomicIndicators, Path: "genomic_indicators", HistoryLocation: joinLoc(root.HistoryLocation, locGenomicIndicators)}
	for i, gi := range gis {
		if st.empty() {
			break
		}
		base := fmt.Sprintf("genomic_indicators/%d", i)
		id, claimed := st.claim(gi.NameUUID)
		n := st.identity(group, base+"/name", gi.Name, gi.Name, gi.NameReview, id, claimed, gi, nil)
		st.leaf(n, base+"/description", "Description", gi.Description, gi.DescriptionReview, gi.DescriptionUUID, nil)
		st.leaf(n, base+"/associationVariants", "Association Variants", gi.AssociationVariants, gi.AssociationVariantsReview, gi.AssociationVariantsUUID, nil)
		if as := gi.AlleleState; as != nil && !st.empty() {
			alleles := &Node{Kind: KindMeta, Title: locAlleleState, Path: base + "/allele_state", HistoryLocation: joinLoc(n.HistoryLocation, locAlleleState), NestedUnderCreateOrDelete: nestedUnder(n)}
			st.leaf(alleles, base+"/allele_state/monoallelic", "Monoallelic", as.Monoallelic, as.MonoallelicReview, as.MonoallelicUUID, nil)
			st.leaf(alleles, base+"/allele_state/biallelic", "Biallelic", as.Biallelic, as.BiallelicReview, as.BiallelicUUID, nil)
			st.leaf(alleles, base+"/allele_state/mosaic", "Mosaic", as.Mosaic, as.MosaicReview, as.MosaicUUID, nil)
			st.leaf(alleles, base+"/allele_state/carrier", "Carrier", as.Carrier, as.CarrierReview, as.CarrierUUID, nil)
			n.Children = append(n.Children, alleles)
		}
	}
	root.Children = append(root.Children, group)
}

func (st *builder) mutations(root *Node, muts []*model.Mutation) {
	for i, m := range muts {
		if st.empty() {
			return
		}
		base := fmt.Sprintf("mutations/%d", i)
		info := &model.HistoryInfo{Mutation: m.Name}
		id, claimed := st.claim(m.NameUUID)
		n := st.identity(root, base+"/name", m.Name, m.Name, m.NameReview, id, claimed, m, info)

		if me := m.MutationEffect; me != nil && !st.empty() {
			effect := &Node{Kind: KindMeta, Title: locMutationEffect, Path: base + "/mutation_effect", HistoryLocation: joinLoc(n.HistoryLocation, locMutationEffect), NestedUnderCreateOrDelete: nestedUnder(n)}
			st.leaf(effect, base+"/mutation_effect/oncogenic", "Oncogenic", me.Oncogenic, me.OncogenicReview, me.OncogenicUUID, info)
			st.leaf(effect, base+"/mutation_effect/pathogenic", "Pathogenicity", me.Pathogenic, me.PathogenicReview, me.PathogenicUUID, info)
			st.leaf(effect, base+"/mutation_effect/effect", "Effect", me.Effect, me.EffectReview, me.EffectUUID, info)
			st.leaf(effect, base+"/mutation_effect/description", "Description", me.Description, me.DescriptionReview, me.DescriptionUUID, info)
			n.Children = append(n.Children, effect)
		}

		st.tumors(n, base, m, info)
	}
}

func (st *builder) tumors(parent *Node, mutBase string, m *model.Mutation, minfo *model.HistoryInfo) {
	for i, t := range m.Tumors {
		if st.empty() {
			return
		}
		base := fmt.Sprintf("%s/tumors/%d", mutBase, i)
		title := model.CancerTypesName(t.CancerTypes, t.ExcludedCancerTypes)
		info := &model.HistoryInfo{Mutation: minfo.Mutation, CancerType: title}
		id, claimed := st.claimPair(t.CancerTypesUUID, t.ExcludedCancerTypesUUID)
		// Either half of the identity pair can carry the pending marker.
		// The included side leads; an excluded-only edit builds the name
		// node from its own marker and path.
		namePath := base + "/cancerTypes"
		nameValue := any(t.CancerTypes)
		marker := t.CancerTypesReview
		if marker == nil && t.ExcludedCancerTypesReview != nil {
			namePath = base + "/excludedCancerTypes"
			nameValue = t.ExcludedCancerTypes
			marker = t.ExcludedCancerTypesReview
		}
		n := st.identity(parent, namePath, title, nameValue, marker, id, claimed, t, info)
		if n.Reviewable() && marker == t.CancerTypesReview && t.ExcludedCancerTypesReview.Pending() {
			n.Review.PairReviewPath = base + "/excludedCancerTypes_review"
			n.Review.PairMarker = t.ExcludedCancerTypesReview
		}

		st.leaf(n, base+"/summary", locTumorSummary, t.Summary, t.SummaryReview, t.SummaryUUID, info)
		st.leaf(n, base+"/diagnosticSummary", locDiagnosticSummary, t.DiagnosticSummary, t.DiagnosticSummaryReview, t.DiagnosticSummaryUUID, info)
		st.leaf(n, base+"/prognosticSummary", locPrognosticSummary, t.PrognosticSummary, t.PrognosticSummaryReview, t.PrognosticSummaryUUID, info)

		st.implication(n, base+"/diagnostic", locDiagnostic, t.Diagnostic, info)
		st.implication(n, base+"/prognostic", locPrognostic, t.Prognostic, info)

		for j, ti := range t.TIs {
			if ti == nil || len(ti.Treatments) == 0 || st.empty() {
				continue
			}
			tiBase := fmt.Sprintf("%s/TIs/%d", base, j)
			tiNode := &Node{Kind: KindMeta, Title: tiLocations[ti.Type], Path: tiBase, HistoryLocation: joinLoc(n.HistoryLocation, tiLocations[ti.Type]), NestedUnderCreateOrDelete: nestedUnder(n)}
			st.treatments(tiNode, tiBase, ti, info)
			n.Children = append(n.Children, tiNode)
		}
	}
}

func (st *builder) implication(parent *Node, base, label string, imp *model.Implication, info *model.HistoryInfo) {
	if imp == nil || st.empty() {
		return
	}
	n := &Node{Kind: KindMeta, Title: label, Path: base, HistoryLocation: joinLoc(parent.HistoryLocation, label), NestedUnderCreateOrDelete: nestedUnder(parent)}
	st.leaf(n, base+"/level", "Level", imp.Level, imp.LevelReview, imp.LevelUUID, info)
	st.leaf(n, base+"/description", "Description", imp.Description, imp.DescriptionReview, imp.DescriptionUUID, info)
	st.leaf(n, base+"/excludedRCTs", locRelevantCancers, imp.ExcludedRCTs, imp.ExcludedRCTsReview, imp.ExcludedRCTsUUID, info)
	parent.Children = append(parent.Children, n)
}

func (st *builder) treatments(parent *Node, tiBase string, ti *model.TI, tinfo *model.HistoryInfo) {
	for i, tx := range ti.Treatments {
		if st.empty() {
			return
		}
		base := fmt.Sprintf("%s/treatments/%d", tiBase, i)
		title := st.txName(tx.Name)
		info := &model.HistoryInfo{Mutation: tinfo.Mutation, CancerType: tinfo.CancerType, Treatment: title}
		id, claimed := st.claim(tx.NameUUID)
		n := st.identity(parent, base+"/name", title, tx.Name, tx.NameReview, id, claimed, tx, info)

		st.leaf(n, base+"/level", "Level", tx.Level, tx.LevelReview, tx.LevelUUID, info)
		st.leaf(n, base+"/fdaLevel", "FDA Level", tx.FDALevel, tx.FDALevelReview, tx.FDALevelUUID, info)
		st.leaf(n, base+"/propagation", "Propagation to Other Solid Tumor Types", tx.Propagation, tx.PropagationReview, tx.PropagationUUID, info)
		st.leaf(n, base+"/propagationLiquid", "Propagation to Liquid Tumor Types", tx.PropagationLiquid, tx.PropagationLiquidReview, tx.PropagationLiquidUUID, info)
		st.leaf(n, base+"/indication", "Indication", tx.Indication, tx.IndicationReview, tx.IndicationUUID, info)
		st.leaf(n, base+"/description", "Description", tx.Description, tx.DescriptionReview, tx.DescriptionUUID, info)
		st.leaf(n, base+"/excludedRCTs", locRelevantCancers, tx.ExcludedRCTs, tx.ExcludedRCTsReview, tx.ExcludedRCTsUUID, info)
	}
}

// txName resolves a treatment's drug-id expression into display names.
// Comma separates members of a combination, plus separates drugs given
// concurrently; both separators are preserved in the output.
func (st *builder) txName(expr string) string {
	combos := strings.Split(expr, ",")
	for i, combo := range combos {
		drugs := strings.Split(combo, "+")
		for j, d := range drugs {
			d = strings.TrimSpace(d)
			if st.drugName != nil {
				if name := st.drugName(d); name != "" {
					d = name
				}
			}
			drugs[j] = d
		}
		combos[i] = strings.Join(drugs, " + ")
	}
	return strings.Join(combos, ", ")
}

func parentPath(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// priorText renders a prior value for display next to the pending one.
func priorText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []*model.CancerType:
		return model.CancerTypesName(t, nil)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
