package model

// StripPendingReviews walks an entity subtree and clears every pending flag
// and prior value from its markers. The attribution stamps survive so the
// document still shows who last touched each field. Called when a created or
// promoted entity is accepted wholesale.

func (g *Gene) StripPendingReviews() {
	g.SummaryReview.ClearPending()
	g.BackgroundReview.ClearPending()
	g.PenetranceReview.ClearPending()
	g.InheritanceMechanismReview.ClearPending()
	if g.Type != nil {
		g.Type.OCGReview.ClearPending()
		g.Type.TSGReview.ClearPending()
	}
	for _, m := range g.Mutations {
		m.StripPendingReviews()
	}
	for _, gi := range g.GenomicIndicators {
		gi.StripPendingReviews()
	}
}

func (m *Mutation) StripPendingReviews() {
	m.NameReview.ClearPending()
	if me := m.MutationEffect; me != nil {
		me.OncogenicReview.ClearPending()
		me.PathogenicReview.ClearPending()
		me.EffectReview.ClearPending()
		me.DescriptionReview.ClearPending()
	}
	for _, t := range m.Tumors {
		t.StripPendingReviews()
	}
}

func (t *Tumor) StripPendingReviews() {
	t.CancerTypesReview.ClearPending()
	t.ExcludedCancerTypesReview.ClearPending()
	t.SummaryReview.ClearPending()
	t.DiagnosticSummaryReview.ClearPending()
	t.PrognosticSummaryReview.ClearPending()
	if t.Diagnostic != nil {
		t.Diagnostic.StripPendingReviews()
	}
	if t.Prognostic != nil {
		t.Prognostic.StripPendingReviews()
	}
	for _, ti := range t.TIs {
		if ti == nil {
			continue
		}
		for _, tx := range ti.Treatments {
			tx.StripPendingReviews()
		}
	}
}

func (i *Implication) StripPendingReviews() {
	i.LevelReview.ClearPending()
	i.DescriptionReview.ClearPending()
	i.ExcludedRCTsReview.ClearPending()
}

func (t *Treatment) StripPendingReviews() {
	t.NameReview.ClearPending()
	t.LevelReview.ClearPending()
	t.FDALevelReview.ClearPending()
	t.PropagationReview.ClearPending()
	t.PropagationLiquidReview.ClearPending()
	t.IndicationReview.ClearPending()
	t.DescriptionReview.ClearPending()
	t.ExcludedRCTsReview.ClearPending()
}

func (gi *GenomicIndicator) StripPendingReviews() {
	gi.NameReview.ClearPending()
	gi.DescriptionReview.ClearPending()
	gi.AssociationVariantsReview.ClearPending()
	if as := gi.AlleleState; as != nil {
		as.MonoallelicReview.ClearPending()
		as.BiallelicReview.ClearPending()
		as.MosaicReview.ClearPending()
		as.CarrierReview.ClearPending()
	}
}
