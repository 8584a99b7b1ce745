package model

import "genekb/api/internal/util"

// TIType identifies one of the four therapeutic-implication buckets on a
// tumor: standard/investigational crossed with sensitivity/resistance.
type TIType string

const (
	TIStandardSensitivity        TIType = "SS"
	TIStandardResistance         TIType = "SR"
	TIInvestigationalSensitivity TIType = "IS"
	TIInvestigationalResistance  TIType = "IR"
)

// Gene is the root of a per-symbol knowledge document. Every editable field
// travels as a triple: the value, an optional Review marker while an edit is
// pending, and a stable uuid that survives renames and reorderings.
type Gene struct {
	Name string `json:"name"`

	Summary       string  `json:"summary"`
	SummaryReview *Review `json:"summary_review,omitempty"`
	SummaryUUID   string  `json:"summary_uuid"`

	Background       string  `json:"background"`
	BackgroundReview *Review `json:"background_review,omitempty"`
	BackgroundUUID   string  `json:"background_uuid"`

	Penetrance       string  `json:"penetrance,omitempty"`
	PenetranceReview *Review `json:"penetrance_review,omitempty"`
	PenetranceUUID   string  `json:"penetrance_uuid,omitempty"`

	InheritanceMechanism       string  `json:"inheritanceMechanism,omitempty"`
	InheritanceMechanismReview *Review `json:"inheritanceMechanism_review,omitempty"`
	InheritanceMechanismUUID   string  `json:"inheritanceMechanism_uuid,omitempty"`

	Type *GeneType `json:"type,omitempty"`

	Mutations         []*Mutation         `json:"mutations,omitempty"`
	GenomicIndicators []*GenomicIndicator `json:"genomic_indicators,omitempty"`
}

// GeneType carries the oncogene / tumor suppressor classification flags.
type GeneType struct {
	OCG       string  `json:"ocg"`
	OCGReview *Review `json:"ocg_review,omitempty"`
	OCGUUID   string  `json:"ocg_uuid"`

	TSG       string  `json:"tsg"`
	TSGReview *Review `json:"tsg_review,omitempty"`
	TSGUUID   string  `json:"tsg_uuid"`
}

// Mutation is an alteration entry under a gene. The name is the entity's
// identity; renaming it produces a NAME_CHANGE rather than an UPDATE.
type Mutation struct {
	Name       string  `json:"name"`
	NameReview *Review `json:"name_review,omitempty"`
	NameUUID   string  `json:"name_uuid"`

	Alterations []*Alteration `json:"alterations,omitempty"`

	MutationEffect *MutationEffect `json:"mutation_effect,omitempty"`

	Tumors []*Tumor `json:"tumors,omitempty"`
}

// Alteration is a parsed variant underneath a (possibly multi-variant)
// mutation name.
type Alteration struct {
	Type          string        `json:"type,omitempty"`
	Alteration    string        `json:"alteration"`
	Name          string        `json:"name"`
	ProteinChange string        `json:"proteinChange,omitempty"`
	Comment       string        `json:"comment,omitempty"`
	Excluding     []*Alteration `json:"excluding,omitempty"`
}

// MutationEffect groups the biological-effect fields of a mutation.
type MutationEffect struct {
	Oncogenic       string  `json:"oncogenic"`
	OncogenicReview *Review `json:"oncogenic_review,omitempty"`
	OncogenicUUID   string  `json:"oncogenic_uuid"`

	Pathogenic       string  `json:"pathogenic,omitempty"`
	PathogenicReview *Review `json:"pathogenic_review,omitempty"`
	PathogenicUUID   string  `json:"pathogenic_uuid,omitempty"`

	Effect       string  `json:"effect"`
	EffectReview *Review `json:"effect_review,omitempty"`
	EffectUUID   string  `json:"effect_uuid"`

	Description       string  `json:"description"`
	DescriptionReview *Review `json:"description_review,omitempty"`
	DescriptionUUID   string  `json:"description_uuid"`
}

// Tumor scopes mutation knowledge to a set of cancer types. Its identity is
// the cancerTypes / excludedCancerTypes pair: each list carries its own
// Review marker but the ledger tracks the pair under one composite of the
// two uuids, so either side's edit surfaces as the tumor's name node.
type Tumor struct {
	CancerTypes       []*CancerType `json:"cancerTypes"`
	CancerTypesReview *Review       `json:"cancerTypes_review,omitempty"`
	CancerTypesUUID   string        `json:"cancerTypes_uuid"`

	ExcludedCancerTypes       []*CancerType `json:"excludedCancerTypes,omitempty"`
	ExcludedCancerTypesReview *Review       `json:"excludedCancerTypes_review,omitempty"`
	ExcludedCancerTypesUUID   string        `json:"excludedCancerTypes_uuid,omitempty"`

	Summary       string  `json:"summary"`
	SummaryReview *Review `json:"summary_review,omitempty"`
	SummaryUUID   string  `json:"summary_uuid"`

	DiagnosticSummary       string  `json:"diagnosticSummary,omitempty"`
	DiagnosticSummaryReview *Review `json:"diagnosticSummary_review,omitempty"`
	DiagnosticSummaryUUID   string  `json:"diagnosticSummary_uuid,omitempty"`

	PrognosticSummary       string  `json:"prognosticSummary,omitempty"`
	PrognosticSummaryReview *Review `json:"prognosticSummary_review,omitempty"`
	PrognosticSummaryUUID   string  `json:"prognosticSummary_uuid,omitempty"`

	Diagnostic *Implication `json:"diagnostic,omitempty"`
	Prognostic *Implication `json:"prognostic,omitempty"`

	TIs []*TI `json:"TIs"`
}

// TI is one therapeutic-implication bucket holding its treatments.
type TI struct {
	Type       TIType       `json:"type"`
	Treatments []*Treatment `json:"treatments,omitempty"`
}

// Implication holds diagnostic or prognostic evidence for a tumor.
type Implication struct {
	Level       string  `json:"level"`
	LevelReview *Review `json:"level_review,omitempty"`
	LevelUUID   string  `json:"level_uuid"`

	Description       string  `json:"description"`
	DescriptionReview *Review `json:"description_review,omitempty"`
	DescriptionUUID   string  `json:"description_uuid"`

	ExcludedRCTs       []*CancerType `json:"excludedRCTs,omitempty"`
	ExcludedRCTsReview *Review       `json:"excludedRCTs_review,omitempty"`
	ExcludedRCTsUUID   string        `json:"excludedRCTs_uuid,omitempty"`
}

// Treatment is a therapy entry. The name field stores drug ids joined with
// "," (combination) and "+" (concurrent), not display names; renaming a
// treatment therefore changes which drugs it references.
type Treatment struct {
	Name       string  `json:"name"`
	NameReview *Review `json:"name_review,omitempty"`
	NameUUID   string  `json:"name_uuid"`

	Level       string  `json:"level"`
	LevelReview *Review `json:"level_review,omitempty"`
	LevelUUID   string  `json:"level_uuid"`

	FDALevel       string  `json:"fdaLevel,omitempty"`
	FDALevelReview *Review `json:"fdaLevel_review,omitempty"`
	FDALevelUUID   string  `json:"fdaLevel_uuid,omitempty"`

	Propagation       string  `json:"propagation,omitempty"`
	PropagationReview *Review `json:"propagation_review,omitempty"`
	PropagationUUID   string  `json:"propagation_uuid,omitempty"`

	PropagationLiquid       string  `json:"propagationLiquid,omitempty"`
	PropagationLiquidReview *Review `json:"propagationLiquid_review,omitempty"`
	PropagationLiquidUUID   string  `json:"propagationLiquid_uuid,omitempty"`

	Indication       string  `json:"indication,omitempty"`
	IndicationReview *Review `json:"indication_review,omitempty"`
	IndicationUUID   string  `json:"indication_uuid,omitempty"`

	Description       string  `json:"description"`
	DescriptionReview *Review `json:"description_review,omitempty"`
	DescriptionUUID   string  `json:"description_uuid"`

	ExcludedRCTs       []*CancerType `json:"excludedRCTs,omitempty"`
	ExcludedRCTsReview *Review       `json:"excludedRCTs_review,omitempty"`
	ExcludedRCTsUUID   string        `json:"excludedRCTs_uuid,omitempty"`
}

// GenomicIndicator is a germline indicator entry under a gene.
type GenomicIndicator struct {
	Name       string  `json:"name"`
	NameReview *Review `json:"name_review,omitempty"`
	NameUUID   string  `json:"name_uuid"`

	Description       string  `json:"description,omitempty"`
	DescriptionReview *Review `json:"description_review,omitempty"`
	DescriptionUUID   string  `json:"description_uuid,omitempty"`

	AssociationVariants       []*AssociationVariant `json:"associationVariants,omitempty"`
	AssociationVariantsReview *Review               `json:"associationVariants_review,omitempty"`
	AssociationVariantsUUID   string                `json:"associationVariants_uuid,omitempty"`

	AlleleState *AlleleState `json:"allele_state,omitempty"`
}

// AssociationVariant links a genomic indicator to a mutation by uuid.
type AssociationVariant struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

// AlleleState groups the allele-state fields of a genomic indicator.
type AlleleState struct {
	Monoallelic       string  `json:"monoallelic,omitempty"`
	MonoallelicReview *Review `json:"monoallelic_review,omitempty"`
	MonoallelicUUID   string  `json:"monoallelic_uuid,omitempty"`

	Biallelic       string  `json:"biallelic,omitempty"`
	BiallelicReview *Review `json:"biallelic_review,omitempty"`
	BiallelicUUID   string  `json:"biallelic_uuid,omitempty"`

	Mosaic       string  `json:"mosaic,omitempty"`
	MosaicReview *Review `json:"mosaic_review,omitempty"`
	MosaicUUID   string  `json:"mosaic_uuid,omitempty"`

	Carrier       string  `json:"carrier,omitempty"`
	CarrierReview *Review `json:"carrier_review,omitempty"`
	CarrierUUID   string  `json:"carrier_uuid,omitempty"`
}

// CancerType is one oncotree entry inside a tumor's cancer-type lists.
type CancerType struct {
	Code     string `json:"code"`
	MainType string `json:"mainType"`
	Subtype  string `json:"subtype"`
}

// NewGene mints a document skeleton for a symbol with fresh field uuids.
func NewGene(name string) *Gene {
	return &Gene{
		Name:                     name,
		SummaryUUID:              util.NewUUID(),
		BackgroundUUID:           util.NewUUID(),
		PenetranceUUID:           util.NewUUID(),
		InheritanceMechanismUUID: util.NewUUID(),
		Type: &GeneType{
			OCGUUID: util.NewUUID(),
			TSGUUID: util.NewUUID(),
		},
	}
}

// NewMutation mints a mutation with its effect block and fresh uuids.
func NewMutation(name string) *Mutation {
	return &Mutation{
		Name:     name,
		NameUUID: util.NewUUID(),
		MutationEffect: &MutationEffect{
			OncogenicUUID:   util.NewUUID(),
			PathogenicUUID:  util.NewUUID(),
			EffectUUID:      util.NewUUID(),
			DescriptionUUID: util.NewUUID(),
		},
	}
}

// NewTumor mints a tumor with the four therapeutic-implication buckets in
// their canonical order.
func NewTumor() *Tumor {
	return &Tumor{
		CancerTypesUUID:         util.NewUUID(),
		ExcludedCancerTypesUUID: util.NewUUID(),
		SummaryUUID:             util.NewUUID(),
		DiagnosticSummaryUUID:   util.NewUUID(),
		PrognosticSummaryUUID:   util.NewUUID(),
		Diagnostic:              NewImplication(),
		Prognostic:              NewImplication(),
		TIs: []*TI{
			{Type: TIStandardSensitivity},
			{Type: TIStandardResistance},
			{Type: TIInvestigationalSensitivity},
			{Type: TIInvestigationalResistance},
		},
	}
}

// NewImplication mints an empty diagnostic/prognostic block.
func NewImplication() *Implication {
	return &Implication{
		LevelUUID:        util.NewUUID(),
		DescriptionUUID:  util.NewUUID(),
		ExcludedRCTsUUID: util.NewUUID(),
	}
}

// NewTreatment mints a treatment whose name is the drug-id expression.
func NewTreatment(name string) *Treatment {
	return &Treatment{
		Name:                  name,
		NameUUID:              util.NewUUID(),
		LevelUUID:             util.NewUUID(),
		FDALevelUUID:          util.NewUUID(),
		PropagationUUID:       util.NewUUID(),
		PropagationLiquidUUID: util.NewUUID(),
		IndicationUUID:        util.NewUUID(),
		DescriptionUUID:       util.NewUUID(),
		ExcludedRCTsUUID:      util.NewUUID(),
	}
}

// NewGenomicIndicator mints a germline indicator with its allele states.
func NewGenomicIndicator(name string) *GenomicIndicator {
	return &GenomicIndicator{
		Name:                    name,
		NameUUID:                util.NewUUID(),
		DescriptionUUID:         util.NewUUID(),
		AssociationVariantsUUID: util.NewUUID(),
		AlleleState: &AlleleState{
			MonoallelicUUID: util.NewUUID(),
			BiallelicUUID:   util.NewUUID(),
			MosaicUUID:      util.NewUUID(),
			CarrierUUID:     util.NewUUID(),
		},
	}
}
