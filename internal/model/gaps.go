package model

import "github.com/rotisserie/eris"

// Provenance records which fallback tier supplied a field's water-limited
// yield. Exactly one tag applies per resolved field.
type Provenance string

const (
	// ProvenanceSameCZ means a ceiling station in the field's own climate zone.
	ProvenanceSameCZ Provenance = "same_cz"
	// ProvenanceCZStation means the nearest station within the distance
	// threshold, irrespective of zone.
	ProvenanceCZStation Provenance = "cz_station"
	// ProvenanceCountryAverage means the national-average ceiling series.
	ProvenanceCountryAverage Provenance = "country_average"
)

// ParseProvenance validates a stored provenance string.
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(s); p {
	case ProvenanceSameCZ, ProvenanceCZStation, ProvenanceCountryAverage:
		return p, nil
	default:
		return "", eris.Errorf("model: unknown provenance %q", s)
	}
}

// GapRecord is the terminal per-observation artifact: the four yield levels
// and the gap decomposition between them, absolute (t/ha) and relative
// (percent of Yw). Pointer fields are nil when the underlying quantity is
// undefined for that observation (missing Yw year, undefined Y_HF, excluded
// frontier row); they are never coerced to zero.
type GapRecord struct {
	FieldID     string `csv:"field_id" json:"field_id"`
	HouseholdID string `csv:"household_id" json:"household_id"`
	Year        int    `csv:"year" json:"year"`
	Stratum     string `csv:"stratum" json:"stratum"`

	Class      YieldClass `csv:"yield_class" json:"yield_class"`
	Provenance Provenance `csv:"yw_provenance" json:"yw_provenance"`

	Ya         float64  `csv:"ya" json:"ya"`
	Efficiency *float64 `csv:"technical_efficiency,omitempty" json:"technical_efficiency,omitempty"`
	YTEx       *float64 `csv:"y_tex,omitempty" json:"y_tex,omitempty"`
	YHF        *float64 `csv:"y_hf,omitempty" json:"y_hf,omitempty"`
	Yw         *float64 `csv:"yw,omitempty" json:"yw,omitempty"`

	TotalGap      *float64 `csv:"total_gap,omitempty" json:"total_gap,omitempty"`
	EfficiencyGap *float64 `csv:"efficiency_gap,omitempty" json:"efficiency_gap,omitempty"`
	ResourceGap   *float64 `csv:"resource_gap,omitempty" json:"resource_gap,omitempty"`
	TechnologyGap *float64 `csv:"technology_gap,omitempty" json:"technology_gap,omitempty"`

	// Tags carries the observation's categorical covariates for downstream
	// grouping; not part of the exported record schema.
	Tags map[string]string `csv:"-" json:"-"`

	ClosurePct       *float64 `csv:"closure_pct,omitempty" json:"closure_pct,omitempty"`
	EfficiencyGapPct *float64 `csv:"efficiency_gap_pct,omitempty" json:"efficiency_gap_pct,omitempty"`
	ResourceGapPct   *float64 `csv:"resource_gap_pct,omitempty" json:"resource_gap_pct,omitempty"`
	TechnologyGapPct *float64 `csv:"technology_gap_pct,omitempty" json:"technology_gap_pct,omitempty"`
}

// Complete reports whether every yield level and gap is defined, i.e. the
// record participates in the additivity invariant.
func (r *GapRecord) Complete() bool {
	return r.Efficiency != nil && r.YTEx != nil && r.YHF != nil && r.Yw != nil &&
		r.TotalGap != nil && r.EfficiencyGap != nil && r.ResourceGap != nil &&
		r.TechnologyGap != nil
}

// Float returns a pointer to v. Convenience for building optional fields.
func Float(v float64) *float64 { return &v }
