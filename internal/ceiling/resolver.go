package ceiling

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

// DefaultThresholdKM is the maximum station distance accepted by the second
// fallback tier.
const DefaultThresholdKM = 30.0

// Candidate is one yield-ceiling station offered by the external spatial
// client for a field. DistanceKM is nil when the client could not compute a
// distance.
type Candidate struct {
	StationID   string   `json:"station_id"`
	ClimateZone string   `json:"climate_zone"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
	Series      Series   `json:"series"`
}

// FieldInput is the resolver's per-field input: the field's own climate
// zone and country plus the candidate list from the external collaborator.
type FieldInput struct {
	FieldID        string      `json:"field_id"`
	ClimateZone    string      `json:"climate_zone"`
	Country        string      `json:"country"`
	HasCoordinates bool        `json:"has_coordinates"`
	Candidates     []Candidate `json:"candidates"`
}

// Resolution attaches exactly one Yw source to a field, tagged with the tier
// that supplied it.
type Resolution struct {
	FieldID     string           `json:"field_id"`
	Provenance  model.Provenance `json:"provenance"`
	StationID   string           `json:"station_id,omitempty"`
	DistanceKM  *float64         `json:"distance_km,omitempty"`
	Series      Series           `json:"series"`
	LongRunMean *float64         `json:"long_run_mean,omitempty"`
}

// ResolutionError records a field no tier could resolve. By policy such
// fields are dropped and counted, not fatal.
type ResolutionError struct {
	FieldID string
	Reason  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("ceiling: field %s unresolved: %s", e.FieldID, e.Reason)
}

// Resolver applies the tier-priority decision. The spatial join and API
// retrieval happen upstream; the resolver only chooses among the candidates
// it is handed.
type Resolver struct {
	// ThresholdKM caps the station distance for the cz_station tier.
	ThresholdKM float64
	// National maps country name to its national-average ceiling series, the
	// final fallback tier.
	National map[string]Series
}

// NewResolver returns a Resolver with the default distance threshold.
func NewResolver(national map[string]Series) *Resolver {
	return &Resolver{ThresholdKM: DefaultThresholdKM, National: national}
}

// Resolve assigns one Yw source per field, trying tiers in strict order:
// same climate zone, nearest station within ThresholdKM, national average.
// The first satisfied tier wins. Fields without usable coordinates are
// excluded entirely. Every input field ends up either resolved or in the
// dropped list; the two sets partition the input.
func (r *Resolver) Resolve(fields []FieldInput) (map[string]Resolution, []error) {
	threshold := r.ThresholdKM
	if threshold <= 0 {
		threshold = DefaultThresholdKM
	}

	resolved := make(map[string]Resolution, len(fields))
	var dropped []error
	tierCounts := make(map[model.Provenance]int)

	for _, f := range fields {
		if !f.HasCoordinates {
			dropped = append(dropped, &ResolutionError{FieldID: f.FieldID, Reason: "no usable coordinates"})
			continue
		}

		res, err := r.resolveField(f, threshold)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		resolved[f.FieldID] = res
		tierCounts[res.Provenance]++
	}

	zap.L().Info("ceiling: resolution complete",
		zap.Int("fields", len(fields)),
		zap.Int("resolved", len(resolved)),
		zap.Int("dropped", len(dropped)),
		zap.Int("same_cz", tierCounts[model.ProvenanceSameCZ]),
		zap.Int("cz_station", tierCounts[model.ProvenanceCZStation]),
		zap.Int("country_average", tierCounts[model.ProvenanceCountryAverage]),
	)
	return resolved, dropped
}

func (r *Resolver) resolveField(f FieldInput, threshold float64) (Resolution, error) {
	// Tier 1: a station in the field's own climate zone; nearest wins when
	// several match.
	if f.ClimateZone != "" {
		if c := nearest(f.Candidates, func(c Candidate) bool {
			return c.ClimateZone == f.ClimateZone
		}); c != nil {
			return resolution(f, model.ProvenanceSameCZ, c), nil
		}
	}

	// Tier 2: nearest station in any zone, accepted only inside the distance
	// threshold.
	if c := nearest(f.Candidates, func(c Candidate) bool {
		return c.DistanceKM != nil && *c.DistanceKM <= threshold
	}); c != nil {
		return resolution(f, model.ProvenanceCZStation, c), nil
	}

	// Tier 3: national average.
	if s, ok := r.National[f.Country]; ok && len(s) > 0 {
		return Resolution{
			FieldID:     f.FieldID,
			Provenance:  model.ProvenanceCountryAverage,
			Series:      s,
			LongRunMean: s.LongRunMean(),
		}, nil
	}

	return Resolution{}, &ResolutionError{FieldID: f.FieldID, Reason: "no tier matched (no zone station, none within threshold, no national series)"}
}

// nearest returns the matching candidate with the smallest distance.
// Candidates without a distance rank after all measured ones, so a zone match
// with unknown distance is still usable when it is the only match.
func nearest(candidates []Candidate, match func(Candidate) bool) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if !match(*c) {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch {
		case best.DistanceKM == nil && c.DistanceKM != nil:
			best = c
		case best.DistanceKM != nil && c.DistanceKM != nil && *c.DistanceKM < *best.DistanceKM:
			best = c
		}
	}
	return best
}

func resolution(f FieldInput, p model.Provenance, c *Candidate) Resolution {
	return Resolution{
		FieldID:     f.FieldID,
		Provenance:  p,
		StationID:   c.StationID,
		DistanceKM:  c.DistanceKM,
		Series:      c.Series,
		LongRunMean: c.Series.LongRunMean(),
	}
}
