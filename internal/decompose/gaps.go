// Package decompose turns the four yield levels into additive gap components
// and aggregates them for reporting.
package decompose

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yieldgap-cli/internal/ceiling"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

// Inputs collects the per-observation outputs of the upstream stages. The
// Efficiency, Classes, YHF and StratumKeys slices are aligned with
// Observations; Efficiency entries are nil when the frontier stage produced
// no score (excluded row or failed fit).
type Inputs struct {
	Observations []*model.Observation
	Efficiency   []*float64
	Classes      []model.YieldClass
	StratumKeys  []string
	YHF          []*float64
	Resolutions  map[string]ceiling.Resolution
}

func (in *Inputs) validate() error {
	n := len(in.Observations)
	if len(in.Efficiency) != n || len(in.Classes) != n || len(in.StratumKeys) != n || len(in.YHF) != n {
		return eris.Errorf("decompose: misaligned inputs (obs=%d eff=%d classes=%d strata=%d yhf=%d)",
			n, len(in.Efficiency), len(in.Classes), len(in.StratumKeys), len(in.YHF))
	}
	return nil
}

// Decompose computes one GapRecord per observation:
//
//	total_gap      = Yw   - Ya
//	efficiency_gap = Y_TEx - Ya
//	resource_gap   = Y_HF - Y_TEx
//	technology_gap = Yw   - Y_HF
//
// plus the relative forms as differences of percent-of-Yw levels. Every
// quantity whose inputs are undefined stays nil: a missing or non-positive
// Yw for the observation's year voids all Yw-dependent values, an undefined
// Y_HF voids the resource and technology gaps, and a missing efficiency
// score voids Y_TEx and both gaps touching it. Nothing is coerced to zero.
func Decompose(in Inputs) ([]*model.GapRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	records := make([]*model.GapRecord, 0, len(in.Observations))
	complete := 0
	for i, o := range in.Observations {
		rec := &model.GapRecord{
			FieldID:     o.FieldID(),
			HouseholdID: o.HouseholdID,
			Year:        o.Year,
			Stratum:     in.StratumKeys[i],
			Class:       in.Classes[i],
			Ya:          o.Ya,
			Efficiency:  in.Efficiency[i],
			YHF:         in.YHF[i],
		}
		if len(o.Categorical) > 0 {
			rec.Tags = make(map[string]string, len(o.Categorical))
			for k, v := range o.Categorical {
				rec.Tags[k] = v
			}
		}

		if te := rec.Efficiency; te != nil && *te > 0 {
			rec.YTEx = model.Float(o.Ya / *te)
			rec.EfficiencyGap = model.Float(*rec.YTEx - o.Ya)
		}

		if res, ok := in.Resolutions[rec.FieldID]; ok {
			rec.Provenance = res.Provenance
			rec.Yw = res.Series.Value(o.Year)
		}

		if rec.YHF != nil && rec.YTEx != nil {
			rec.ResourceGap = model.Float(*rec.YHF - *rec.YTEx)
		}

		if yw := rec.Yw; yw != nil {
			rec.TotalGap = model.Float(*yw - o.Ya)
			rec.ClosurePct = model.Float(100 * o.Ya / *yw)
			if rec.YHF != nil {
				rec.TechnologyGap = model.Float(*yw - *rec.YHF)
				rec.TechnologyGapPct = model.Float(100 - 100**rec.YHF / *yw)
			}
			if rec.YTEx != nil {
				rec.EfficiencyGapPct = model.Float(100**rec.YTEx / *yw - *rec.ClosurePct)
				if rec.YHF != nil {
					rec.ResourceGapPct = model.Float(100**rec.YHF / *yw - 100**rec.YTEx / *yw)
				}
			}
		}

		if rec.Complete() {
			complete++
		}
		records = append(records, rec)
	}

	zap.L().Info("decompose: gap records built",
		zap.Int("records", len(records)),
		zap.Int("complete", complete),
	)
	return records, nil
}
