package decompose

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/yieldgap-cli/internal/model"
)

// GroupSummary is the mean of every gap component over one group, absolute
// and relative, with missing values ignored. Count is the group size;
// per-component means are nil when no member had the component defined.
type GroupSummary struct {
	Group string `csv:"group" json:"group"`
	Count int    `csv:"count" json:"count"`

	MeanYa   *float64 `csv:"mean_ya,omitempty" json:"mean_ya,omitempty"`
	MeanYTEx *float64 `csv:"mean_y_tex,omitempty" json:"mean_y_tex,omitempty"`
	MeanYHF  *float64 `csv:"mean_y_hf,omitempty" json:"mean_y_hf,omitempty"`
	MeanYw   *float64 `csv:"mean_yw,omitempty" json:"mean_yw,omitempty"`

	MeanTotalGap      *float64 `csv:"mean_total_gap,omitempty" json:"mean_total_gap,omitempty"`
	MeanEfficiencyGap *float64 `csv:"mean_efficiency_gap,omitempty" json:"mean_efficiency_gap,omitempty"`
	MeanResourceGap   *float64 `csv:"mean_resource_gap,omitempty" json:"mean_resource_gap,omitempty"`
	MeanTechnologyGap *float64 `csv:"mean_technology_gap,omitempty" json:"mean_technology_gap,omitempty"`

	MeanClosurePct       *float64 `csv:"mean_closure_pct,omitempty" json:"mean_closure_pct,omitempty"`
	MeanEfficiencyGapPct *float64 `csv:"mean_efficiency_gap_pct,omitempty" json:"mean_efficiency_gap_pct,omitempty"`
	MeanResourceGapPct   *float64 `csv:"mean_resource_gap_pct,omitempty" json:"mean_resource_gap_pct,omitempty"`
	MeanTechnologyGapPct *float64 `csv:"mean_technology_gap_pct,omitempty" json:"mean_technology_gap_pct,omitempty"`
}

// GroupKey builds a grouping key from record tags and the special names
// "year" and "stratum". Unknown tag values group under an empty label so no
// record is silently excluded.
func GroupKey(r *model.GapRecord, by []string) string {
	parts := make([]string, len(by))
	for i, b := range by {
		switch b {
		case "year":
			parts[i] = fmt.Sprintf("year=%d", r.Year)
		case "stratum":
			parts[i] = "stratum=" + r.Stratum
		default:
			parts[i] = b + "=" + r.Tags[b]
		}
	}
	return strings.Join(parts, "|")
}

// Aggregate groups gap records by the given keys and averages each component
// per group, skipping undefined values. Output is sorted by group key for
// deterministic rendering.
func Aggregate(records []*model.GapRecord, by []string) []GroupSummary {
	type bucket struct {
		count int
		cols  map[string][]float64
	}
	buckets := make(map[string]*bucket)

	add := func(b *bucket, col string, v *float64) {
		if v != nil {
			b.cols[col] = append(b.cols[col], *v)
		}
	}

	for _, r := range records {
		key := GroupKey(r, by)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{cols: make(map[string][]float64)}
			buckets[key] = b
		}
		b.count++
		b.cols["ya"] = append(b.cols["ya"], r.Ya)
		add(b, "y_tex", r.YTEx)
		add(b, "y_hf", r.YHF)
		add(b, "yw", r.Yw)
		add(b, "total_gap", r.TotalGap)
		add(b, "efficiency_gap", r.EfficiencyGap)
		add(b, "resource_gap", r.ResourceGap)
		add(b, "technology_gap", r.TechnologyGap)
		add(b, "closure_pct", r.ClosurePct)
		add(b, "efficiency_gap_pct", r.EfficiencyGapPct)
		add(b, "resource_gap_pct", r.ResourceGapPct)
		add(b, "technology_gap_pct", r.TechnologyGapPct)
	}

	mean := func(b *bucket, col string) *float64 {
		vs := b.cols[col]
		if len(vs) == 0 {
			return nil
		}
		return model.Float(stat.Mean(vs, nil))
	}

	out := make([]GroupSummary, 0, len(buckets))
	for key, b := range buckets {
		out = append(out, GroupSummary{
			Group:                key,
			Count:                b.count,
			MeanYa:               mean(b, "ya"),
			MeanYTEx:             mean(b, "y_tex"),
			MeanYHF:              mean(b, "y_hf"),
			MeanYw:               mean(b, "yw"),
			MeanTotalGap:         mean(b, "total_gap"),
			MeanEfficiencyGap:    mean(b, "efficiency_gap"),
			MeanResourceGap:      mean(b, "resource_gap"),
			MeanTechnologyGap:    mean(b, "technology_gap"),
			MeanClosurePct:       mean(b, "closure_pct"),
			MeanEfficiencyGapPct: mean(b, "efficiency_gap_pct"),
			MeanResourceGapPct:   mean(b, "resource_gap_pct"),
			MeanTechnologyGapPct: mean(b, "technology_gap_pct"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}
