// Package store persists analysis runs, gap records, and aggregate
// summaries behind a driver-neutral interface.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sells-group/yieldgap-cli/internal/decompose"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run is one persisted analysis run. Summary holds the stage reports as JSON.
type Run struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is implemented by the SQLite and Postgres backends.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, runID string) (*Run, error)
	CompleteRun(ctx context.Context, runID, status string, summary json.RawMessage) error
	SaveRecords(ctx context.Context, runID string, records []*model.GapRecord) error
	SaveAggregates(ctx context.Context, runID string, aggregates []decompose.GroupSummary) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// recordColumns is the shared column order for gap record inserts.
var recordColumns = []string{
	"run_id", "field_id", "household_id", "year", "stratum",
	"yield_class", "yw_provenance",
	"ya", "technical_efficiency", "y_tex", "y_hf", "yw",
	"total_gap", "efficiency_gap", "resource_gap", "technology_gap",
	"closure_pct", "efficiency_gap_pct", "resource_gap_pct", "technology_gap_pct",
}

func recordValues(runID string, r *model.GapRecord) []any {
	return []any{
		runID, r.FieldID, r.HouseholdID, r.Year, r.Stratum,
		string(r.Class), string(r.Provenance),
		r.Ya, r.Efficiency, r.YTEx, r.YHF, r.Yw,
		r.TotalGap, r.EfficiencyGap, r.ResourceGap, r.TechnologyGap,
		r.ClosurePct, r.EfficiencyGapPct, r.ResourceGapPct, r.TechnologyGapPct,
	}
}
