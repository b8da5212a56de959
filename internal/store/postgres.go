package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/yieldgap-cli/internal/db"
	"github.com/sells-group/yieldgap-cli/internal/decompose"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. Gap record batches go in via
// the COPY protocol.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gap_records (
	run_id               TEXT NOT NULL REFERENCES runs(id),
	field_id             TEXT NOT NULL,
	household_id         TEXT NOT NULL,
	year                 INTEGER NOT NULL,
	stratum              TEXT NOT NULL,
	yield_class          TEXT NOT NULL,
	yw_provenance        TEXT NOT NULL,
	ya                   DOUBLE PRECISION NOT NULL,
	technical_efficiency DOUBLE PRECISION,
	y_tex                DOUBLE PRECISION,
	y_hf                 DOUBLE PRECISION,
	yw                   DOUBLE PRECISION,
	total_gap            DOUBLE PRECISION,
	efficiency_gap       DOUBLE PRECISION,
	resource_gap         DOUBLE PRECISION,
	technology_gap       DOUBLE PRECISION,
	closure_pct          DOUBLE PRECISION,
	efficiency_gap_pct   DOUBLE PRECISION,
	resource_gap_pct     DOUBLE PRECISION,
	technology_gap_pct   DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS aggregates (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	group_key TEXT NOT NULL,
	n         INTEGER NOT NULL,
	payload   JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gap_records_run_id ON gap_records(run_id);
CREATE INDEX IF NOT EXISTS idx_gap_records_stratum ON gap_records(run_id, stratum);
CREATE INDEX IF NOT EXISTS idx_aggregates_run_id ON aggregates(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, runID string) (*Run, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		runID, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &Run{ID: runID, Status: RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID, status string, summary json.RawMessage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		status, summary, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) SaveRecords(ctx context.Context, runID string, records []*model.GapRecord) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = recordValues(runID, r)
	}
	n, err := db.CopyFrom(ctx, s.pool, "gap_records", recordColumns, rows)
	if err != nil {
		return eris.Wrapf(err, "postgres: save %d records", len(records))
	}
	if int(n) != len(records) {
		return eris.Errorf("postgres: copied %d of %d records", n, len(records))
	}
	return nil
}

func (s *PostgresStore) SaveAggregates(ctx context.Context, runID string, aggregates []decompose.GroupSummary) error {
	for _, a := range aggregates {
		payload, err := json.Marshal(a)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal aggregate")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO aggregates (run_id, group_key, n, payload) VALUES ($1, $2, $3, $4)`,
			runID, a.Group, a.Count, payload,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert aggregate %s", a.Group)
		}
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, COALESCE(summary::text, ''), created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summary string
		if err := rows.Scan(&r.ID, &r.Status, &summary, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if summary != "" {
			r.Summary = json.RawMessage(summary)
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
