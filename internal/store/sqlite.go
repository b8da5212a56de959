package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/yieldgap-cli/internal/decompose"
	"github.com/sells-group/yieldgap-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS gap_records (
	run_id               TEXT NOT NULL REFERENCES runs(id),
	field_id             TEXT NOT NULL,
	household_id         TEXT NOT NULL,
	year                 INTEGER NOT NULL,
	stratum              TEXT NOT NULL,
	yield_class          TEXT NOT NULL,
	yw_provenance        TEXT NOT NULL,
	ya                   REAL NOT NULL,
	technical_efficiency REAL,
	y_tex                REAL,
	y_hf                 REAL,
	yw                   REAL,
	total_gap            REAL,
	efficiency_gap       REAL,
	resource_gap         REAL,
	technology_gap       REAL,
	closure_pct          REAL,
	efficiency_gap_pct   REAL,
	resource_gap_pct     REAL,
	technology_gap_pct   REAL
);

CREATE TABLE IF NOT EXISTS aggregates (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	group_key TEXT NOT NULL,
	n         INTEGER NOT NULL,
	payload   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gap_records_run_id ON gap_records(run_id);
CREATE INDEX IF NOT EXISTS idx_gap_records_stratum ON gap_records(run_id, stratum);
CREATE INDEX IF NOT EXISTS idx_aggregates_run_id ON aggregates(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, runID string) (*Run, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		runID, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &Run{ID: runID, Status: RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID, status string, summary json.RawMessage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		status, string(summary), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) SaveRecords(ctx context.Context, runID string, records []*model.GapRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(recordColumns)), ",")
	query := fmt.Sprintf(`INSERT INTO gap_records (%s) VALUES (%s)`,
		strings.Join(recordColumns, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, recordValues(runID, r)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s/%d", r.FieldID, r.Year)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit records")
}

func (s *SQLiteStore) SaveAggregates(ctx context.Context, runID string, aggregates []decompose.GroupSummary) error {
	for _, a := range aggregates {
		payload, err := json.Marshal(a)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal aggregate")
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO aggregates (run_id, group_key, n, payload) VALUES (?, ?, ?, ?)`,
			runID, a.Group, a.Count, string(payload),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert aggregate %s", a.Group)
		}
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, COALESCE(summary, ''), created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var summary string
		if err := rows.Scan(&r.ID, &r.Status, &summary, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if summary != "" {
			r.Summary = json.RawMessage(summary)
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
