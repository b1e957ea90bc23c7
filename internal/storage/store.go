// Package storage keeps the history of committee runs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/pkg/sqlite"
)

// ErrNotConfigured means the config names no history database.
var ErrNotConfigured = errors.New("history_db is not configured")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL,
    symbols TEXT NOT NULL DEFAULT '',
    stage TEXT NOT NULL,
    action TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    risk_adjusted REAL NOT NULL DEFAULT 0,
    risk_score REAL NOT NULL DEFAULT 0,
    iterations INTEGER NOT NULL,
    core_rounds INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    result_json TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_transitions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    from_stage TEXT NOT NULL,
    to_stage TEXT NOT NULL,
    iter INTEGER NOT NULL,
    UNIQUE(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

type Store struct {
	db *sql.DB
}

// RunRecord is the row summary of one run.
type RunRecord struct {
	ID           string       `json:"id"`
	Subject      string       `json:"subject"`
	Symbols      string       `json:"symbols"`
	Stage        models.Stage `json:"stage"`
	Action       string       `json:"action"`
	Confidence   float64      `json:"confidence"`
	RiskAdjusted float64      `json:"risk_adjusted"`
	RiskScore    float64      `json:"risk_score"`
	Iterations   int          `json:"iterations"`
	CoreRounds   int          `json:"core_rounds"`
	DurationMS   int64        `json:"duration_ms"`
}

type RunWithMeta struct {
	RunRecord
	RowID     int64  `json:"row_id"`
	CreatedAt string `json:"created_at"`
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenFromConfig opens the history database named by cfg.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.HistoryDB) == "" {
		return nil, ErrNotConfigured
	}
	return Open(cfg.HistoryDB)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordFromResult summarises res for the runs table.
func RecordFromResult(res *graph.Result) RunRecord {
	rec := RunRecord{
		ID:         res.RequestID,
		Stage:      res.TerminalStage,
		Iterations: res.Iterations,
		CoreRounds: res.CoreRounds,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Request != nil {
		rec.Subject = res.Request.Topic
		rec.Symbols = strings.Join(res.Request.Symbols, ",")
	}
	if res.Decision != nil {
		rec.Action = string(res.Decision.Action)
		rec.Confidence = res.Decision.Confidence
	}
	if res.Enhanced != nil {
		rec.RiskAdjusted = res.Enhanced.RiskAdjustedConfidence
	}
	if res.Risk != nil {
		rec.RiskScore = res.Risk.OverallRiskScore
	}
	return rec
}

// SaveRun stores res with its stage transitions. Saving the same run twice replaces it.
func (s *Store) SaveRun(ctx context.Context, res *graph.Result) error {
	if res == nil || strings.TrimSpace(res.RequestID) == "" {
		return fmt.Errorf("run id is required")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	rec := RecordFromResult(res)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, subject, symbols, stage, action, confidence, risk_adjusted, risk_score,
    iterations, core_rounds, duration_ms, result_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.Subject, rec.Symbols, string(rec.Stage), rec.Action, rec.Confidence, rec.RiskAdjusted,
		rec.RiskScore, rec.Iterations, rec.CoreRounds, rec.DurationMS, string(payload))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, tr := range res.Transitions {
		_, err := tx.ExecContext(ctx, `
INSERT INTO run_transitions (run_id, seq, from_stage, to_stage, iter)
VALUES (?, ?, ?, ?, ?)
`, rec.ID, i+1, string(tr.From), string(tr.To), tr.Iter)
		if err != nil {
			return fmt.Errorf("insert transition %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `rowid, id, subject, symbols, stage, action, confidence, risk_adjusted, risk_score,
    iterations, core_rounds, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunWithMeta, error) {
	var rec RunWithMeta
	var stage string
	err := row.Scan(&rec.RowID, &rec.ID, &rec.Subject, &rec.Symbols, &stage, &rec.Action, &rec.Confidence,
		&rec.RiskAdjusted, &rec.RiskScore, &rec.Iterations, &rec.CoreRounds, &rec.DurationMS, &rec.CreatedAt)
	rec.Stage = models.Stage(stage)
	return rec, err
}

// ListRuns 按 rowid 倒序分页列出运行记录
func (s *Store) ListRuns(ctx context.Context, cursor int64, limit int) ([]RunWithMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM runs
WHERE (? = 0 OR rowid < ?)
ORDER BY rowid DESC
LIMIT ?
`, cursor, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithMeta
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun returns nil, nil when no run has the id.
func (s *Store) GetRun(ctx context.Context, id string) (*RunWithMeta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	rec, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &rec, nil
}

// LoadResult decodes the full stored result of a run.
func (s *Store) LoadResult(ctx context.Context, id string) (*graph.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load run: %w", err)
	}
	var res graph.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &res, nil
}

func (s *Store) ListTransitions(ctx context.Context, runID string) ([]models.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT from_stage, to_stage, iter
FROM run_transitions
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var from, to string
		var tr models.Transition
		if err := rows.Scan(&from, &to, &tr.Iter); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From, tr.To = models.Stage(from), models.Stage(to)
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Prune deletes runs older than before and reports how many went.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
