package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/chainguard-dev/clog"
	"github.com/jackc/pgx/v5"
)

// ReportRepo stores report bundles. Records live in eval_sample_records and
// the derived reports in eval_reports.
type ReportRepo struct {
	db      *PostgresDB
	records *RecordRepo
}

func NewReportRepo(db *PostgresDB) *ReportRepo {
	return &ReportRepo{db: db, records: NewRecordRepo(db)}
}

// Save stores the bundle in one transaction. Records already stored for the
// run are kept; the derived reports are replaced.
func (r *ReportRepo) Save(ctx context.Context, b *report.Bundle) (string, error) {
	metricsJSON, err := json.Marshal(b.Metrics)
	if err != nil {
		return "", fmt.Errorf("marshal metrics: %w", err)
	}
	disagreementsJSON, err := json.Marshal(b.Disagreements)
	if err != nil {
		return "", fmt.Errorf("marshal disagreements: %w", err)
	}
	deltaJSON, err := json.Marshal(b.ExploratoryDelta)
	if err != nil {
		return "", fmt.Errorf("marshal exploratory delta: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO eval_runs (id, status, started_at, sample_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, b.RunID, RunStatusCompleted, b.GeneratedAt, len(b.Records)); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := r.records.SaveRecords(ctx, tx, b.RunID, b.Records); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO eval_reports (run_id, generated_at, metrics, disagreements, exploratory_delta)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			metrics = EXCLUDED.metrics,
			disagreements = EXCLUDED.disagreements,
			exploratory_delta = EXCLUDED.exploratory_delta
	`, b.RunID, b.GeneratedAt, metricsJSON, disagreementsJSON, deltaJSON); err != nil {
		return "", fmt.Errorf("upsert report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	clog.FromContext(ctx).With("run_id", b.RunID).Infof("Stored reports for %d samples", len(b.Records))
	return "eval_reports/" + b.RunID, nil
}

// Load returns the stored bundle of a run, or report.ErrRunNotFound.
func (r *ReportRepo) Load(ctx context.Context, runID string) (*report.Bundle, error) {
	b := &report.Bundle{RunID: runID}
	var metricsJSON, disagreementsJSON, deltaJSON []byte

	err := r.db.Pool.QueryRow(ctx, `
		SELECT generated_at, metrics, disagreements, exploratory_delta
		FROM eval_reports
		WHERE run_id = $1
	`, runID).Scan(&b.GeneratedAt, &metricsJSON, &disagreementsJSON, &deltaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, report.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}

	if err := json.Unmarshal(metricsJSON, &b.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(disagreementsJSON, &b.Disagreements); err != nil {
		return nil, fmt.Errorf("unmarshal disagreements: %w", err)
	}
	if err := json.Unmarshal(deltaJSON, &b.ExploratoryDelta); err != nil {
		return nil, fmt.Errorf("unmarshal exploratory delta: %w", err)
	}

	records, err := loadRecords(ctx, r.db.Pool, runID)
	if err != nil {
		return nil, err
	}
	b.Records = records
	return b, nil
}

// ListRuns returns the ids of runs with stored reports, sorted.
func (r *ReportRepo) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT run_id FROM eval_reports ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return runs, nil
}
