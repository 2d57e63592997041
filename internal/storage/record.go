package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/worker"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type Run struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    *time.Time        `json:"finishedAt,omitempty"`
	SampleCount   int               `json:"sampleCount"`
	FailureCount  int               `json:"failureCount"`
	SkippedCount  int               `json:"skippedCount"`
	CachedCourses int               `json:"cachedCourses"`
	JudgedCourses int               `json:"judgedCourses"`
	TokenUsage    domain.TokenUsage `json:"tokenUsage"`
}

// RecordRepo stores runs and their sample records. It satisfies
// worker.RecordSink.
type RecordRepo struct {
	db  *PostgresDB
	now func() time.Time
}

func NewRecordRepo(db *PostgresDB) *RecordRepo {
	return &RecordRepo{db: db, now: time.Now}
}

var _ worker.RecordSink = (*RecordRepo)(nil)

// CreateRun registers a run. Registering an existing run is a no-op so a
// resumed run keeps its original start time.
func (r *RecordRepo) CreateRun(ctx context.Context, runID string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO eval_runs (id, status, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, runID, RunStatusRunning, r.now())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the totals of a finished run.
func (r *RecordRepo) FinishRun(ctx context.Context, res *worker.RunResult, runErr error) error {
	status := RunStatusCompleted
	if runErr != nil {
		status = RunStatusFailed
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE eval_runs SET
			status = $2, finished_at = $3,
			sample_count = $4, failure_count = $5, skipped_count = $6,
			cached_courses = $7, judged_courses = $8,
			prompt_tokens = $9, completion_tokens = $10, total_tokens = $11,
			estimated_cost_usd = $12
		WHERE id = $1
	`, res.RunID, status, r.now(),
		len(res.Records), len(res.Failures), res.Skipped,
		res.CachedCourses, res.JudgedCourses,
		res.TokenUsage.PromptTokens, res.TokenUsage.CompletionTokens, res.TokenUsage.TotalTokens,
		res.TokenUsage.EstimatedCostUSD)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: not registered", res.RunID)
	}
	return nil
}

// SaveRecord stores one sample record at its input position. Records are
// immutable: saving a sample twice for the same run keeps the first copy.
func (r *RecordRepo) SaveRecord(ctx context.Context, runID string, ordinal int, rec domain.SampleEvaluationRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, insertRecordSQL,
		uuid.New().String(), runID, ordinal, rec.QueryLogID, rec.Question, recordJSON, r.now())
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

const insertRecordSQL = `
	INSERT INTO eval_sample_records (id, run_id, ordinal, query_log_id, question, record, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (run_id, query_log_id) DO NOTHING
`

// BatchSender is satisfied by both the pool and a transaction.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// SaveRecords stores many records in one batch through s, numbering them in
// slice order.
func (r *RecordRepo) SaveRecords(ctx context.Context, s BatchSender, runID string, recs []domain.SampleEvaluationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch, err := r.recordBatch(runID, recs)
	if err != nil {
		return err
	}
	return sendBatch(ctx, s.SendBatch(ctx, batch), batch.Len())
}

func (r *RecordRepo) recordBatch(runID string, recs []domain.SampleEvaluationRecord) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	now := r.now()
	for i, rec := range recs {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record %s: %w", rec.QueryLogID, err)
		}
		batch.Queue(insertRecordSQL,
			uuid.New().String(), runID, i, rec.QueryLogID, rec.Question, recordJSON, now)
	}
	return batch, nil
}

func sendBatch(ctx context.Context, results pgx.BatchResults, n int) error {
	defer results.Close()
	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return results.Close()
}

// LoadRecords returns the records of a run in input order.
func (r *RecordRepo) LoadRecords(ctx context.Context, runID string) ([]domain.SampleEvaluationRecord, error) {
	return loadRecords(ctx, r.db.Pool, runID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadRecords(ctx context.Context, q querier, runID string) ([]domain.SampleEvaluationRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT record FROM eval_sample_records
		WHERE run_id = $1
		ORDER BY ordinal, query_log_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []domain.SampleEvaluationRecord{}
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var rec domain.SampleEvaluationRecord
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return records, nil
}

// GetRun returns the run or pgx.ErrNoRows wrapped.
func (r *RecordRepo) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, status, started_at, finished_at,
			sample_count, failure_count, skipped_count, cached_courses, judged_courses,
			prompt_tokens, completion_tokens, total_tokens, estimated_cost_usd
		FROM eval_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.SampleCount, &run.FailureCount, &run.SkippedCount, &run.CachedCourses, &run.JudgedCourses,
		&run.TokenUsage.PromptTokens, &run.TokenUsage.CompletionTokens, &run.TokenUsage.TotalTokens,
		&run.TokenUsage.EstimatedCostUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}
