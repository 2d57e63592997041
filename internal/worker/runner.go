// Package worker drives an evaluation run: it judges every sample with
// bounded concurrency, compares the verdicts and caches them by fingerprint
// so an interrupted run resumes where it stopped.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/comparison"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/evaluator"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/fingerprint"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/llm"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/progress"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 6

// RecordSink receives every completed sample record, for example to store it
// in the database. ordinal is the position of the sample in the run input.
type RecordSink interface {
	SaveRecord(ctx context.Context, runID string, ordinal int, rec domain.SampleEvaluationRecord) error
}

type Options struct {
	// RunID names the run. A random UUID is used when empty.
	RunID       string
	Concurrency int
	FailFast    bool
	Retry       RetryConfig
	Sink        RecordSink
	// IsRetryable classifies judge errors. Defaults to llm.IsRetryable.
	IsRetryable func(error) bool
	Now         func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Concurrency: DefaultConcurrency,
		Retry:       DefaultRetryConfig(),
	}
}

// SampleError is a sample that could not be evaluated.
type SampleError struct {
	QueryLogID string
	Err        error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.QueryLogID, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

type RunResult struct {
	RunID string
	// Records holds the successful samples in input order.
	Records       []domain.SampleEvaluationRecord
	Failures      []SampleError
	Skipped       int
	CachedCourses int
	JudgedCourses int
	TokenUsage    domain.TokenUsage
}

type Runner struct {
	judge  evaluator.Judge
	store  progress.Store
	engine *comparison.Engine
	opts   Options
}

func NewRunner(judge evaluator.Judge, store progress.Store, opts Options) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.IsRetryable == nil {
		opts.IsRetryable = llm.IsRetryable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		judge:  judge,
		store:  store,
		engine: comparison.NewEngine(),
		opts:   opts,
	}
}

type sampleOutcome struct {
	record domain.SampleEvaluationRecord
	cached int
	judged int
	usage  domain.TokenUsage
}

// Run evaluates samples. A failed sample is recorded in RunResult.Failures
// and the run continues, unless FailFast is set, in which case the first
// failure cancels the remaining samples and is returned. Progress written
// before a failure stays valid for the next run.
func (r *Runner) Run(ctx context.Context, samples []domain.EvaluationSample) (*RunResult, error) {
	result := &RunResult{RunID: r.opts.RunID}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	log := clog.FromContext(ctx).With("run_id", result.RunID)
	ctx = clog.WithLogger(ctx, log)

	log.Infof("Starting evaluation of %d samples with concurrency=%d", len(samples), r.opts.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	workCtx := ctx
	if r.opts.FailFast {
		workCtx = gctx
	}

	var mu sync.Mutex
	outcomes := make([]*sampleOutcome, len(samples))

	for i, sample := range samples {
		g.Go(func() error {
			if workCtx.Err() != nil {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				samplesTotal.WithLabelValues("skipped").Inc()
				return nil
			}

			out, err := r.evaluateSample(workCtx, result.RunID, i, sample)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				samplesTotal.WithLabelValues("failed").Inc()
				result.Failures = append(result.Failures, SampleError{QueryLogID: sample.QueryLogID, Err: err})
				clog.FromContext(workCtx).With("query_log_id", sample.QueryLogID).
					Errorf("Sample evaluation failed: %v", err)
				if r.opts.FailFast {
					return &SampleError{QueryLogID: sample.QueryLogID, Err: err}
				}
				return nil
			}

			samplesTotal.WithLabelValues("succeeded").Inc()
			outcomes[i] = out
			return nil
		})
	}
	runErr := g.Wait()

	for _, out := range outcomes {
		if out == nil {
			continue
		}
		result.Records = append(result.Records, out.record)
		result.CachedCourses += out.cached
		result.JudgedCourses += out.judged
		result.TokenUsage = result.TokenUsage.Add(out.usage)
	}

	log.With("succeeded", len(result.Records)).
		With("failed", len(result.Failures)).
		With("skipped", result.Skipped).
		With("cached_courses", result.CachedCourses).
		With("judged_courses", result.JudgedCourses).
		With("total_tokens", result.TokenUsage.TotalTokens).
		Info("Evaluation finished")

	if runErr != nil {
		return result, runErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) evaluateSample(ctx context.Context, runID string, ordinal int, sample domain.EvaluationSample) (*sampleOutcome, error) {
	fingerprints := make([]string, len(sample.Courses))
	cached := make(map[string]domain.JudgeVerdict)
	var pending []domain.AggregatedCourse

	for i, c := range sample.Courses {
		fp := fingerprint.Compute(sample.QueryLogID, sample.Question, c.SubjectCode)
		fingerprints[i] = fp

		entry, ok, err := r.store.Get(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		if ok {
			v := entry.Verdict
			v.Code = c.SubjectCode
			cached[c.SubjectCode] = v
			continue
		}
		pending = append(pending, c)
	}

	var verdicts domain.JudgeResult
	if len(pending) > 0 {
		start := time.Now()
		judged, err := RetryWithBackoff(ctx, r.opts.Retry, "judge sample "+sample.QueryLogID, r.opts.IsRetryable,
			func() (domain.JudgeResult, error) {
				return r.judge.Evaluate(ctx, sample.Question, pending)
			})
		judgeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("judge: %w", err)
		}

		for _, v := range judged.Verdicts {
			// Cached verdicts are final.
			if _, ok := cached[v.Code]; ok {
				continue
			}
			verdicts.Verdicts = append(verdicts.Verdicts, v)
		}
		verdicts.TokenUsage = judged.TokenUsage
	}
	for _, c := range sample.Courses {
		if v, ok := cached[c.SubjectCode]; ok {
			verdicts.Verdicts = append(verdicts.Verdicts, v)
		}
	}

	record, err := r.engine.Compare(ctx, sample, verdicts)
	if err != nil {
		return nil, err
	}

	now := r.opts.Now()
	for i, course := range record.Courses {
		agreementsTotal.WithLabelValues(string(course.AgreementType)).Inc()
		if _, ok := cached[course.SubjectCode]; ok {
			coursesTotal.WithLabelValues("cached").Inc()
			continue
		}
		coursesTotal.WithLabelValues("judged").Inc()
		if _, err := r.store.PutIfAbsent(ctx, progress.NewEntry(fingerprints[i], sample.QueryLogID, course, now)); err != nil {
			return nil, fmt.Errorf("save progress: %w", err)
		}
	}

	if r.opts.Sink != nil {
		if err := r.opts.Sink.SaveRecord(ctx, runID, ordinal, record); err != nil {
			return nil, fmt.Errorf("save record: %w", err)
		}
	}

	return &sampleOutcome{
		record: record,
		cached: len(cached),
		judged: len(pending),
		usage:  verdicts.TokenUsage,
	}, nil
}
