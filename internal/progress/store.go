// Package progress caches judged courses by fingerprint so an interrupted run
// can resume. Entries are write-once: a key that exists is never overwritten.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

// Outcome is the comparison result stored alongside the verdict.
type Outcome struct {
	SystemScore   domain.Score         `json:"systemScore"`
	SystemAction  domain.Action        `json:"systemAction"`
	AgreementType domain.AgreementType `json:"agreementType"`
	Agreement     bool                 `json:"agreement"`
}

type Entry struct {
	Fingerprint string              `json:"fingerprint"`
	QueryLogID  string              `json:"queryLogId"`
	SubjectCode string              `json:"subjectCode"`
	Verdict     domain.JudgeVerdict `json:"verdict"`
	Outcome     Outcome             `json:"outcome"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NewEntry captures the judge side and the outcome of one compared course.
func NewEntry(fingerprint, queryLogID string, rec domain.ComparisonRecord, now time.Time) *Entry {
	return &Entry{
		Fingerprint: fingerprint,
		QueryLogID:  queryLogID,
		SubjectCode: rec.SubjectCode,
		Verdict: domain.JudgeVerdict{
			Code:    rec.SubjectCode,
			Verdict: rec.Judge.Verdict,
			Reason:  rec.Judge.Reason,
		},
		Outcome: Outcome{
			SystemScore:   rec.System.Score,
			SystemAction:  rec.System.Action,
			AgreementType: rec.AgreementType,
			Agreement:     rec.Agreement,
		},
		Timestamp: now.UTC(),
	}
}

type Store interface {
	// Get returns the entry for fingerprint. ok is false when absent.
	Get(ctx context.Context, fingerprint string) (entry *Entry, ok bool, err error)
	// PutIfAbsent stores e unless its fingerprint already exists and reports
	// whether it was written.
	PutIfAbsent(ctx context.Context, e *Entry) (bool, error)
	// List returns every entry ordered by fingerprint.
	List(ctx context.Context) ([]*Entry, error)
	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.ProgressConfig, redisCfg *config.RedisConfig) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "redis":
		return OpenRedisStore(ctx, redisCfg, cfg.KeyPrefix)
	default:
		bc := DefaultBadgerConfig()
		bc.Path = cfg.Path
		return OpenBadgerStore(ctx, bc)
	}
}

func validateEntry(e *Entry) error {
	if e == nil || e.Fingerprint == "" {
		return fmt.Errorf("progress entry without fingerprint")
	}
	return nil
}
