// Package testset reads recorded filter runs from disk.
package testset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/chainguard-dev/clog"
)

// ValidationError lists every problem found in a test set.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid test set: %s", strings.Join(e.Problems, "; "))
}

// Load reads a JSON array of test set records from path.
func Load(ctx context.Context, path string) ([]domain.TestSetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open test set: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	records = Dedupe(ctx, records)

	clog.FromContext(ctx).With("path", path).Infof("loaded %d test set records", len(records))
	return records, nil
}

// Dedupe keeps the first record of every queryLogId and logs a warning for
// each later one. Stored records and progress entries are keyed by the id, so
// a second record would be judged but never stored.
func Dedupe(ctx context.Context, records []domain.TestSetRecord) []domain.TestSetRecord {
	seen := make(map[string]int, len(records))
	out := records[:0:0]
	for i, rec := range records {
		if first, ok := seen[rec.QueryLogID]; ok {
			clog.FromContext(ctx).With("query_log_id", rec.QueryLogID).
				Warnf("record %d repeats record %d, skipping it", i, first)
			continue
		}
		seen[rec.QueryLogID] = i
		out = append(out, rec)
	}
	return out
}

func Decode(r io.Reader) ([]domain.TestSetRecord, error) {
	var records []domain.TestSetRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode test set: %w", err)
	}

	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Validate rejects records without an id and courses whose score is outside
// 0-3 or that have no subject code. Empty or absent buckets are allowed, and
// repeated ids are left to Dedupe.
func Validate(records []domain.TestSetRecord) error {
	var problems []string

	for i, rec := range records {
		if rec.QueryLogID == "" {
			problems = append(problems, fmt.Sprintf("record %d: missing queryLogId", i))
		}

		for _, bucket := range rec.Buckets() {
			if bucket == nil {
				continue
			}
			for pair := bucket.Oldest(); pair != nil; pair = pair.Next() {
				for _, c := range pair.Value {
					if c.SubjectCode == "" {
						problems = append(problems, fmt.Sprintf("record %s skill %q: course without subjectCode", rec.QueryLogID, pair.Key))
					}
					if !c.Score.Valid() {
						problems = append(problems, fmt.Sprintf("record %s skill %q: course %s has score %d outside 0-%d",
							rec.QueryLogID, pair.Key, c.SubjectCode, c.Score, domain.MaxScore))
					}
				}
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
