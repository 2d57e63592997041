package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/chainguard-dev/clog"
)

const (
	MetricsFile          = "metrics.json"
	DisagreementsFile    = "disagreements.json"
	ExploratoryDeltaFile = "exploratory-delta.json"
	RecordsFile          = "records.json"
)

var (
	// ErrRunNotFound is returned when a run has no stored reports.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRunID is returned for run ids that are not a single path element.
	ErrInvalidRunID = errors.New("invalid run id")
)

// Dir stores bundles as <root>/<runID>/*.json.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) runDir(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%q: %w", runID, ErrInvalidRunID)
	}
	return filepath.Join(d.root, runID), nil
}

// Save writes every report of b and returns the run directory.
func (d *Dir) Save(ctx context.Context, b *Bundle) (string, error) {
	dir, err := d.runDir(b.RunID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	files := []struct {
		name string
		v    any
	}{
		{MetricsFile, b.Metrics},
		{DisagreementsFile, b.Disagreements},
		{ExploratoryDeltaFile, b.ExploratoryDelta},
		{RecordsFile, b.Records},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(dir, f.name), f.v); err != nil {
			return "", err
		}
	}

	clog.FromContext(ctx).With("run_id", b.RunID).With("dir", dir).Info("Reports written")
	return dir, nil
}

// writeJSON writes through a temp file so readers never see a partial report.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ListRuns returns the run ids that have stored records, sorted.
func (d *Dir) ListRuns(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.root, e.Name(), RecordsFile)); err == nil {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Load reads a stored bundle.
func (d *Dir) Load(ctx context.Context, runID string) (*Bundle, error) {
	dir, err := d.runDir(runID)
	if err != nil {
		return nil, err
	}

	b := &Bundle{RunID: runID}
	files := []struct {
		name string
		v    any
	}{
		{MetricsFile, &b.Metrics},
		{DisagreementsFile, &b.Disagreements},
		{ExploratoryDeltaFile, &b.ExploratoryDelta},
		{RecordsFile, &b.Records},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(dir, f.name), f.v); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
			}
			return nil, err
		}
	}

	if info, err := os.Stat(filepath.Join(dir, MetricsFile)); err == nil {
		b.GeneratedAt = info.ModTime().UTC()
	}
	return b, nil
}

// LoadRecords reads sample records from a records.json file or from a run
// directory containing one.
func LoadRecords(path string) ([]domain.SampleEvaluationRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if info.IsDir() {
		path = filepath.Join(path, RecordsFile)
	}

	var records []domain.SampleEvaluationRecord
	if err := readJSON(path, &records); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return records, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}
