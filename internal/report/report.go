// Package report derives the metrics and disagreement reports from stored
// sample records and persists them.
package report

import (
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/disagreement"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/meta"
)

// Bundle is every report of one run. All reports are pure functions of
// Records and can be rebuilt at any time.
type Bundle struct {
	RunID            string                          `json:"runId"`
	GeneratedAt      time.Time                       `json:"generatedAt"`
	Metrics          *domain.EvaluationMetrics       `json:"metrics"`
	Disagreements    *domain.DisagreementReport      `json:"disagreements"`
	ExploratoryDelta *domain.ExploratoryDeltaReport  `json:"exploratoryDelta"`
	Records          []domain.SampleEvaluationRecord `json:"records"`
}

type Builder struct {
	calculator *meta.Calculator
	analyzer   *disagreement.Analyzer
	now        func() time.Time
}

// NewBuilder classifies disagreements with rules, or the default rules when
// rules is empty.
func NewBuilder(rules []disagreement.Rule) *Builder {
	return &Builder{
		calculator: meta.NewCalculator(),
		analyzer:   disagreement.NewAnalyzer(rules),
		now:        time.Now,
	}
}

func (b *Builder) Build(runID string, records []domain.SampleEvaluationRecord) *Bundle {
	if records == nil {
		records = []domain.SampleEvaluationRecord{}
	}
	return &Bundle{
		RunID:            runID,
		GeneratedAt:      b.now().UTC(),
		Metrics:          b.calculator.Calculate(records),
		Disagreements:    b.analyzer.AnalyzeDisagreements(records),
		ExploratoryDelta: b.analyzer.AnalyzeExploratoryDelta(records),
		Records:          records,
	}
}

// Build uses the default disagreement rules.
func Build(runID string, records []domain.SampleEvaluationRecord) *Bundle {
	return NewBuilder(nil).Build(runID, records)
}
