// Package meta measures the relevance filter against the judge: agreement
// rates, confusion matrix, calibration and a score threshold sweep.
package meta

import (
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

type Calculator struct {
	sweep []Threshold
}

func NewCalculator() *Calculator {
	return &Calculator{sweep: DefaultThresholds()}
}

// tally counts comparison records per agreement type.
type tally struct {
	bothKeep         int
	bothDrop         int
	conservativeDrop int
	exploratoryDelta int
}

func (t *tally) add(at domain.AgreementType) {
	switch at {
	case domain.AgreementBothKeep:
		t.bothKeep++
	case domain.AgreementBothDrop:
		t.bothDrop++
	case domain.AgreementConservativeDrop:
		t.conservativeDrop++
	case domain.AgreementExploratoryDelta:
		t.exploratoryDelta++
	}
}

func (t tally) total() int {
	return t.bothKeep + t.bothDrop + t.conservativeDrop + t.exploratoryDelta
}

func (t tally) agreements() int {
	return t.bothKeep + t.bothDrop
}

func (t tally) systemDrops() int {
	return t.bothDrop + t.conservativeDrop
}

func (t tally) systemKeeps() int {
	return t.bothKeep + t.exploratoryDelta
}

func (t tally) agreementRate() domain.Ratio {
	return domain.NewRatio(t.agreements(), t.total())
}

// noiseRemovalEfficiency is the share of system drops the judge endorses.
func (t tally) noiseRemovalEfficiency() domain.Ratio {
	return domain.NewRatio(t.bothDrop, t.systemDrops())
}

// exploratoryRecall is the share of system keeps the judge rejects.
func (t tally) exploratoryRecall() domain.Ratio {
	return domain.NewRatio(t.exploratoryDelta, t.systemKeeps())
}

func (t tally) conservativeDropRate() domain.Ratio {
	return domain.NewRatio(t.conservativeDrop, t.systemDrops())
}

// Calculate aggregates records into global and per-sample statistics.
func (c *Calculator) Calculate(records []domain.SampleEvaluationRecord) *domain.EvaluationMetrics {
	var global tally
	var distribution domain.ScoreDistribution
	var usage domain.TokenUsage
	var courses []domain.ComparisonRecord

	perSample := make([]domain.SampleMetrics, 0, len(records))
	for i, rec := range records {
		var local tally
		for _, course := range rec.Courses {
			local.add(course.AgreementType)
			global.add(course.AgreementType)
			distribution.Add(course.System.Score)
			courses = append(courses, course)
		}
		usage = usage.Add(rec.TokenUsage)

		perSample = append(perSample, domain.SampleMetrics{
			SampleID:               i + 1,
			QueryLogID:             rec.QueryLogID,
			Question:               rec.Question,
			CoursesEvaluated:       local.total(),
			AgreementCount:         local.agreements(),
			DisagreementCount:      local.total() - local.agreements(),
			AgreementRate:          local.agreementRate(),
			NoiseRemovalEfficiency: local.noiseRemovalEfficiency(),
			ExploratoryRecall:      local.exploratoryRecall(),
		})
	}

	return &domain.EvaluationMetrics{
		TotalSamples:            len(records),
		TotalCourses:            global.total(),
		OverallAgreementRate:    global.agreementRate(),
		NoiseRemovalEfficiency:  global.noiseRemovalEfficiency(),
		ExploratoryRecall:       global.exploratoryRecall(),
		ConservativeDropRate:    global.conservativeDropRate(),
		SystemScoreDistribution: distribution,
		ConfusionMatrix:         confusionMatrix(global),
		ScoreVerdictBreakdown:   ScoreVerdictBreakdown(courses),
		PerSampleMetrics:        perSample,
		ThresholdSweep:          Sweep(courses, c.sweep),
		CohenKappa:              cohenKappa(global),
		ScoreVerdictCorrelation: ScoreVerdictCorrelation(courses),
		TokenUsage:              usage,
	}
}

func confusionMatrix(t tally) domain.ConfusionMatrix {
	return domain.ConfusionMatrix{
		Matrix: [2][2]int{
			{t.bothDrop, t.exploratoryDelta},
			{t.conservativeDrop, t.bothKeep},
		},
		Totals: domain.ConfusionTotals{
			SystemDrop: t.systemDrops(),
			SystemKeep: t.systemKeeps(),
			JudgeFail:  t.bothDrop + t.exploratoryDelta,
			JudgePass:  t.conservativeDrop + t.bothKeep,
		},
	}
}
