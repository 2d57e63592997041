package meta

import (
	"fmt"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

// Threshold is a hypothetical "keep if score >= MinScore" rule.
type Threshold struct {
	Label    string
	MinScore domain.Score
}

func DefaultThresholds() []Threshold {
	thresholds := []Threshold{{Label: "keepAll", MinScore: 0}}
	for s := domain.Score(1); s <= domain.MaxScore; s++ {
		thresholds = append(thresholds, Threshold{Label: fmt.Sprintf("score>=%d", s), MinScore: s})
	}
	return thresholds
}

// Sweep scores each threshold against judge PASS as ground truth. Precision
// is kept∩PASS/kept and recall is kept∩PASS/PASS.
func Sweep(courses []domain.ComparisonRecord, thresholds []Threshold) []domain.ThresholdResult {
	totalPass := 0
	for _, c := range courses {
		if c.Judge.Verdict == domain.VerdictPass {
			totalPass++
		}
	}

	results := make([]domain.ThresholdResult, 0, len(thresholds))
	for _, th := range thresholds {
		kept, tp := 0, 0
		for _, c := range courses {
			if c.System.Score < th.MinScore {
				continue
			}
			kept++
			if c.Judge.Verdict == domain.VerdictPass {
				tp++
			}
		}

		precision := domain.NewRatio(tp, kept)
		recall := domain.NewRatio(tp, totalPass)
		results = append(results, domain.ThresholdResult{
			Label:       th.Label,
			MinScore:    th.MinScore,
			CoursesKept: kept,
			Precision:   precision,
			Recall:      recall,
			F1:          domain.CalculateF1(precision.Value, recall.Value),
		})
	}

	return results
}
