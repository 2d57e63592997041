package meta

import (
	"math"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

// ScoreVerdictBreakdown reports the judge pass rate per system score. A well
// calibrated filter shows pass rates rising with the score.
func ScoreVerdictBreakdown(courses []domain.ComparisonRecord) []domain.ScoreVerdictStats {
	stats := make([]domain.ScoreVerdictStats, 0, len(domain.Scores()))
	for _, s := range domain.Scores() {
		stats = append(stats, domain.ScoreVerdictStats{Score: s})
	}

	for _, c := range courses {
		if !c.System.Score.Valid() {
			continue
		}
		st := &stats[c.System.Score]
		st.Total++
		if c.Judge.Verdict == domain.VerdictPass {
			st.JudgePass++
		} else {
			st.JudgeFail++
		}
	}

	for i := range stats {
		stats[i].PassRate = domain.NewRatio(stats[i].JudgePass, stats[i].Total).Value
	}
	return stats
}

// ScoreVerdictCorrelation is the Pearson correlation between the system score
// and the judge verdict (PASS=1, FAIL=0). It is 0 when either side is constant.
func ScoreVerdictCorrelation(courses []domain.ComparisonRecord) float64 {
	n := float64(len(courses))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, c := range courses {
		x := float64(c.System.Score)
		y := 0.0
		if c.Judge.Verdict == domain.VerdictPass {
			y = 1
		}
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		sumY2 += y * y
	}

	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// cohenKappa measures system/judge agreement on the keep-drop decision beyond
// chance.
func cohenKappa(t tally) float64 {
	n := float64(t.total())
	if n == 0 {
		return 0
	}

	po := float64(t.agreements()) / n

	sysDrop := float64(t.systemDrops()) / n
	sysKeep := float64(t.systemKeeps()) / n
	judgeFail := float64(t.bothDrop+t.exploratoryDelta) / n
	judgePass := float64(t.conservativeDrop+t.bothKeep) / n
	pe := sysDrop*judgeFail + sysKeep*judgePass

	if pe >= 1.0 {
		return 1.0
	}

	return (po - pe) / (1.0 - pe)
}
