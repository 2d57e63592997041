package domain

// Ratio keeps the counts behind a rate so reports can be audited.
type Ratio struct {
	Value       float64 `json:"value"`
	Numerator   int     `json:"numerator"`
	Denominator int     `json:"denominator"`
}

// NewRatio returns numerator/denominator, with Value 0 when the denominator is 0.
func NewRatio(numerator, denominator int) Ratio {
	r := Ratio{Numerator: numerator, Denominator: denominator}
	if denominator != 0 {
		r.Value = float64(numerator) / float64(denominator)
	}
	return r
}

type ScoreDistribution struct {
	Score0 int `json:"score0"`
	Score1 int `json:"score1"`
	Score2 int `json:"score2"`
	Score3 int `json:"score3"`
}

func (d *ScoreDistribution) Add(s Score) {
	switch s {
	case 0:
		d.Score0++
	case 1:
		d.Score1++
	case 2:
		d.Score2++
	case 3:
		d.Score3++
	}
}

func (d ScoreDistribution) Count(s Score) int {
	switch s {
	case 0:
		return d.Score0
	case 1:
		return d.Score1
	case 2:
		return d.Score2
	case 3:
		return d.Score3
	}
	return 0
}

type ConfusionTotals struct {
	SystemDrop int `json:"systemDrop"`
	SystemKeep int `json:"systemKeep"`
	JudgeFail  int `json:"judgeFail"`
	JudgePass  int `json:"judgePass"`
}

// ConfusionMatrix rows are the judge verdict (FAIL, PASS) and columns the
// system action (DROP, KEEP):
//
//	FAIL: [BOTH_DROP,         EXPLORATORY_DELTA]
//	PASS: [CONSERVATIVE_DROP, BOTH_KEEP]
type ConfusionMatrix struct {
	Matrix [2][2]int       `json:"matrix"`
	Totals ConfusionTotals `json:"totals"`
}

type ScoreVerdictStats struct {
	Score     Score   `json:"score"`
	JudgePass int     `json:"judgePass"`
	JudgeFail int     `json:"judgeFail"`
	Total     int     `json:"total"`
	PassRate  float64 `json:"passRate"`
}

type SampleMetrics struct {
	SampleID               int    `json:"sampleId"`
	QueryLogID             string `json:"queryLogId"`
	Question               string `json:"question"`
	CoursesEvaluated       int    `json:"coursesEvaluated"`
	AgreementCount         int    `json:"agreementCount"`
	DisagreementCount      int    `json:"disagreementCount"`
	AgreementRate          Ratio  `json:"agreementRate"`
	NoiseRemovalEfficiency Ratio  `json:"noiseRemovalEfficiency"`
	ExploratoryRecall      Ratio  `json:"exploratoryRecall"`
}

type ThresholdResult struct {
	Label       string  `json:"label"`
	MinScore    Score   `json:"minScore"`
	CoursesKept int     `json:"coursesKept"`
	Precision   Ratio   `json:"precision"`
	Recall      Ratio   `json:"recall"`
	F1          float64 `json:"f1"`
}

type EvaluationMetrics struct {
	TotalSamples            int                 `json:"totalSamples"`
	TotalCourses            int                 `json:"totalCourses"`
	OverallAgreementRate    Ratio               `json:"overallAgreementRate"`
	NoiseRemovalEfficiency  Ratio               `json:"noiseRemovalEfficiency"`
	ExploratoryRecall       Ratio               `json:"exploratoryRecall"`
	ConservativeDropRate    Ratio               `json:"conservativeDropRate"`
	SystemScoreDistribution ScoreDistribution   `json:"systemScoreDistribution"`
	ConfusionMatrix         ConfusionMatrix     `json:"confusionMatrix"`
	ScoreVerdictBreakdown   []ScoreVerdictStats `json:"scoreVerdictBreakdown"`
	PerSampleMetrics        []SampleMetrics     `json:"perSampleMetrics"`
	ThresholdSweep          []ThresholdResult   `json:"thresholdSweep"`
	CohenKappa              float64             `json:"cohenKappa"`
	ScoreVerdictCorrelation float64             `json:"scoreVerdictCorrelation"`
	TokenUsage              TokenUsage          `json:"tokenUsage"`
}

func CalculateF1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * (precision * recall) / (precision + recall)
}
