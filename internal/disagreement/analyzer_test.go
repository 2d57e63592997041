package disagreement

import (
	"fmt"
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/comparison"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func course(code string, score domain.Score, v domain.Verdict, judgeReason string) domain.ComparisonRecord {
	action := comparison.MapScoreToAction(score)
	at := comparison.DetermineAgreementType(action, v)
	return domain.ComparisonRecord{
		SubjectCode:   code,
		SubjectName:   "Course " + code,
		System:        domain.SystemDecision{Score: score, Action: action, Reason: "system says " + code},
		Judge:         domain.JudgeDecision{Verdict: v, Reason: judgeReason},
		Agreement:     at.IsAgreement(),
		AgreementType: at,
	}
}

func sample(id string, courses ...domain.ComparisonRecord) domain.SampleEvaluationRecord {
	return domain.SampleEvaluationRecord{QueryLogID: id, Question: "question " + id, Courses: courses}
}

func TestAnalyzeDisagreementsRate(t *testing.T) {
	records := []domain.SampleEvaluationRecord{sample("q1",
		course("K", 3, domain.VerdictPass, "core"),
		course("D", 0, domain.VerdictFail, "off topic"),
		course("E", 2, domain.VerdictFail, "too basic"),
		course("C", 0, domain.VerdictPass, "useful tool"),
	)}

	report := NewAnalyzer(nil).AnalyzeDisagreements(records)

	assert.Equal(t, 2, report.TotalDisagreements)
	assert.Equal(t, 1, report.TotalSamples)
	assert.Equal(t, 4, report.TotalCourses)
	assert.Equal(t, domain.Ratio{Value: 0.5, Numerator: 2, Denominator: 4}, report.DisagreementRate)

	ed := report.ByType[domain.AgreementExploratoryDelta]
	assert.Equal(t, 1, ed.Count)
	assert.Equal(t, "System keeps courses that judge would drop (system is too exploratory)", ed.Description)
	assert.Equal(t, 1, ed.BySystemScore.Score2)
	require.Len(t, ed.CommonPatterns, 1)
	assert.Equal(t, domain.PatternFoundationalOverkeep, ed.CommonPatterns[0].Pattern)

	cd := report.ByType[domain.AgreementConservativeDrop]
	assert.Equal(t, 1, cd.Count)
	assert.Equal(t, "System drops courses that judge would keep (system is too strict)", cd.Description)
	require.Len(t, cd.Examples, 1)
	assert.Equal(t, domain.DisagreementExample{
		QueryLogID:   "q1",
		Question:     "question q1",
		SubjectCode:  "C",
		SubjectName:  "Course C",
		SystemScore:  0,
		SystemReason: "system says C",
		JudgeReason:  "useful tool",
	}, cd.Examples[0])

	assert.Contains(t, report.Insights.SystemCharacter, "balanced")
}

func TestAnalyzeDisagreementsTruncatesExamples(t *testing.T) {
	var courses []domain.ComparisonRecord
	for i := 0; i < 10; i++ {
		courses = append(courses, course(fmt.Sprintf("E%d", i), 1, domain.VerdictFail, "introductory"))
	}

	report := NewAnalyzer(nil).AnalyzeDisagreements([]domain.SampleEvaluationRecord{sample("q1", courses...)})

	ed := report.ByType[domain.AgreementExploratoryDelta]
	assert.Equal(t, 10, ed.Count)
	require.Len(t, ed.Examples, 5)
	for i, ex := range ed.Examples {
		assert.Equal(t, fmt.Sprintf("E%d", i), ex.SubjectCode)
	}

	require.Len(t, ed.CommonPatterns, 1)
	assert.Equal(t, 10, ed.CommonPatterns[0].Count)
	assert.Len(t, ed.CommonPatterns[0].Examples, 3)
	assert.Equal(t, 10, ed.BySystemScore.Score1)

	assert.Contains(t, report.Insights.SystemCharacter, "exploratory")
	assert.Contains(t, report.Insights.SystemCharacter, "100.0%")
	assert.Contains(t, report.Insights.Recommendation, "tightening")
}

func TestAnalyzeDisagreementsPatternOrdering(t *testing.T) {
	records := []domain.SampleEvaluationRecord{
		sample("q1",
			course("A", 1, domain.VerdictFail, "introductory"),
			course("B", 1, domain.VerdictFail, "adjacent topic"),
		),
		sample("q2",
			course("C", 2, domain.VerdictFail, "adjacent topic"),
			course("D", 3, domain.VerdictFail, "nothing to see"),
		),
	}

	ed := NewAnalyzer(nil).AnalyzeDisagreements(records).ByType[domain.AgreementExploratoryDelta]

	assert.Equal(t, 4, ed.Count)
	require.Len(t, ed.CommonPatterns, 2)
	assert.Equal(t, domain.PatternSiblingMisclassification, ed.CommonPatterns[0].Pattern)
	assert.Equal(t, 2, ed.CommonPatterns[0].Count)
	assert.Equal(t, domain.PatternFoundationalOverkeep, ed.CommonPatterns[1].Pattern)
}

func TestAnalyzeDisagreementsConservative(t *testing.T) {
	records := []domain.SampleEvaluationRecord{sample("q1",
		course("A", 0, domain.VerdictPass, "career change into analytics"),
		course("B", 0, domain.VerdictPass, "useful tool"),
		course("C", 0, domain.VerdictPass, "career pivot"),
	)}

	report := NewAnalyzer(nil).AnalyzeDisagreements(records)

	cd := report.ByType[domain.AgreementConservativeDrop]
	require.Len(t, cd.CommonPatterns, 2)
	assert.Equal(t, domain.PatternValidPivotRejection, cd.CommonPatterns[0].Pattern)
	assert.Equal(t, 2, cd.CommonPatterns[0].Count)
	assert.Contains(t, report.Insights.SystemCharacter, "conservative")
	assert.Contains(t, report.Insights.Recommendation, "relaxing")
}

func TestAnalyzeDisagreementsPerfectAgreement(t *testing.T) {
	records := []domain.SampleEvaluationRecord{sample("q1",
		course("K", 3, domain.VerdictPass, "core"),
		course("D", 0, domain.VerdictFail, "off topic"),
	)}

	report := NewAnalyzer(nil).AnalyzeDisagreements(records)

	assert.Zero(t, report.TotalDisagreements)
	assert.Equal(t, domain.Ratio{Value: 0, Numerator: 0, Denominator: 2}, report.DisagreementRate)
	assert.Contains(t, report.Insights.SystemCharacter, "Perfect agreement")
	for _, at := range []domain.AgreementType{domain.AgreementExploratoryDelta, domain.AgreementConservativeDrop} {
		bucket := report.ByType[at]
		assert.NotNil(t, bucket.Examples, at)
		assert.NotNil(t, bucket.CommonPatterns, at)
	}
	assert.NotContains(t, report.ByType, domain.AgreementBothKeep)
}

func TestAnalyzeDisagreementsEmpty(t *testing.T) {
	report := NewAnalyzer(nil).AnalyzeDisagreements(nil)

	assert.Zero(t, report.TotalCourses)
	assert.Equal(t, domain.Ratio{}, report.DisagreementRate)
	assert.Len(t, report.ByType, 2)
}

func TestAnalyzeExploratoryDelta(t *testing.T) {
	var courses []domain.ComparisonRecord
	for i := 0; i < 4; i++ {
		courses = append(courses, course(fmt.Sprintf("F%d", i), 1, domain.VerdictFail, "foundational"))
	}
	courses = append(courses,
		course("S", 2, domain.VerdictFail, "adjacent discipline"),
		course("X", 2, domain.VerdictFail, "no reason given"),
		course("C", 0, domain.VerdictPass, "too basic"),
	)

	report := NewAnalyzer(nil).AnalyzeExploratoryDelta([]domain.SampleEvaluationRecord{sample("q1", courses...)})

	assert.Equal(t, 6, report.TotalCases)
	require.Len(t, report.Categories, 3)
	assert.Equal(t, 4, report.Categories[domain.PatternFoundationalOverkeep].Count)
	assert.Len(t, report.Categories[domain.PatternFoundationalOverkeep].Examples, 3)
	assert.Equal(t, 1, report.Categories[domain.PatternSiblingMisclassification].Count)
	assert.Zero(t, report.Categories[domain.PatternContextualOveralignment].Count)
	assert.NotNil(t, report.Categories[domain.PatternContextualOveralignment].Examples)
	assert.Contains(t, report.Insights.Strength, "foundational")
	assert.Contains(t, report.Insights.Recommendation, "foundational")
}

func TestAnalyzeExploratoryDeltaInsights(t *testing.T) {
	none := NewAnalyzer(nil).AnalyzeExploratoryDelta(nil)
	assert.Zero(t, none.TotalCases)
	assert.Equal(t, "No tightening needed", none.Insights.Recommendation)

	unmatched := NewAnalyzer(nil).AnalyzeExploratoryDelta([]domain.SampleEvaluationRecord{
		sample("q1", course("X", 2, domain.VerdictFail, "irrelevant")),
	})
	assert.Equal(t, 1, unmatched.TotalCases)
	assert.Contains(t, unmatched.Insights.Weakness, "1 exploratory cases")

	contextual := NewAnalyzer(nil).AnalyzeExploratoryDelta([]domain.SampleEvaluationRecord{
		sample("q1", course("X", 2, domain.VerdictFail, "only mentioned in passing")),
	})
	assert.Contains(t, contextual.Insights.Weakness, "Passing mentions")
}

func TestAnalyzerCustomRules(t *testing.T) {
	rules := []Rule{{
		Pattern:       domain.PatternSiblingMisclassification,
		Type:          domain.AgreementExploratoryDelta,
		Description:   "custom",
		JudgeKeywords: []string{"cousin"},
	}}

	report := NewAnalyzer(rules).AnalyzeDisagreements([]domain.SampleEvaluationRecord{
		sample("q1",
			course("A", 1, domain.VerdictFail, "a cousin topic"),
			course("B", 1, domain.VerdictFail, "introductory"),
		),
	})

	ed := report.ByType[domain.AgreementExploratoryDelta]
	require.Len(t, ed.CommonPatterns, 1)
	assert.Equal(t, "custom", ed.CommonPatterns[0].Description)
	assert.Equal(t, 1, ed.CommonPatterns[0].Count)
}
