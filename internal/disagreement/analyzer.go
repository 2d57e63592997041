package disagreement

import (
	"fmt"
	"sort"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

const (
	maxExamples        = 5
	maxPatternExamples = 3
)

var typeDescriptions = map[domain.AgreementType]string{
	domain.AgreementExploratoryDelta: "System keeps courses that judge would drop (system is too exploratory)",
	domain.AgreementConservativeDrop: "System drops courses that judge would keep (system is too strict)",
}

type Analyzer struct {
	rules ruleSet
}

// NewAnalyzer uses DefaultRules when rules is empty.
func NewAnalyzer(rules []Rule) *Analyzer {
	if len(rules) == 0 {
		return &Analyzer{rules: defaultRuleSet}
	}
	return &Analyzer{rules: compileRules(rules)}
}

type patternAggregate struct {
	count    int
	examples []domain.DisagreementExample
}

type bucketAggregate struct {
	bucket   domain.DisagreementBucket
	patterns map[domain.Pattern]*patternAggregate
}

func (a *Analyzer) AnalyzeDisagreements(records []domain.SampleEvaluationRecord) *domain.DisagreementReport {
	buckets := map[domain.AgreementType]*bucketAggregate{}
	for at, desc := range typeDescriptions {
		buckets[at] = &bucketAggregate{
			bucket: domain.DisagreementBucket{
				Description:    desc,
				Examples:       []domain.DisagreementExample{},
				CommonPatterns: []domain.PatternSummary{},
			},
			patterns: map[domain.Pattern]*patternAggregate{},
		}
	}

	totalCourses := 0
	for _, rec := range records {
		for _, course := range rec.Courses {
			totalCourses++
			agg, ok := buckets[course.AgreementType]
			if !ok {
				continue
			}

			ex := example(rec, course)
			agg.bucket.Count++
			agg.bucket.BySystemScore.Add(course.System.Score)
			if len(agg.bucket.Examples) < maxExamples {
				agg.bucket.Examples = append(agg.bucket.Examples, ex)
			}

			p := a.rules.classify(course.AgreementType, course.Judge.Reason, course.System.Reason)
			if p == domain.PatternUnclassified {
				continue
			}
			pa, ok := agg.patterns[p]
			if !ok {
				pa = &patternAggregate{}
				agg.patterns[p] = pa
			}
			pa.count++
			if len(pa.examples) < maxPatternExamples {
				pa.examples = append(pa.examples, ex)
			}
		}
	}

	report := &domain.DisagreementReport{
		TotalSamples: len(records),
		TotalCourses: totalCourses,
		ByType:       make(map[domain.AgreementType]domain.DisagreementBucket, len(buckets)),
	}
	for at, agg := range buckets {
		agg.bucket.CommonPatterns = a.summarize(at, agg.patterns)
		report.ByType[at] = agg.bucket
		report.TotalDisagreements += agg.bucket.Count
	}
	report.DisagreementRate = domain.NewRatio(report.TotalDisagreements, totalCourses)
	report.Insights = disagreementInsights(
		buckets[domain.AgreementExploratoryDelta].bucket.Count,
		buckets[domain.AgreementConservativeDrop].bucket.Count,
	)

	return report
}

// summarize lists the observed patterns of one type, most frequent first and
// rule order among ties.
func (a *Analyzer) summarize(at domain.AgreementType, patterns map[domain.Pattern]*patternAggregate) []domain.PatternSummary {
	summaries := []domain.PatternSummary{}
	for _, r := range a.rules {
		if r.Type != at {
			continue
		}
		pa, ok := patterns[r.Pattern]
		if !ok {
			continue
		}
		summaries = append(summaries, domain.PatternSummary{
			Pattern:     r.Pattern,
			Count:       pa.count,
			Description: r.Description,
			Examples:    pa.examples,
		})
		// A pattern listed twice in a custom table is summarized once.
		delete(patterns, r.Pattern)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries
}

func disagreementInsights(exploratory, conservative int) domain.DisagreementInsights {
	total := exploratory + conservative
	switch {
	case total == 0:
		return domain.DisagreementInsights{
			SystemCharacter: "Perfect agreement: the system and the judge made the same keep/drop call on every course",
			Recommendation:  "No filter changes needed. Keep monitoring with new test samples",
		}
	case exploratory > conservative:
		return domain.DisagreementInsights{
			SystemCharacter: fmt.Sprintf("System is exploratory: %.1f%% of disagreements are courses it keeps that the judge would drop",
				percent(exploratory, total)),
			Recommendation: "Consider tightening the relevance filter, for example by raising the keep threshold or penalizing foundational and tangential matches",
		}
	case conservative > exploratory:
		return domain.DisagreementInsights{
			SystemCharacter: fmt.Sprintf("System is conservative: %.1f%% of disagreements are courses it drops that the judge would keep",
				percent(conservative, total)),
			Recommendation: "Consider relaxing the relevance filter so enabling tools and career-pivot courses are not dropped",
		}
	default:
		return domain.DisagreementInsights{
			SystemCharacter: "System is balanced: exploratory and conservative disagreements occur equally often",
			Recommendation:  "Review both disagreement types before adjusting the filter in either direction",
		}
	}
}

var exploratoryPatterns = []domain.Pattern{
	domain.PatternFoundationalOverkeep,
	domain.PatternSiblingMisclassification,
	domain.PatternContextualOveralignment,
}

var exploratoryInsights = map[domain.Pattern]domain.ExploratoryInsights{
	domain.PatternFoundationalOverkeep: {
		Strength:       "System surfaces prerequisite and foundational courses that broaden coverage",
		Weakness:       "Introductory courses are kept even when the learner asks for more specific material",
		Recommendation: "Down-weight foundational courses unless the question signals a beginner",
	},
	domain.PatternSiblingMisclassification: {
		Strength:       "System explores neighbouring disciplines around the requested skill",
		Weakness:       "Courses from adjacent fields are treated as directly relevant",
		Recommendation: "Require a direct learning-outcome match before keeping courses from related fields",
	},
	domain.PatternContextualOveralignment: {
		Strength:       "System notices courses where the skill appears in context",
		Weakness:       "Passing mentions of the skill are enough to trigger a keep",
		Recommendation: "Score against core learning outcomes rather than incidental mentions",
	},
}

// AnalyzeExploratoryDelta looks only at courses the system keeps and the
// judge rejects.
func (a *Analyzer) AnalyzeExploratoryDelta(records []domain.SampleEvaluationRecord) *domain.ExploratoryDeltaReport {
	report := &domain.ExploratoryDeltaReport{
		Categories: make(map[domain.Pattern]domain.ExploratoryCategory, len(exploratoryPatterns)),
	}
	for _, p := range exploratoryPatterns {
		report.Categories[p] = domain.ExploratoryCategory{Examples: []domain.DisagreementExample{}}
	}

	for _, rec := range records {
		for _, course := range rec.Courses {
			if course.AgreementType != domain.AgreementExploratoryDelta {
				continue
			}
			report.TotalCases++

			p := a.rules.classify(course.AgreementType, course.Judge.Reason, course.System.Reason)
			cat, ok := report.Categories[p]
			if !ok {
				continue
			}
			cat.Count++
			if len(cat.Examples) < maxPatternExamples {
				cat.Examples = append(cat.Examples, example(rec, course))
			}
			report.Categories[p] = cat
		}
	}

	report.Insights = exploratoryDeltaInsights(report)
	return report
}

func exploratoryDeltaInsights(report *domain.ExploratoryDeltaReport) domain.ExploratoryInsights {
	if report.TotalCases == 0 {
		return domain.ExploratoryInsights{
			Strength:       "System keeps no course the judge would drop",
			Weakness:       "None observed",
			Recommendation: "No tightening needed",
		}
	}

	dominant, best := domain.PatternUnclassified, 0
	for _, p := range exploratoryPatterns {
		if n := report.Categories[p].Count; n > best {
			dominant, best = p, n
		}
	}
	if dominant == domain.PatternUnclassified {
		return domain.ExploratoryInsights{
			Strength:       "System keeps a broad set of candidate courses",
			Weakness:       fmt.Sprintf("%d exploratory cases match no known pattern", report.TotalCases),
			Recommendation: "Review the judge reasons manually and extend the pattern rules",
		}
	}
	return exploratoryInsights[dominant]
}

func example(rec domain.SampleEvaluationRecord, course domain.ComparisonRecord) domain.DisagreementExample {
	return domain.DisagreementExample{
		QueryLogID:   rec.QueryLogID,
		Question:     rec.Question,
		SubjectCode:  course.SubjectCode,
		SubjectName:  course.SubjectName,
		SystemScore:  course.System.Score,
		SystemReason: course.System.Reason,
		JudgeReason:  course.Judge.Reason,
	}
}

func percent(part, total int) float64 {
	return 100 * domain.NewRatio(part, total).Value
}
