// Package transform turns recorded filter output into per-question
// evaluation samples.
package transform

import (
	"sort"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/comparison"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform returns one sample per record, in record order.
func (t *Transformer) Transform(records []domain.TestSetRecord) []domain.EvaluationSample {
	samples := make([]domain.EvaluationSample, 0, len(records))
	for i := range records {
		samples = append(samples, TransformRecord(&records[i]))
	}
	return samples
}

// TransformRecord merges the accepted, rejected and missing buckets of a
// record into a deduplicated course list. A course seen under several skills
// keeps the highest score and the reason that came with it. Courses are
// ordered by descending score; ties keep first-seen order.
func TransformRecord(rec *domain.TestSetRecord) domain.EvaluationSample {
	merged := orderedmap.New[string, *domain.AggregatedCourse]()

	for _, bucket := range rec.Buckets() {
		if bucket == nil {
			continue
		}
		for pair := bucket.Oldest(); pair != nil; pair = pair.Next() {
			for _, course := range pair.Value {
				mergeCourse(merged, pair.Key, course)
			}
		}
	}

	courses := make([]domain.AggregatedCourse, 0, merged.Len())
	for pair := merged.Oldest(); pair != nil; pair = pair.Next() {
		course := *pair.Value
		course.SystemAction = comparison.MapScoreToAction(course.SystemScore)
		courses = append(courses, course)
	}

	sort.SliceStable(courses, func(i, j int) bool {
		return courses[i].SystemScore > courses[j].SystemScore
	})

	return domain.EvaluationSample{
		QueryLogID: rec.QueryLogID,
		Question:   rec.Question,
		Courses:    courses,
	}
}

func mergeCourse(merged *orderedmap.OrderedMap[string, *domain.AggregatedCourse], skill string, raw domain.RawCourse) {
	existing, ok := merged.Get(raw.SubjectCode)
	if !ok {
		merged.Set(raw.SubjectCode, &domain.AggregatedCourse{
			SubjectCode:         raw.SubjectCode,
			SubjectName:         raw.SubjectName,
			SystemScore:         raw.Score,
			SystemReason:        raw.Reason,
			MatchedSkills:       []domain.MatchedSkill{matchedSkill(skill, raw)},
			AllLearningOutcomes: convertOutcomes(raw.AllLearningOutcomes),
		})
		return
	}

	if !hasSkill(existing.MatchedSkills, skill) {
		existing.MatchedSkills = append(existing.MatchedSkills, matchedSkill(skill, raw))
	}

	if raw.Score > existing.SystemScore {
		existing.SystemScore = raw.Score
		existing.SystemReason = raw.Reason
	}

	if len(existing.AllLearningOutcomes) == 0 && len(raw.AllLearningOutcomes) > 0 {
		existing.AllLearningOutcomes = convertOutcomes(raw.AllLearningOutcomes)
	}
}

func matchedSkill(skill string, raw domain.RawCourse) domain.MatchedSkill {
	return domain.MatchedSkill{
		Skill:            skill,
		Score:            raw.Score,
		LearningOutcomes: convertOutcomes(raw.MatchedLearningOutcomes),
	}
}

func hasSkill(skills []domain.MatchedSkill, skill string) bool {
	for _, s := range skills {
		if s.Skill == skill {
			return true
		}
	}
	return false
}

func convertOutcomes(raw []domain.RawLearningOutcome) []domain.LearningOutcome {
	outcomes := make([]domain.LearningOutcome, 0, len(raw))
	for _, lo := range raw {
		outcomes = append(outcomes, domain.LearningOutcome{ID: lo.LoID, Name: lo.CleanedName})
	}
	return outcomes
}
