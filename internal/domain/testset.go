package domain

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type RawLearningOutcome struct {
	LoID        string `json:"loId"`
	CleanedName string `json:"cleanedName"`
}

type RawCourse struct {
	SubjectCode             string               `json:"subjectCode"`
	SubjectName             string               `json:"subjectName"`
	Score                   Score                `json:"score"`
	Reason                  string               `json:"reason"`
	MatchedLearningOutcomes []RawLearningOutcome `json:"matchedLearningOutcomes"`
	AllLearningOutcomes     []RawLearningOutcome `json:"allLearningOutcomes"`
}

// SkillBuckets maps a skill to the courses the filter placed under it, in the
// order the skills appeared in the source document.
type SkillBuckets = orderedmap.OrderedMap[string, []RawCourse]

func NewSkillBuckets() *SkillBuckets {
	return orderedmap.New[string, []RawCourse]()
}

// TestSetRecord is one recorded filtering run for a user question.
type TestSetRecord struct {
	QueryLogID             string          `json:"queryLogId"`
	Question               string          `json:"question"`
	AcceptedCoursesBySkill *SkillBuckets   `json:"acceptedCoursesBySkill,omitempty"`
	RejectedCoursesBySkill *SkillBuckets   `json:"rejectedCoursesBySkill,omitempty"`
	MissingCoursesBySkill  *SkillBuckets   `json:"missingCoursesBySkill,omitempty"`
	TokenUsage             json.RawMessage `json:"tokenUsage,omitempty"`
	FilterMetrics          json.RawMessage `json:"filterMetrics,omitempty"`
}

// Buckets returns the accepted, rejected and missing buckets in merge order.
// Absent buckets are returned as nil.
func (r *TestSetRecord) Buckets() []*SkillBuckets {
	return []*SkillBuckets{r.AcceptedCoursesBySkill, r.RejectedCoursesBySkill, r.MissingCoursesBySkill}
}
