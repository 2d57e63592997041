package domain

// Score is the 0-3 relevance grade assigned by the upstream filter.
type Score int

const MaxScore Score = 3

func (s Score) Valid() bool {
	return s >= 0 && s <= MaxScore
}

// Scores lists every valid score in ascending order.
func Scores() []Score {
	return []Score{0, 1, 2, 3}
}

type Action string

const (
	ActionKeep Action = "KEEP"
	ActionDrop Action = "DROP"
)

type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

func (v Verdict) Valid() bool {
	return v == VerdictPass || v == VerdictFail
}

type AgreementType string

const (
	AgreementBothKeep         AgreementType = "BOTH_KEEP"
	AgreementBothDrop         AgreementType = "BOTH_DROP"
	AgreementConservativeDrop AgreementType = "CONSERVATIVE_DROP"
	AgreementExploratoryDelta AgreementType = "EXPLORATORY_DELTA"
)

// IsAgreement reports whether system and judge reached the same decision.
func (t AgreementType) IsAgreement() bool {
	return t == AgreementBothKeep || t == AgreementBothDrop
}

type LearningOutcome struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MatchedSkill struct {
	Skill            string            `json:"skill"`
	Score            Score             `json:"score"`
	LearningOutcomes []LearningOutcome `json:"learningOutcomes"`
}

// AggregatedCourse is one course of a sample after merging every skill that
// referenced it. SystemAction may be empty, in which case it follows from
// SystemScore.
type AggregatedCourse struct {
	SubjectCode         string            `json:"subjectCode"`
	SubjectName         string            `json:"subjectName"`
	SystemScore         Score             `json:"systemScore"`
	SystemAction        Action            `json:"systemAction,omitempty"`
	SystemReason        string            `json:"systemReason"`
	MatchedSkills       []MatchedSkill    `json:"matchedSkills"`
	AllLearningOutcomes []LearningOutcome `json:"allLearningOutcomes"`
}

type EvaluationSample struct {
	QueryLogID string             `json:"queryLogId"`
	Question   string             `json:"question"`
	Courses    []AggregatedCourse `json:"courses"`
}

// JudgeVerdict is the judge's binary decision for a single course.
type JudgeVerdict struct {
	Code    string  `json:"code"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// JudgeResult is what the judge returned for one sample.
type JudgeResult struct {
	Verdicts   []JudgeVerdict `json:"verdicts"`
	TokenUsage TokenUsage     `json:"tokenUsage"`
}
