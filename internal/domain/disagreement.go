package domain

type Pattern string

const (
	PatternFoundationalOverkeep     Pattern = "FOUNDATIONAL_OVERKEEP"
	PatternSiblingMisclassification Pattern = "SIBLING_MISCLASSIFICATION"
	PatternContextualOveralignment  Pattern = "CONTEXTUAL_OVERALIGNMENT"
	PatternEnablingToolUnderdrop    Pattern = "ENABLING_TOOL_UNDERDROP"
	PatternValidPivotRejection      Pattern = "VALID_PIVOT_REJECTION"
	PatternUnclassified             Pattern = ""
)

// DisagreementExample identifies one disagreeing course within its sample.
type DisagreementExample struct {
	QueryLogID   string `json:"queryLogId"`
	Question     string `json:"question"`
	SubjectCode  string `json:"subjectCode"`
	SubjectName  string `json:"subjectName"`
	SystemScore  Score  `json:"systemScore"`
	SystemReason string `json:"systemReason"`
	JudgeReason  string `json:"judgeReason"`
}

type PatternSummary struct {
	Pattern     Pattern               `json:"pattern"`
	Count       int                   `json:"count"`
	Description string                `json:"description"`
	Examples    []DisagreementExample `json:"examples"`
}

type DisagreementBucket struct {
	Count          int                   `json:"count"`
	Description    string                `json:"description"`
	BySystemScore  ScoreDistribution     `json:"bySystemScore"`
	Examples       []DisagreementExample `json:"examples"`
	CommonPatterns []PatternSummary      `json:"commonPatterns"`
}

type DisagreementInsights struct {
	SystemCharacter string `json:"systemCharacter"`
	Recommendation  string `json:"recommendation"`
}

type DisagreementReport struct {
	TotalDisagreements int                                  `json:"totalDisagreements"`
	TotalSamples       int                                  `json:"totalSamples"`
	TotalCourses       int                                  `json:"totalCourses"`
	DisagreementRate   Ratio                                `json:"disagreementRate"`
	ByType             map[AgreementType]DisagreementBucket `json:"byType"`
	Insights           DisagreementInsights                 `json:"insights"`
}

type ExploratoryCategory struct {
	Count    int                   `json:"count"`
	Examples []DisagreementExample `json:"examples"`
}

type ExploratoryInsights struct {
	Strength       string `json:"strength"`
	Weakness       string `json:"weakness"`
	Recommendation string `json:"recommendation"`
}

type ExploratoryDeltaReport struct {
	TotalCases int                             `json:"totalCases"`
	Categories map[Pattern]ExploratoryCategory `json:"categories"`
	Insights   ExploratoryInsights             `json:"insights"`
}
