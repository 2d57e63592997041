package domain

type SystemDecision struct {
	Score  Score  `json:"score"`
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

type JudgeDecision struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

// ComparisonRecord reconciles the system decision with the judge verdict for
// one course.
type ComparisonRecord struct {
	SubjectCode   string         `json:"subjectCode"`
	SubjectName   string         `json:"subjectName"`
	Outcomes      []string       `json:"outcomes"`
	MatchedSkills []MatchedSkill `json:"matchedSkills"`
	System        SystemDecision `json:"system"`
	Judge         JudgeDecision  `json:"judge"`
	Agreement     bool           `json:"agreement"`
	AgreementType AgreementType  `json:"agreementType"`
}

type TokenUsage struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
	ModelName        string  `json:"modelName,omitempty"`
}

// Add returns the sum of both usages. The model name is kept when both sides
// agree on it.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	sum := TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
		EstimatedCostUSD: u.EstimatedCostUSD + o.EstimatedCostUSD,
		ModelName:        u.ModelName,
	}
	if sum.ModelName == "" {
		sum.ModelName = o.ModelName
	} else if o.ModelName != "" && o.ModelName != sum.ModelName {
		sum.ModelName = "mixed"
	}
	return sum
}

// SampleEvaluationRecord is the immutable per-question result stored for later
// re-aggregation.
type SampleEvaluationRecord struct {
	QueryLogID string             `json:"queryLogId"`
	Question   string             `json:"question"`
	Courses    []ComparisonRecord `json:"courses"`
	TokenUsage TokenUsage         `json:"tokenUsage"`
}
