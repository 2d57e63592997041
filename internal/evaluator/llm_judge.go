package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/llm"
)

const judgeSystemPrompt = `You are an academic advisor judging whether university courses are relevant to a learner's question.
For every course decide PASS if the course directly helps the learner reach the goal in the question, otherwise FAIL.
Judge every course listed, exactly once, using its code. Always respond with valid JSON.`

type LLMJudge struct {
	client    Completer
	model     string
	sanitizer *MessageSanitizer
	budget    *BudgetEnforcer
	tracker   *TokenTracker
}

// NewLLMJudge uses the client's default model when model is empty.
func NewLLMJudge(client Completer, model string) *LLMJudge {
	return &LLMJudge{
		client:    client,
		model:     model,
		sanitizer: NewMessageSanitizer(),
		budget:    NewBudgetEnforcer(),
		tracker:   NewTokenTracker(),
	}
}

func (j *LLMJudge) Name() string {
	return "llm_judge"
}

// Usage returns the token usage accumulated over every call.
func (j *LLMJudge) Usage() *TokenTracker {
	return j.tracker
}

func (j *LLMJudge) Evaluate(ctx context.Context, question string, courses []domain.AggregatedCourse) (domain.JudgeResult, error) {
	if len(courses) == 0 {
		return domain.JudgeResult{Verdicts: []domain.JudgeVerdict{}}, nil
	}

	prompt := j.buildPrompt(question, courses)
	if err := j.budget.CheckPromptBudget(prompt); err != nil {
		return domain.JudgeResult{}, err
	}
	if err := j.budget.CheckRunBudget(j.tracker.Total()); err != nil {
		return domain.JudgeResult{}, err
	}

	resp, err := j.client.Complete(ctx, &llm.CompletionRequest{
		Model: j.model,
		Messages: []llm.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   256 + 128*len(courses),
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return domain.JudgeResult{}, fmt.Errorf("llm completion: %w", err)
	}

	verdicts, err := parseVerdicts(resp.Content)
	if err != nil {
		return domain.JudgeResult{}, fmt.Errorf("parse response: %w", err)
	}

	usage := domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		EstimatedCostUSD: CalculateCost(resp.ModelName, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		ModelName:        resp.ModelName,
	}
	j.tracker.RecordUsage(usage)

	return domain.JudgeResult{Verdicts: verdicts, TokenUsage: usage}, nil
}

func (j *LLMJudge) buildPrompt(question string, courses []domain.AggregatedCourse) string {
	var sb strings.Builder

	sb.WriteString("Learner question:\n")
	sb.WriteString(j.sanitizer.Prepare(question))
	sb.WriteString("\n\nCourses:\n")

	for _, c := range j.sanitizer.PrepareCourses(courses) {
		sb.WriteString(fmt.Sprintf("- code: %s\n  name: %s\n", c.SubjectCode, c.SubjectName))
		if len(c.AllLearningOutcomes) > 0 {
			sb.WriteString("  learning outcomes:\n")
			for _, lo := range c.AllLearningOutcomes {
				sb.WriteString(fmt.Sprintf("    - %s\n", lo.Name))
			}
		}
	}

	sb.WriteString(`
Respond with JSON:
{
  "verdicts": [{"code": "<course code>", "verdict": "PASS|FAIL", "reason": "<one sentence>"}]
}`)

	return sb.String()
}

type judgeResponse struct {
	Verdicts []domain.JudgeVerdict `json:"verdicts"`
}

// parseVerdicts accepts the JSON object optionally wrapped in a markdown code
// fence and normalizes verdict spelling. Unknown verdict values are kept as
// they are so the comparison can reject them.
func parseVerdicts(content string) ([]domain.JudgeVerdict, error) {
	var result judgeResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &result); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if result.Verdicts == nil {
		return nil, fmt.Errorf("response has no verdicts field")
	}

	for i := range result.Verdicts {
		v := &result.Verdicts[i]
		v.Code = strings.TrimSpace(v.Code)
		v.Verdict = domain.Verdict(strings.ToUpper(strings.TrimSpace(string(v.Verdict))))
		v.Reason = strings.TrimSpace(v.Reason)
	}
	return result.Verdicts, nil
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
