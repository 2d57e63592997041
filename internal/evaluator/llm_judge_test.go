package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
	last    *llm.CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{
		Content:   f.content,
		ModelName: "gpt-4o-mini",
		Usage:     llm.Usage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000},
	}, nil
}

func testCourses() []domain.AggregatedCourse {
	return []domain.AggregatedCourse{
		{
			SubjectCode: "CS101",
			SubjectName: "Intro to Programming",
			AllLearningOutcomes: []domain.LearningOutcome{
				{ID: "lo1", Name: "write simple programs"},
			},
		},
		{SubjectCode: "ART200", SubjectName: "Painting"},
	}
}

func TestLLMJudgeEvaluate(t *testing.T) {
	fc := &fakeCompleter{content: `{"verdicts": [
		{"code": "CS101", "verdict": "pass", "reason": " core skill "},
		{"code": " ART200 ", "verdict": "FAIL", "reason": "unrelated"}
	]}`}
	judge := NewLLMJudge(fc, "gpt-4o-mini")

	result, err := judge.Evaluate(context.Background(), "How do I become a developer?", testCourses())
	require.NoError(t, err)

	assert.Equal(t, []domain.JudgeVerdict{
		{Code: "CS101", Verdict: domain.VerdictPass, Reason: "core skill"},
		{Code: "ART200", Verdict: domain.VerdictFail, Reason: "unrelated"},
	}, result.Verdicts)
	assert.Equal(t, 2000, result.TokenUsage.TotalTokens)
	assert.Equal(t, "gpt-4o-mini", result.TokenUsage.ModelName)
	assert.InDelta(t, 0.00075, result.TokenUsage.EstimatedCostUSD, 1e-9)

	require.NotNil(t, fc.last)
	assert.True(t, fc.last.JSONMode)
	assert.Equal(t, "gpt-4o-mini", fc.last.Model)
	prompt := fc.last.Messages[1].Content
	assert.Contains(t, prompt, "How do I become a developer?")
	assert.Contains(t, prompt, "code: CS101")
	assert.Contains(t, prompt, "write simple programs")
	assert.Contains(t, prompt, "code: ART200")

	assert.Equal(t, 1, judge.Usage().Calls())
	assert.Equal(t, 2000, judge.Usage().Total().TotalTokens)
}

func TestLLMJudgeEmptySampleSkipsCall(t *testing.T) {
	fc := &fakeCompleter{}
	result, err := NewLLMJudge(fc, "").Evaluate(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Empty(t, result.Verdicts)
	assert.Zero(t, fc.calls)
}

func TestLLMJudgeErrors(t *testing.T) {
	upstream := errors.New("connection reset")
	_, err := NewLLMJudge(&fakeCompleter{err: upstream}, "").Evaluate(context.Background(), "q", testCourses())
	assert.ErrorIs(t, err, upstream)

	_, err = NewLLMJudge(&fakeCompleter{content: "not json"}, "").Evaluate(context.Background(), "q", testCourses())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")

	_, err = NewLLMJudge(&fakeCompleter{content: `{"results": []}`}, "").Evaluate(context.Background(), "q", testCourses())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no verdicts")
}

func TestLLMJudgePromptBudget(t *testing.T) {
	fc := &fakeCompleter{content: `{"verdicts": []}`}
	var courses []domain.AggregatedCourse
	for i := 0; i < 500; i++ {
		courses = append(courses, domain.AggregatedCourse{
			SubjectCode: strings.Repeat("C", 10),
			SubjectName: strings.Repeat("name ", 40),
		})
	}

	_, err := NewLLMJudge(fc, "").Evaluate(context.Background(), "q", courses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token budget")
	assert.Zero(t, fc.calls)
}

func TestParseVerdictsCodeFence(t *testing.T) {
	verdicts, err := parseVerdicts("```json\n{\"verdicts\": [{\"code\": \"A\", \"verdict\": \"Pass\", \"reason\": \"ok\"}]}\n```")
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, domain.VerdictPass, verdicts[0].Verdict)

	verdicts, err = parseVerdicts(`{"verdicts": [{"code": "A", "verdict": "maybe"}]}`)
	require.NoError(t, err)
	assert.Equal(t, domain.Verdict("MAYBE"), verdicts[0].Verdict)
	assert.False(t, verdicts[0].Verdict.Valid())
}
