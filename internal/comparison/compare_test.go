package comparison

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/logging"
	"github.com/chainguard-dev/clog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWith(courses ...domain.AggregatedCourse) domain.EvaluationSample {
	return domain.EvaluationSample{
		QueryLogID: "q-42",
		Question:   "How do I get into machine learning?",
		Courses:    courses,
	}
}

func course(code string, score domain.Score, action domain.Action) domain.AggregatedCourse {
	return domain.AggregatedCourse{
		SubjectCode:  code,
		SubjectName:  "Course " + code,
		SystemScore:  score,
		SystemAction: action,
		SystemReason: "reason for " + code,
		MatchedSkills: []domain.MatchedSkill{
			{Skill: "ml", Score: score},
		},
		AllLearningOutcomes: []domain.LearningOutcome{
			{ID: "lo1", Name: "Explain gradient descent"},
			{ID: "lo2", Name: "Train a classifier"},
		},
	}
}

func verdict(code string, v domain.Verdict) domain.JudgeVerdict {
	return domain.JudgeVerdict{Code: code, Verdict: v, Reason: "judge on " + code}
}

func TestCompareSample(t *testing.T) {
	sample := sampleWith(
		course("ML1", 3, domain.ActionKeep),
		course("ST1", 0, domain.ActionDrop),
		course("CS1", 2, domain.ActionKeep),
		course("AR1", 0, domain.ActionDrop),
	)
	result := domain.JudgeResult{
		Verdicts: []domain.JudgeVerdict{
			verdict("AR1", domain.VerdictPass),
			verdict("CS1", domain.VerdictFail),
			verdict("ST1", domain.VerdictFail),
			verdict("ML1", domain.VerdictPass),
		},
		TokenUsage: domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}

	record, err := CompareSample(sample, result)
	require.NoError(t, err)

	assert.Equal(t, "q-42", record.QueryLogID)
	assert.Equal(t, 120, record.TokenUsage.TotalTokens)
	require.Len(t, record.Courses, 4)

	var codes []string
	var types []domain.AgreementType
	for _, c := range record.Courses {
		codes = append(codes, c.SubjectCode)
		types = append(types, c.AgreementType)
	}
	assert.Equal(t, []string{"ML1", "ST1", "CS1", "AR1"}, codes)
	assert.Equal(t, []domain.AgreementType{
		domain.AgreementBothKeep,
		domain.AgreementBothDrop,
		domain.AgreementExploratoryDelta,
		domain.AgreementConservativeDrop,
	}, types)

	first := record.Courses[0]
	assert.True(t, first.Agreement)
	assert.Equal(t, []string{"Explain gradient descent", "Train a classifier"}, first.Outcomes)
	assert.Equal(t, "reason for ML1", first.System.Reason)
	assert.Equal(t, "judge on ML1", first.Judge.Reason)
	assert.False(t, record.Courses[2].Agreement)
}

func TestCompareSampleDerivesMissingAction(t *testing.T) {
	sample := sampleWith(course("A", 0, ""), course("B", 2, ""))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{
		verdict("A", domain.VerdictFail),
		verdict("B", domain.VerdictFail),
	}}

	record, err := CompareSample(sample, result)
	require.NoError(t, err)

	assert.Equal(t, domain.ActionDrop, record.Courses[0].System.Action)
	assert.Equal(t, "Score 0 - DROP", record.Courses[0].System.Reason)
	assert.Equal(t, domain.ActionKeep, record.Courses[1].System.Action)
	assert.Equal(t, "Score 2 - KEEP", record.Courses[1].System.Reason)
	assert.Equal(t, domain.AgreementExploratoryDelta, record.Courses[1].AgreementType)
}

func TestCompareSampleMissingVerdict(t *testing.T) {
	sample := sampleWith(course("ML1", 3, domain.ActionKeep), course("ST1", 0, domain.ActionDrop))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{verdict("ML1", domain.VerdictPass)}}

	record, err := CompareSample(sample, result)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ST1")
	assert.Empty(t, record.Courses)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "q-42", mismatch.QueryLogID)
	assert.Equal(t, []string{"ST1"}, mismatch.MissingCodes)
}

func TestCompareSampleDuplicateAndInvalid(t *testing.T) {
	sample := sampleWith(course("A", 1, domain.ActionKeep), course("B", 1, domain.ActionKeep))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{
		verdict("A", domain.VerdictPass),
		verdict("A", domain.VerdictFail),
		{Code: "B", Verdict: "MAYBE"},
	}}

	_, err := CompareSample(sample, result)

	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Empty(t, mismatch.MissingCodes)
	assert.Equal(t, []string{"A"}, mismatch.DuplicateCodes)
	assert.Equal(t, []string{"B"}, mismatch.InvalidCodes)
}

func TestCompareSampleEmpty(t *testing.T) {
	record, err := CompareSample(sampleWith(), domain.JudgeResult{})
	require.NoError(t, err)
	assert.Empty(t, record.Courses)
}

func TestUnexpectedCodes(t *testing.T) {
	sample := sampleWith(course("A", 1, domain.ActionKeep))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{
		verdict("A", domain.VerdictPass),
		verdict("Z", domain.VerdictPass),
	}}

	assert.Equal(t, []string{"Z"}, UnexpectedCodes(sample, result))
}

func TestEngineCompareLogsCritical(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.Setup(context.Background(), &buf, "info", "json")

	sample := sampleWith(course("ML1", 3, domain.ActionKeep), course("ST1", 0, domain.ActionDrop))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{verdict("ML1", domain.VerdictPass)}}

	_, err := NewEngine().Compare(ctx, sample, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ST1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "CRITICAL", entry["level"])
	assert.Equal(t, "q-42", entry["query_log_id"])
	assert.Equal(t, []any{"ST1"}, entry["missing_codes"])
}

func TestEngineCompareWarnsOnUnknownCodes(t *testing.T) {
	var buf bytes.Buffer
	ctx := clog.WithLogger(context.Background(), clog.New(slog.NewJSONHandler(&buf, nil)))

	sample := sampleWith(course("A", 1, domain.ActionKeep))
	result := domain.JudgeResult{Verdicts: []domain.JudgeVerdict{
		verdict("A", domain.VerdictPass),
		verdict("Z", domain.VerdictFail),
	}}

	record, err := NewEngine().Compare(ctx, sample, result)
	require.NoError(t, err)
	assert.Len(t, record.Courses, 1)
	assert.Contains(t, buf.String(), "unknown courses")
	assert.Contains(t, buf.String(), `"WARN"`)
}
