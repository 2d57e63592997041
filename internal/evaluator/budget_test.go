package evaluator

import (
	"context"
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.00075, CalculateCost("gpt-4o-mini", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.00075, CalculateCost("gpt-4o-mini-2024-07-18", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.0125, CalculateCost("gpt-4o", 1000, 1000), 1e-9)
	assert.Zero(t, CalculateCost("llama3.1:8b", 1000, 1000))
}

func TestCheckRunBudget(t *testing.T) {
	b := NewBudgetEnforcer()

	assert.NoError(t, b.CheckRunBudget(domain.TokenUsage{TotalTokens: 100, EstimatedCostUSD: 1}))
	assert.Error(t, b.CheckRunBudget(domain.TokenUsage{TotalTokens: 6_000_000}))
	assert.Error(t, b.CheckRunBudget(domain.TokenUsage{EstimatedCostUSD: 51}))
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.RecordUsage(domain.TokenUsage{TotalTokens: 10, ModelName: "a"})
	tr.RecordUsage(domain.TokenUsage{TotalTokens: 5, ModelName: "a"})
	tr.RecordUsage(domain.TokenUsage{TotalTokens: 1, ModelName: "b"})

	total := tr.Total()
	assert.Equal(t, 16, total.TotalTokens)
	assert.Equal(t, "mixed", total.ModelName)
	assert.Equal(t, 3, tr.Calls())

	tr.LogUsageSummary(context.Background())
}
