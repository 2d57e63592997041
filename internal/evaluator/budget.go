package evaluator

import (
	"fmt"
	"strings"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
)

type BudgetEnforcer struct {
	maxPromptTokens int
	maxRunTokens    int
	maxRunCost      float64
}

func NewBudgetEnforcer() *BudgetEnforcer {
	return &BudgetEnforcer{
		maxPromptTokens: 20000,
		maxRunTokens:    5_000_000,
		maxRunCost:      50.0,
	}
}

// CheckPromptBudget rejects prompts whose estimated size exceeds the per-call
// budget.
func (b *BudgetEnforcer) CheckPromptBudget(prompt string) error {
	estimatedTokens := EstimateTokens(prompt)
	if estimatedTokens > b.maxPromptTokens {
		return fmt.Errorf("prompt exceeds token budget: %d > %d",
			estimatedTokens, b.maxPromptTokens)
	}
	return nil
}

// CheckRunBudget reports whether a run's accumulated usage is over budget.
func (b *BudgetEnforcer) CheckRunBudget(usage domain.TokenUsage) error {
	if usage.TotalTokens > b.maxRunTokens {
		return fmt.Errorf("run exceeded token budget: %d > %d",
			usage.TotalTokens, b.maxRunTokens)
	}
	if usage.EstimatedCostUSD > b.maxRunCost {
		return fmt.Errorf("run exceeded cost budget: $%.2f > $%.2f",
			usage.EstimatedCostUSD, b.maxRunCost)
	}
	return nil
}

// Pricing per 1K tokens (input, output).
var prices = map[string]struct{ prompt, completion float64 }{
	"gpt-4o":            {0.0025, 0.010},
	"gpt-4o-mini":       {0.00015, 0.0006},
	"gpt-4.1":           {0.002, 0.008},
	"gpt-4.1-mini":      {0.0004, 0.0016},
	"gpt-4-turbo":       {0.01, 0.03},
	"claude-3-haiku":    {0.00025, 0.00125},
	"claude-3-5-sonnet": {0.003, 0.015},
	"claude-sonnet-4":   {0.003, 0.015},
}

// CalculateCost estimates cost from the model's list price. Dated model
// names such as "gpt-4o-mini-2024-07-18" use the longest matching prefix.
// Unknown and self-hosted models cost 0.
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	best := ""
	for name := range prices {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return 0.0
	}

	p := prices[best]
	promptCost := (float64(promptTokens) / 1000) * p.prompt
	completionCost := (float64(completionTokens) / 1000) * p.completion

	return promptCost + completionCost
}
