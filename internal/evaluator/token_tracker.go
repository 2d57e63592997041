package evaluator

import (
	"context"
	"sort"
	"sync"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/chainguard-dev/clog"
)

// TokenTracker accumulates judge token usage per model. It is safe for
// concurrent use.
type TokenTracker struct {
	mu    sync.RWMutex
	usage map[string]*modelUsage
}

type modelUsage struct {
	domain.TokenUsage
	calls int
}

func NewTokenTracker() *TokenTracker {
	return &TokenTracker{
		usage: make(map[string]*modelUsage),
	}
}

// EstimateTokens approximates ~4 characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}

func (t *TokenTracker) RecordUsage(u domain.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.usage[u.ModelName]
	if !ok {
		m = &modelUsage{}
		t.usage[u.ModelName] = m
	}
	m.TokenUsage = m.TokenUsage.Add(u)
	m.calls++
}

// Total sums usage over every model.
func (t *TokenTracker) Total() domain.TokenUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total domain.TokenUsage
	for _, name := range t.models() {
		total = total.Add(t.usage[name].TokenUsage)
	}
	return total
}

func (t *TokenTracker) Calls() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, m := range t.usage {
		n += m.calls
	}
	return n
}

func (t *TokenTracker) models() []string {
	names := make([]string, 0, len(t.usage))
	for name := range t.usage {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *TokenTracker) LogUsageSummary(ctx context.Context) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	log := clog.FromContext(ctx)
	for _, name := range t.models() {
		m := t.usage[name]
		log.With("model", name,
			"calls", m.calls,
			"total_tokens", m.TotalTokens,
			"avg_tokens", m.TotalTokens/max(m.calls, 1),
			"cost_usd", m.EstimatedCostUSD,
		).Info("judge token usage")
	}
}
