// Package evaluator asks a judge for a PASS/FAIL verdict on every course the
// filter scored for a question.
package evaluator

import (
	"context"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/llm"
)

// Judge returns one verdict per course. Implementations must not invent
// verdicts for courses they could not judge.
type Judge interface {
	Name() string
	Evaluate(ctx context.Context, question string, courses []domain.AggregatedCourse) (domain.JudgeResult, error)
}

// Completer is the part of llm.Client the judge needs.
type Completer interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}
