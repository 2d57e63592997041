/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0

Adapted from chainguard.dev/driftlessaf/agents/executor/retry. Changes: the
defaults come from the runner configuration, a canceled context stops retrying
before the backoff is computed, retries are counted in a Prometheus counter,
and the backoff computation is split out.
*/

package worker

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	"github.com/chainguard-dev/clog"
)

type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt. 0 disables
	// retrying.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

func RetryConfigFrom(cfg *config.RunnerConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		MaxJitter:   cfg.MaxJitter,
	}
}

// backoff is BaseBackoff doubled per attempt, capped at MaxBackoff.
func (c RetryConfig) backoff(attempt int) time.Duration {
	if attempt >= 62 || c.BaseBackoff<<attempt < c.BaseBackoff {
		return c.MaxBackoff
	}
	return min(c.BaseBackoff<<attempt, c.MaxBackoff)
}

func (c RetryConfig) jitter() time.Duration {
	if c.MaxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(c.MaxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable error
// or runs out of retries. The wait doubles from BaseBackoff up to MaxBackoff
// plus random jitter.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) || ctx.Err() != nil {
			return result, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		wait := cfg.backoff(attempt) + cfg.jitter()

		judgeRetries.Inc()
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Judge call failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}
