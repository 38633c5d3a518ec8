// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the maximum number of invocations (must be > 0).
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles for each
	// subsequent attempt.
	BaseDelay time.Duration

	// Jitter is the fraction of the computed delay randomized in both
	// directions (0.2 means ±20%). Zero disables jitter.
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
}

// DefaultPolicy returns the standard policy: 3 attempts, 1 second base
// delay, ±20% jitter, every error retried.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		Jitter:      0.2,
	}
}

// Do invokes operation up to p.MaxAttempts times with exponential backoff
// between attempts. Errors rejected by p.Retryable return immediately after
// a single invocation. When every attempt fails with a retryable error, the
// last error is returned wrapped in *ExhaustedError so callers can tell an
// exhausted budget apart from a first-attempt rejection.
func (p Policy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			slog.Debug("operation failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		// Sleep with context awareness
		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

// delay returns the backoff before attempt+1: BaseDelay * 2^(attempt-1),
// randomized by ±Jitter.
func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	if p.Jitter > 0 {
		jitter := float64(delay) * p.Jitter * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// DoValue is the value-returning form of Policy.Do for operations that
// produce a result alongside an error.
func DoValue[T any](ctx context.Context, p Policy, operation func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func() error {
		var opErr error
		result, opErr = operation()
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
