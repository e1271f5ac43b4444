package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoCandidates is returned by FirstSuccess when the candidate list is empty.
var ErrNoCandidates = eris.New("resilience: no candidates")

// FallbackConfig controls a single ordered pass over a list of candidates.
type FallbackConfig struct {
	// Pause is the minimum delay between two consecutive attempts.
	// Zero or negative means attempts run back to back.
	Pause time.Duration

	// OnFailure is called after each failed attempt with the 1-based attempt
	// number, the candidate and the error.
	OnFailure func(attempt int, candidate string, err error)
}

// FirstSuccess calls fn once per candidate, in order, and returns the first
// successful value together with the candidate that produced it. Attempts are
// paced by a limiter with one token per Pause, so the first attempt starts
// immediately and every later one waits. There is no second pass: when every
// candidate fails an *ExhaustedError describing each attempt is returned.
// Context cancellation stops the pass immediately.
func FirstSuccess[T any](ctx context.Context, candidates []string, cfg FallbackConfig, fn func(ctx context.Context, candidate string) (T, error)) (T, string, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, "", ErrNoCandidates
	}

	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	limiter := rate.NewLimiter(limit, 1)

	attempts := make([]Attempt, 0, len(candidates))
	for i, candidate := range candidates {
		if err := pace(ctx, limiter); err != nil {
			return zero, "", eris.Wrap(err, "resilience: fallback cancelled")
		}

		val, err := fn(ctx, candidate)
		if err == nil {
			return val, candidate, nil
		}

		attempts = append(attempts, Attempt{Candidate: candidate, Err: err})

		if ctx.Err() != nil {
			return zero, "", eris.Wrap(ctx.Err(), "resilience: fallback cancelled")
		}

		if cfg.OnFailure != nil {
			cfg.OnFailure(i+1, candidate, err)
		}
	}

	return zero, "", &ExhaustedError{Attempts: attempts}
}

// pace blocks until the limiter grants the next attempt or ctx is done. Unlike
// rate.Limiter.Wait it does not give up early when the ctx deadline falls
// inside the pause.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FailureLogger returns an OnFailure callback that logs each failed attempt.
func FailureLogger(service string) func(int, string, error) {
	return func(attempt int, candidate string, err error) {
		zap.L().Warn("candidate failed, trying next",
			zap.String("service", service),
			zap.String("candidate", candidate),
			zap.Int("attempt", attempt),
			zap.Bool("transient", IsTransient(err)),
			zap.Error(err),
		)
	}
}
