package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

var (
	// ErrNoProviders is returned when no descriptor in the chain has a
	// credential.
	ErrNoProviders = errors.New("resilience: no providers available")

	// ErrAllFailed is returned, wrapping the last provider error, when every
	// credentialed provider failed.
	ErrAllFailed = errors.New("resilience: all providers failed")
)

// Result classifies one attempt.
type Result string

const (
	ResultSuccess     Result = "success"
	ResultRateLimited Result = "rate_limited"
	ResultFailed      Result = "failed"
	ResultCanceled    Result = "canceled"
)

// Attempt records one provider invocation.
type Attempt struct {
	Provider string
	// Number is 1 for the first call to a provider and increases with each
	// rate-limit retry.
	Number     int
	Result     Result
	StatusCode int
	Err        error
	Duration   time.Duration
}

// Outcome is the result of [Execute].
type Outcome[R any] struct {
	Value    R
	Provider string
	// Attempts lists every invocation in the order it happened, including
	// those of providers that ultimately failed.
	Attempts []Attempt
}

// Policy tunes [Execute]. The zero value is not useful; start from
// [DefaultPolicy].
type Policy struct {
	// MaxRateLimitRetries is how many extra calls a provider gets after
	// answering 429.
	MaxRateLimitRetries int
	// BaseDelay is the first retry delay when the provider sent no
	// Retry-After; it doubles with every retry.
	BaseDelay time.Duration
	// MaxDelay caps every retry delay, including server-requested ones.
	MaxDelay time.Duration
	// Sleep waits between retries. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnAttempt, when set, is called after every attempt.
	OnAttempt func(ctx context.Context, a Attempt)
	// Logger receives attempt logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultPolicy returns the standard retry policy: two retries on 429, one
// second initial backoff, ten second cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRateLimitRetries: 2,
		BaseDelay:           time.Second,
		MaxDelay:            10 * time.Second,
	}
}

// Execute runs fn against the chain's credentialed providers in priority
// order and returns the first success.
//
// A provider that fails with a 429 [provider.StatusError] is retried up to
// p.MaxRateLimitRetries more times before the chain moves on; any other error
// moves on immediately. Context cancellation stops the chain and the context
// error is returned unwrapped.
//
// The returned Outcome carries the attempt log even when err is non-nil.
func Execute[T, R any](ctx context.Context, c *Chain[T], p Policy, fn func(ctx context.Context, name string, v T) (R, error)) (Outcome[R], error) {
	var out Outcome[R]
	runnable := c.Runnable()
	if len(runnable) == 0 {
		return out, ErrNoProviders
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	var lastErr error
	for _, d := range runnable {
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			start := time.Now()
			v, err := fn(ctx, d.Name, d.Value)
			a := Attempt{Provider: d.Name, Number: n, Duration: time.Since(start), Err: err}

			switch {
			case err == nil:
				a.Result = ResultSuccess
			case ctx.Err() != nil:
				a.Result = ResultCanceled
			case provider.IsRateLimited(err):
				a.Result = ResultRateLimited
			default:
				a.Result = ResultFailed
			}
			a.StatusCode = provider.StatusCodeOf(err)
			out.Attempts = append(out.Attempts, a)
			p.record(ctx, log, a)

			if err == nil {
				out.Value = v
				out.Provider = d.Name
				return out, nil
			}
			if a.Result == ResultCanceled {
				return out, ctx.Err()
			}
			lastErr = err
			if a.Result != ResultRateLimited || n > p.MaxRateLimitRetries {
				break
			}
			if err := p.sleep(ctx, p.retryDelay(n, provider.RetryAfterOf(err))); err != nil {
				return out, err
			}
		}
	}
	return out, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}

func (p Policy) record(ctx context.Context, log *slog.Logger, a Attempt) {
	attrs := []any{"provider", a.Provider, "attempt", a.Number, "outcome", string(a.Result), "duration", a.Duration}
	if a.StatusCode != 0 {
		attrs = append(attrs, "status", a.StatusCode)
	}
	switch a.Result {
	case ResultSuccess:
		log.DebugContext(ctx, "provider attempt succeeded", attrs...)
	case ResultRateLimited:
		log.WarnContext(ctx, "provider rate limited", append(attrs, "error", a.Err)...)
	default:
		log.WarnContext(ctx, "provider failed, trying next", append(attrs, "error", a.Err)...)
	}
	if p.OnAttempt != nil {
		p.OnAttempt(ctx, a)
	}
}
