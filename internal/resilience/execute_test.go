package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

var errTest = errors.New("test error")

// script maps a provider name to the errors it returns on successive calls;
// once exhausted the provider succeeds.
type script map[string][]error

type recorder struct {
	calls  []string
	sleeps []time.Duration
}

func (r *recorder) policy() Policy {
	p := DefaultPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		r.sleeps = append(r.sleeps, d)
		return nil
	}
	return p
}

func (r *recorder) fn(s script) func(context.Context, string, string) (string, error) {
	seen := map[string]int{}
	return func(_ context.Context, name, v string) (string, error) {
		r.calls = append(r.calls, name)
		i := seen[name]
		seen[name]++
		if i < len(s[name]) {
			return "", s[name][i]
		}
		return "value from " + v, nil
	}
}

func desc(name string, prio int, cred bool) Descriptor[string] {
	return Descriptor[string]{Name: name, Priority: prio, CredentialPresent: cred, Value: name}
}

func rateLimited(after time.Duration) error {
	return &provider.StatusError{Provider: "x", StatusCode: 429, RetryAfter: after}
}

func TestExecute_NoCredentials(t *testing.T) {
	var r recorder
	c := NewChain(desc("openai", 1, false), desc("groq", 2, false))
	_, err := Execute(context.Background(), c, r.policy(), r.fn(nil))
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("err = %v, want ErrNoProviders", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("providers were called: %v", r.calls)
	}
}

func TestExecute_PriorityOrderAndStop(t *testing.T) {
	var r recorder
	c := NewChain(
		desc("gemini", 3, true),
		desc("openai", 1, true),
		desc("groq", 2, true),
		desc("murf", 2, true),
		desc("skipped", 0, false),
	)
	out, err := Execute(context.Background(), c, r.policy(), r.fn(script{
		"openai": {errTest},
		"groq":   {&provider.StatusError{StatusCode: 500}},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"openai", "groq", "murf"}; !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if out.Provider != "murf" || out.Value != "value from murf" {
		t.Errorf("unexpected outcome %+v", out)
	}
	if len(out.Attempts) != 3 || out.Attempts[1].StatusCode != 500 || out.Attempts[2].Result != ResultSuccess {
		t.Errorf("unexpected attempts %+v", out.Attempts)
	}
	if len(r.sleeps) != 0 {
		t.Errorf("non-429 failures must not sleep: %v", r.sleeps)
	}
}

func TestExecute_RateLimitRetriesBounded(t *testing.T) {
	var r recorder
	c := NewChain(desc("openai", 1, true), desc("groq", 2, true))
	out, err := Execute(context.Background(), c, r.policy(), r.fn(script{
		"openai": {rateLimited(0), rateLimited(0), rateLimited(0), rateLimited(0)},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"openai", "openai", "openai", "groq"}; !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(r.sleeps, want) {
		t.Errorf("sleeps = %v, want %v", r.sleeps, want)
	}
	if out.Attempts[2].Number != 3 || out.Attempts[2].Result != ResultRateLimited {
		t.Errorf("unexpected third attempt %+v", out.Attempts[2])
	}
}

func TestExecute_RateLimitThenSuccess(t *testing.T) {
	var r recorder
	c := NewChain(desc("openai", 1, true), desc("groq", 2, true))
	out, err := Execute(context.Background(), c, r.policy(), r.fn(script{
		"openai": {rateLimited(3 * time.Second)},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Provider != "openai" || len(r.calls) != 2 {
		t.Errorf("provider = %s calls = %v", out.Provider, r.calls)
	}
	if !slices.Equal(r.sleeps, []time.Duration{3 * time.Second}) {
		t.Errorf("Retry-After not honoured: %v", r.sleeps)
	}
}

func TestExecute_AllFailedWrapsLast(t *testing.T) {
	var r recorder
	last := &provider.StatusError{Provider: "groq", StatusCode: 503}
	c := NewChain(desc("openai", 1, true), desc("groq", 2, true))
	out, err := Execute(context.Background(), c, r.policy(), r.fn(script{
		"openai": {errTest},
		"groq":   {last},
	}))
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	var se *provider.StatusError
	if !errors.As(err, &se) || se != last {
		t.Errorf("last error not wrapped: %v", err)
	}
	if len(out.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(out.Attempts))
	}
}

func TestExecute_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewChain(desc("openai", 1, true), desc("groq", 2, true))
	var calls []string
	_, err := Execute(ctx, c, DefaultPolicy(), func(_ context.Context, name, _ string) (string, error) {
		calls = append(calls, name)
		cancel()
		return "", context.Canceled
	})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled unwrapped", err)
	}
	if len(calls) != 1 {
		t.Errorf("chain continued after cancellation: %v", calls)
	}
}

func TestExecute_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := DefaultPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	c := NewChain(desc("openai", 1, true))
	_, err := Execute(ctx, c, p, func(context.Context, string, string) (string, error) {
		return "", rateLimited(0)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestExecute_OnAttempt(t *testing.T) {
	var r recorder
	var seen []Result
	p := r.policy()
	p.OnAttempt = func(_ context.Context, a Attempt) { seen = append(seen, a.Result) }
	c := NewChain(desc("a", 1, true), desc("b", 2, true))
	_, _ = Execute(context.Background(), c, p, r.fn(script{"a": {rateLimited(0), errTest}}))
	want := []Result{ResultRateLimited, ResultFailed, ResultSuccess}
	if !slices.Equal(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestRetryDelay(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		n          int
		retryAfter time.Duration
		want       time.Duration
	}{
		{1, 0, time.Second},
		{2, 0, 2 * time.Second},
		{3, 0, 4 * time.Second},
		{5, 0, 10 * time.Second},
		{1, 500 * time.Millisecond, 500 * time.Millisecond},
		{1, time.Minute, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.retryDelay(tt.n, tt.retryAfter); got != tt.want {
			t.Errorf("retryDelay(%d, %v) = %v, want %v", tt.n, tt.retryAfter, got, tt.want)
		}
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("err = %v", err)
	}
}
