// Package generate orchestrates one generation end to end: validation, the
// credit pre-check, the provider chain with local fallback, scoring, credit
// consumption and history persistence.
//
// Caption, post and story share the text path; voice-overs run their own
// chain and report a state trail alongside the audio.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/credits"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/localgen"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/internal/resilience"
)

// Service runs generations. It is safe for concurrent use.
type Service struct {
	registry *config.Registry
	current  func() *config.Config
	ledger   credits.Ledger

	env     config.LookupEnv
	history history.Store
	speaker localgen.Speaker
	metrics *observe.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	newID   func() string
	log     *slog.Logger
}

// Option configures a [Service].
type Option func(*Service)

// WithEnv sets the environment used to resolve provider credentials.
// Default: [config.OSEnv].
func WithEnv(env config.LookupEnv) Option {
	return func(s *Service) { s.env = env }
}

// WithHistory enables persistence of successful generations.
func WithHistory(st history.Store) Option {
	return func(s *Service) { s.history = st }
}

// WithSpeaker sets the local speech synthesizer used when every voice
// provider fails.
func WithSpeaker(sp localgen.Speaker) Option {
	return func(s *Service) { s.speaker = sp }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSleep replaces the wait between rate-limit retries.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// WithClock sets the time source for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs sets the generation ID source. Default: random UUIDs.
func WithIDs(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New returns a Service. current is called once per generation so that
// config reloads take effect without a restart.
func New(reg *config.Registry, current func() *config.Config, ledger credits.Ledger, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		current:  current,
		ledger:   ledger,
		env:      config.OSEnv,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.speaker == nil {
		s.speaker = &localgen.LocalSpeaker{Binary: s.current().Generation.LocalSynthesizer}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Balance returns the user's remaining credits.
func (s *Service) Balance(ctx context.Context, userID string) (credits.Balance, error) {
	return s.ledger.Balance(ctx, userID)
}

// preflight refuses the request when the user has no credits left. The
// provider chain is never invoked in that case.
func (s *Service) preflight(ctx context.Context, userID string) error {
	bal, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("generate: credit check: %w", err)
	}
	if bal.Remaining <= 0 {
		s.metrics.RecordCreditRejected(ctx)
		return credits.ErrInsufficient
	}
	return nil
}

// chains builds the provider chains from the current config. Unregistered
// entries are logged and left out; the rest of both chains still runs.
func (s *Service) chains(ctx context.Context, cfg *config.Config) config.Chains {
	ch, err := s.registry.Build(ctx, cfg, s.env)
	if err != nil {
		observe.Logger(ctx).Error("skipping unregistered providers", "err", err)
	}
	return ch
}

func (s *Service) policy(cfg *config.Config, chain string) resilience.Policy {
	p := resilience.DefaultPolicy()
	g := cfg.Generation
	if g.MaxRateLimitRetries != nil {
		p.MaxRateLimitRetries = *g.MaxRateLimitRetries
	}
	if g.RetryBaseDelay > 0 {
		p.BaseDelay = g.RetryBaseDelay
	}
	if g.MaxRetryDelay > 0 {
		p.MaxDelay = g.MaxRetryDelay
	}
	p.Sleep = s.sleep
	p.OnAttempt = func(ctx context.Context, a resilience.Attempt) {
		s.metrics.RecordAttempt(ctx, chain, a.Provider, string(a.Result), a.Duration)
	}
	return p
}

// withTimeout derives the per-generation context.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// startAttempt bounds one provider call by the per-provider timeout and
// opens its span. The returned func ends both.
func startAttempt(ctx context.Context, d time.Duration, chain, name string) (context.Context, func(error)) {
	ctx, cancel := withTimeout(ctx, d)
	ctx, span := observe.StartSpan(ctx, "provider."+chain, trace.WithAttributes(
		attribute.String("provider", name),
	))
	return ctx, func(err error) {
		observe.EndSpan(span, err)
		cancel()
	}
}

// exhausted reports whether err means the chain produced nothing and the
// local fallback should run.
func exhausted(err error) bool {
	return errors.Is(err, resilience.ErrNoProviders) || errors.Is(err, resilience.ErrAllFailed)
}

// finishTimeout bounds the local fallback and bookkeeping that run after
// the generation deadline has passed.
const finishTimeout = 10 * time.Second

// overBudget reports whether err is the generation deadline firing while
// the caller is still waiting. The chain is then treated as exhausted.
func overBudget(caller context.Context, err error) bool {
	return caller.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

// finishing returns ctx unchanged while it is live. Once it is done it
// returns a short context carrying the same values, so the fallback and
// the credit debit can still complete.
func finishing(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
}

// consume debits one credit for generation id. Any failure other than an
// exhausted balance is logged and the result is still returned: the user
// already waited for the work.
func (s *Service) consume(ctx context.Context, userID, id, kind string) error {
	_, err := s.ledger.Consume(ctx, userID, id)
	switch {
	case err == nil:
		s.metrics.RecordCreditConsumed(ctx, kind)
		return nil
	case errors.Is(err, credits.ErrInsufficient):
		// Another request spent the last credit while this one ran.
		s.metrics.RecordCreditRejected(ctx)
		return err
	default:
		observe.Logger(ctx).Error("credit consumption failed", "user", userID, "generation_id", id, "err", err)
		return nil
	}
}

// IsUpgradeRequired reports whether err means the user has run out of
// credits and must upgrade.
func IsUpgradeRequired(err error) bool {
	return errors.Is(err, credits.ErrInsufficient)
}
