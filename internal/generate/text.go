package generate

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/localgen"
	"github.com/SAZZAD-404/vidpilot/internal/normalize"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/internal/prompt"
	"github.com/SAZZAD-404/vidpilot/internal/resilience"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

// Text generates a caption, post or story for userID.
//
// Errors are limited to [content.ErrInvalidRequest], credits.ErrInsufficient,
// [localgen.ErrFallbackFailed] and the caller's context errors: provider
// failures are absorbed by the chain and the local generator. Running out
// of the generation timeout counts as an exhausted chain.
func (s *Service) Text(ctx context.Context, userID string, req content.Request) (res content.Result, err error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return content.Result{}, err
	}
	if err := s.preflight(ctx, userID); err != nil {
		return content.Result{}, err
	}

	caller := ctx
	cfg := s.current()
	ctx, cancel := withTimeout(ctx, cfg.Generation.Timeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "generate."+string(req.Kind), trace.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("platform", string(req.Platform)),
	))
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	s.metrics.ActiveGenerations.Add(ctx, 1)
	defer s.metrics.ActiveGenerations.Add(ctx, -1)

	base := prompt.Build(req)
	chains := s.chains(ctx, cfg)
	out, err := resilience.Execute(ctx, chains.Text, s.policy(cfg, "text"),
		func(ctx context.Context, name string, p text.Provider) (r content.Result, err error) {
			ctx, end := startAttempt(ctx, cfg.Generation.ProviderTimeout, "text", name)
			defer func() { end(err) }()
			resp, err := p.Generate(ctx, prompt.Fit(base, provider.LimitsOf(p)))
			if err != nil {
				return content.Result{}, err
			}
			return normalize.Text(req.Kind, resp)
		})

	outcome := "provider"
	switch {
	case err == nil:
		res = out.Value
		res.Provider = out.Provider
	case exhausted(err) || overBudget(caller, err):
		var done context.CancelFunc
		ctx, done = finishing(ctx)
		defer done()
		observe.Logger(ctx).Info("provider chain exhausted; generating locally",
			"kind", req.Kind, "attempts", len(out.Attempts), "err", err)
		res, err = localgen.Text(req)
		if err != nil {
			return content.Result{}, err
		}
		outcome = "fallback"
		s.metrics.RecordFallback(ctx, string(req.Kind))
	default:
		return content.Result{}, fmt.Errorf("generate: %s: %w", req.Kind, err)
	}

	res.ID = s.newID()
	res.Kind = req.Kind
	res.Topic = req.Topic
	res.CreatedAt = s.now().UTC()
	res.Metrics = normalize.Score(req, res)
	span.SetAttributes(attribute.String("provider", res.Provider), attribute.String("generation_id", res.ID))
	s.metrics.RecordGeneration(ctx, string(req.Kind), res.Provider, outcome, time.Since(start))

	if err := s.consume(ctx, userID, res.ID, string(req.Kind)); err != nil {
		return content.Result{}, err
	}
	s.save(ctx, userID, res)
	return res, nil
}

// save persists res. Failures are logged and never surfaced.
func (s *Service) save(ctx context.Context, userID string, res content.Result) {
	if s.history == nil {
		return
	}
	// Persist even when the request context has just expired.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Save(ctx, history.Record{UserID: userID, Result: res}); err != nil {
		observe.Logger(ctx).Warn("history save failed", "generation_id", res.ID, "err", err)
	}
}
