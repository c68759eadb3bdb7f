package generate

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SAZZAD-404/vidpilot/internal/localgen"
	"github.com/SAZZAD-404/vidpilot/internal/normalize"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/internal/prompt"
	"github.com/SAZZAD-404/vidpilot/internal/resilience"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

// Voice renders req.Text to audio for userID.
//
// Every remote voice provider is tried in priority order, then the local
// speech synthesizer, then a placeholder tone. The returned trail records
// each state visited. A placeholder result is delivered without debiting a
// credit. Running out of the generation timeout sends the request to the
// local synthesizer like an exhausted chain does.
func (s *Service) Voice(ctx context.Context, userID string, req content.VoiceRequest) (res content.VoiceResult, err error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return content.VoiceResult{}, err
	}
	if err := s.preflight(ctx, userID); err != nil {
		return content.VoiceResult{}, err
	}

	caller := ctx
	cfg := s.current()
	ctx, cancel := withTimeout(ctx, cfg.Generation.Timeout)
	defer cancel()

	ctx, span := observe.StartSpan(ctx, "generate.voice", trace.WithAttributes(
		attribute.String("voice", req.Voice),
		attribute.String("language", req.Language),
	))
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	s.metrics.ActiveGenerations.Add(ctx, 1)
	defer s.metrics.ActiveGenerations.Add(ctx, -1)

	profile := voice.ProfileFor(req.Voice, req.Language, req.Speed)
	chains := s.chains(ctx, cfg)
	out, err := resilience.Execute(ctx, chains.Voice, s.policy(cfg, "voice"),
		func(ctx context.Context, name string, p voice.Provider) (a content.Audio, err error) {
			ctx, end := startAttempt(ctx, cfg.Generation.ProviderTimeout, "voice", name)
			defer func() { end(err) }()
			script := req.Text
			if limit := provider.LimitsOf(p).MaxInputChars; limit > 0 {
				script = prompt.Truncate(script, limit)
			}
			blob, err := p.Synthesize(ctx, script, profile)
			if err != nil {
				return content.Audio{}, err
			}
			return normalize.Audio(blob)
		})

	res = content.VoiceResult{Script: req.Text, Trail: trail(out.Attempts)}
	switch {
	case err == nil:
		res.Provider = out.Provider
		res.Audio = out.Value
		res.State = content.VoiceSucceeded
	case exhausted(err) || overBudget(caller, err):
		var done context.CancelFunc
		ctx, done = finishing(ctx)
		defer done()
		observe.Logger(ctx).Info("voice chain exhausted; synthesizing locally",
			"attempts", len(out.Attempts), "err", err)
		s.metrics.RecordFallback(ctx, "voice")
		s.speakLocally(ctx, &res, profile)
	default:
		return content.VoiceResult{}, fmt.Errorf("generate: voice: %w", err)
	}

	res.ID = s.newID()
	res.CreatedAt = s.now().UTC()
	res.EstimatedDuration = content.EstimateDuration(req.Text)
	span.SetAttributes(
		attribute.String("provider", res.Provider),
		attribute.String("state", string(res.State)),
		attribute.String("generation_id", res.ID),
	)
	s.metrics.RecordGeneration(ctx, "voice", res.Provider, string(res.State), time.Since(start))

	if res.State != content.VoicePlaceholder {
		if err := s.consume(ctx, userID, res.ID, "voice"); err != nil {
			return content.VoiceResult{}, err
		}
	}
	return res, nil
}

// speakLocally runs the local synthesizer and falls back to placeholder
// audio when it fails.
func (s *Service) speakLocally(ctx context.Context, res *content.VoiceResult, profile voice.Profile) {
	res.Provider = content.LocalProvider
	res.Trail = append(res.Trail, content.VoiceStep{State: content.VoiceLocalSynthesis})
	a, err := s.speaker.Speak(ctx, res.Script, profile)
	if err == nil {
		res.Audio = a
		res.State = content.VoicePlaybackReady
		res.Trail = append(res.Trail, content.VoiceStep{State: content.VoicePlaybackReady})
		return
	}
	observe.Logger(ctx).Warn("local speech synthesis failed; using placeholder audio", "err", err)
	res.Audio = localgen.Placeholder(res.Script)
	res.State = content.VoicePlaceholder
	res.Trail = append(res.Trail,
		content.VoiceStep{State: content.VoiceRecordingFailed},
		content.VoiceStep{State: content.VoicePlaceholder},
	)
}

// trail converts the attempt log into state machine steps, starting at
// Idle. Every attempt, rate-limit retries included, is one Requesting step
// followed by its Succeeded or Failed step.
func trail(attempts []resilience.Attempt) []content.VoiceStep {
	steps := make([]content.VoiceStep, 0, 1+2*len(attempts))
	steps = append(steps, content.VoiceStep{State: content.VoiceIdle})
	for _, a := range attempts {
		steps = append(steps, content.VoiceStep{State: content.VoiceRequesting, Provider: a.Provider})
		next := content.VoiceFailed
		if a.Result == resilience.ResultSuccess {
			next = content.VoiceSucceeded
		}
		steps = append(steps, content.VoiceStep{State: next, Provider: a.Provider})
	}
	return steps
}
