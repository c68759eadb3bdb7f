package main

import (
	"context"
	"strconv"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text/anyllm"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text/gemini"
	hftext "github.com/SAZZAD-404/vidpilot/pkg/provider/text/huggingface"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text/openai"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice/elevenlabs"
	hfvoice "github.com/SAZZAD-404/vidpilot/pkg/provider/voice/huggingface"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice/murf"
)

// builtinRegistry returns a registry holding every built-in provider.
func builtinRegistry() *config.Registry {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	return reg
}

// registerBuiltinProviders wires every built-in provider factory into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Text ──────────────────────────────────────────────────────────────────

	reg.RegisterText("openai", func(_ context.Context, e config.ProviderEntry, key string) (text.Provider, error) {
		opts := []openai.Option{}
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		if org := e.Option("organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if n := intOption(e, "max_input_chars"); n > 0 {
			opts = append(opts, openai.WithMaxInputChars(n))
		}
		return openai.New(key, e.Model, opts...)
	})

	reg.RegisterText("groq", func(_ context.Context, e config.ProviderEntry, key string) (text.Provider, error) {
		opts := []openai.Option{}
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		if n := intOption(e, "max_input_chars"); n > 0 {
			opts = append(opts, openai.WithMaxInputChars(n))
		}
		return openai.NewGroq(key, e.Model, opts...)
	})

	reg.RegisterText("gemini", func(ctx context.Context, e config.ProviderEntry, key string) (text.Provider, error) {
		opts := []gemini.Option{}
		if e.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(e.BaseURL))
		}
		if n := intOption(e, "max_input_chars"); n > 0 {
			opts = append(opts, gemini.WithMaxInputChars(n))
		}
		return gemini.New(ctx, key, e.Model, opts...)
	})

	// deepseek, mistral and anthropic take an API key; ollama and llamacpp are
	// local servers addressed by base_url only.
	for _, name := range anyllm.Backends {
		reg.RegisterText(name, func(_ context.Context, e config.ProviderEntry, key string) (text.Provider, error) {
			var opts []anyllmlib.Option
			if key != "" {
				opts = append(opts, anyllmlib.WithAPIKey(key))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(name, e.Model, opts...)
		})
	}

	reg.RegisterText("huggingface", func(_ context.Context, e config.ProviderEntry, key string) (text.Provider, error) {
		opts := []hftext.Option{}
		if e.BaseURL != "" {
			opts = append(opts, hftext.WithBaseURL(e.BaseURL))
		}
		return hftext.New(key, e.Model, opts...)
	})

	// ── Voice ─────────────────────────────────────────────────────────────────

	reg.RegisterVoice("elevenlabs", func(_ context.Context, e config.ProviderEntry, key string) (voice.Provider, error) {
		opts := []elevenlabs.Option{}
		if e.Model != "" {
			opts = append(opts, elevenlabs.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(e.BaseURL))
		}
		if f := e.Option("output_format"); f != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(f))
		}
		return elevenlabs.New(key, opts...)
	})

	reg.RegisterVoice("murf", func(_ context.Context, e config.ProviderEntry, key string) (voice.Provider, error) {
		opts := []murf.Option{}
		if e.BaseURL != "" {
			opts = append(opts, murf.WithBaseURL(e.BaseURL))
		}
		if f := e.Option("format"); f != "" {
			opts = append(opts, murf.WithFormat(f))
		}
		return murf.New(key, opts...)
	})

	reg.RegisterVoice("huggingface-tts", func(_ context.Context, e config.ProviderEntry, key string) (voice.Provider, error) {
		opts := []hfvoice.Option{}
		if e.Model != "" {
			opts = append(opts, hfvoice.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, hfvoice.WithBaseURL(e.BaseURL))
		}
		return hfvoice.New(key, opts...)
	})
}

// intOption reads an integer provider option. YAML decodes bare numbers as
// int; quoted numbers are accepted too.
func intOption(e config.ProviderEntry, key string) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
