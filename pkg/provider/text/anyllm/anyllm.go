// Package anyllm provides text providers backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface. It
// covers the vendors VidPilot has no dedicated adapter for: DeepSeek, Mistral,
// Anthropic and local Ollama or llama.cpp servers.
//
// Usage:
//
//	p, err := anyllm.New("deepseek", "deepseek-chat", anyllmlib.WithAPIKey("sk-..."))
//	p, err := anyllm.New("ollama", "llama3.2")
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

// Backends lists the provider names accepted by [New].
var Backends = []string{"deepseek", "mistral", "anthropic", "ollama", "llamacpp"}

// Provider implements text.Provider by wrapping an any-llm-go backend.
type Provider struct {
	backend anyllmlib.Provider
	name    string
	model   string
	limits  provider.Limits
}

var _ text.Provider = (*Provider)(nil)

// New creates a Provider backed by the named any-llm-go backend.
//
// opts are any-llm-go configuration options (e.g. anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option the backend reads its
// conventional environment variable (DEEPSEEK_API_KEY, MISTRAL_API_KEY …).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	name := strings.ToLower(providerName)
	backend, err := createBackend(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Provider{
		backend: backend,
		name:    name,
		model:   model,
		limits:  provider.Limits{MaxInputChars: maxInputFor(name)},
	}, nil
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch name {
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: %s", name, strings.Join(Backends, ", "))
	}
}

func maxInputFor(name string) int {
	switch name {
	case "ollama", "llamacpp":
		return 8_000
	case "anthropic":
		return 40_000
	default:
		return 16_000
	}
}

// Limits implements text.Provider.
func (p *Provider) Limits() provider.Limits { return p.limits }

// Generate implements text.Provider.
func (p *Provider) Generate(ctx context.Context, prompt text.Prompt) (provider.Response, error) {
	resp, err := p.backend.Completion(ctx, p.buildParams(prompt))
	if err != nil {
		return nil, p.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices: %w", p.name, provider.ErrEmptyResponse)
	}
	content := resp.Choices[0].Message.ContentString()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s: %w", p.name, provider.ErrEmptyResponse)
	}
	return provider.ChatCompletion{Content: content, Model: p.model}, nil
}

// buildParams converts a text.Prompt into anyllm CompletionParams.
func (p *Provider) buildParams(prompt text.Prompt) anyllmlib.CompletionParams {
	var messages []anyllmlib.Message
	if prompt.System != "" {
		messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleSystem, Content: prompt.System})
	}
	messages = append(messages, anyllmlib.Message{Role: "user", Content: prompt.User})

	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if prompt.Temperature != 0 {
		t := prompt.Temperature
		params.Temperature = &t
	}
	if prompt.MaxTokens > 0 {
		mt := prompt.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}

// statusCoder is satisfied by backend errors that expose an HTTP status.
type statusCoder interface {
	StatusCode() int
}

var statusPattern = regexp.MustCompile(`\b(4\d\d|5\d\d)\b`)

// classifyError maps backend errors onto *provider.StatusError. The backends
// wrap several vendor SDKs with different error types, so the status is taken
// from a StatusCode method when present and from the message otherwise.
func (p *Provider) classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: completion: %w", p.name, err)
	}
	code := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if code == 0 {
		switch {
		case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
			code = http.StatusTooManyRequests
		default:
			if m := statusPattern.FindString(msg); m != "" {
				code, _ = strconv.Atoi(m)
			}
		}
	}
	if code == 0 {
		return fmt.Errorf("%s: completion: %w", p.name, err)
	}
	return &provider.StatusError{Provider: p.name, StatusCode: code, Message: provider.Snippet(msg)}
}
