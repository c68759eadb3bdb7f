// Package openai provides a text provider backed by the OpenAI chat
// completions API. The same adapter serves any OpenAI-compatible endpoint;
// [NewGroq] points it at Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// defaultMaxInput is the prompt budget for chat models in characters.
const defaultMaxInput = 16_000

// Provider implements text.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	name   string
	model  string
	limits provider.Limits
}

var _ text.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	name         string
	baseURL      string
	organization string
	timeout      time.Duration
	maxInput     int
	httpClient   *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithName overrides the provider name reported in errors and results.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) { c.organization = org }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxInputChars overrides the declared input limit.
func WithMaxInputChars(n int) Option {
	return func(c *config) { c.maxInput = n }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// New constructs a new OpenAI text Provider.
//
// The SDK's built-in retries are disabled: rate-limit handling belongs to the
// caller so that retry counts stay bounded and observable.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{name: "openai", maxInput: defaultMaxInput}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		name:   cfg.name,
		model:  model,
		limits: provider.Limits{MaxInputChars: cfg.maxInput},
	}, nil
}

// NewGroq constructs a Provider that talks to Groq's OpenAI-compatible API.
func NewGroq(apiKey string, model string, opts ...Option) (*Provider, error) {
	base := []Option{WithName("groq"), WithBaseURL(GroqBaseURL), WithMaxInputChars(12_000)}
	return New(apiKey, model, append(base, opts...)...)
}

// Limits implements text.Provider.
func (p *Provider) Limits() provider.Limits { return p.limits }

// Generate implements text.Provider.
func (p *Provider) Generate(ctx context.Context, prompt text.Prompt) (provider.Response, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(prompt))
	if err != nil {
		return nil, p.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no choices: %w", p.name, provider.ErrEmptyResponse)
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, fmt.Errorf("%s: %w", p.name, provider.ErrEmptyResponse)
	}
	return provider.ChatCompletion{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        resp.Model,
	}, nil
}

// buildParams converts a text.Prompt into OpenAI chat completion params.
func (p *Provider) buildParams(prompt text.Prompt) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, oai.SystemMessage(prompt.System))
	}
	messages = append(messages, oai.UserMessage(prompt.User))

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if prompt.Temperature != 0 {
		params.Temperature = param.NewOpt(prompt.Temperature)
	}
	if prompt.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(prompt.MaxTokens))
	}
	return params
}

// translateError maps SDK API errors onto *provider.StatusError.
func (p *Provider) translateError(err error) error {
	var apiErr *oai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%s: chat completion: %w", p.name, err)
	}
	se := &provider.StatusError{
		Provider:   p.name,
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
	}
	if apiErr.Response != nil {
		if d, ok := provider.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now()); ok {
			se.RetryAfter = d
		}
	}
	return se
}
