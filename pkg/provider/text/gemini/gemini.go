// Package gemini provides a text provider backed by the Google Gemini API via
// google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

const name = "gemini"

// Provider implements text.Provider using the Gemini API backend.
type Provider struct {
	client *genai.Client
	model  string
	limits provider.Limits
}

var _ text.Provider = (*Provider)(nil)

type config struct {
	baseURL    string
	httpClient *http.Client
	maxInput   int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithMaxInputChars overrides the declared input limit.
func WithMaxInputChars(n int) Option {
	return func(c *config) { c.maxInput = n }
}

// New constructs a Gemini text Provider.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini: model must not be empty")
	}
	cfg := &config{maxInput: 30_000}
	for _, o := range opts {
		o(cfg)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{
		client: client,
		model:  model,
		limits: provider.Limits{MaxInputChars: cfg.maxInput},
	}, nil
}

// Limits implements text.Provider.
func (p *Provider) Limits() provider.Limits { return p.limits }

// Generate implements text.Provider.
func (p *Provider) Generate(ctx context.Context, prompt text.Prompt) (provider.Response, error) {
	gc := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}
	if prompt.Temperature != 0 {
		gc.Temperature = genai.Ptr(float32(prompt.Temperature))
	}
	if prompt.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(prompt.MaxTokens)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, gc)
	if err != nil {
		return nil, translateError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no candidates: %w", provider.ErrEmptyResponse)
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("gemini: %w", provider.ErrEmptyResponse)
	}
	return provider.ChatCompletion{
		Content:      out,
		FinishReason: string(cand.FinishReason),
		Model:        resp.ModelVersion,
	}, nil
}

// translateError maps genai API errors onto *provider.StatusError. Gemini
// reports retry hints in a google.rpc.RetryInfo detail rather than a header.
func translateError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("gemini: generate content: %w", err)
		}
		apiErr = *ptr
	}
	return &provider.StatusError{
		Provider:   name,
		StatusCode: apiErr.Code,
		RetryAfter: retryDelay(apiErr.Details),
		Message:    apiErr.Message,
	}
}

func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		typ, _ := d["@type"].(string)
		if !strings.HasSuffix(typ, "RetryInfo") {
			continue
		}
		raw, _ := d["retryDelay"].(string)
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay
		}
	}
	return 0
}
