// Package huggingface provides a text provider backed by the HuggingFace
// Inference API text-generation task.
//
// Hosted instruct models do not reliably follow JSON instructions, so the
// generated text is returned as a [provider.StructuredText] and left to the
// normalizer to split into labelled sections.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

const (
	// DefaultBaseURL is the HuggingFace serverless inference endpoint.
	DefaultBaseURL = "https://api-inference.huggingface.co/models"

	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 700
	defaultMaxInput  = 4_000
)

// Compile-time interface assertion.
var _ text.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the inference endpoint (the model name is appended).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// Provider implements text.Provider for HuggingFace text generation.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Provider for the given model (e.g.
// "mistralai/Mistral-7B-Instruct-v0.3").
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("huggingface: apiKey must not be empty")
	}
	if model == "" {
		return nil, errors.New("huggingface: model must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Limits implements text.Provider.
func (p *Provider) Limits() provider.Limits {
	return provider.Limits{MaxInputChars: defaultMaxInput}
}

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
	Options    map[string]bool      `json:"options,omitempty"`
}

type generationParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float64 `json:"temperature,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type generationResult struct {
	GeneratedText string `json:"generated_text"`
}

// Generate implements text.Provider.
func (p *Provider) Generate(ctx context.Context, prompt text.Prompt) (provider.Response, error) {
	body := generationRequest{
		Inputs: instructPrompt(prompt),
		Parameters: generationParameters{
			MaxNewTokens: defaultMaxTokens,
		},
		Options: map[string]bool{"wait_for_model": true},
	}
	if prompt.MaxTokens > 0 {
		body.Parameters.MaxNewTokens = prompt.MaxTokens
	}
	if prompt.Temperature > 0 {
		t := prompt.Temperature
		body.Parameters.Temperature = &t
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("huggingface: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+p.model, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface: request: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.CheckResponse("huggingface", resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("huggingface: read response: %w", err)
	}
	out, err := decodeGenerated(raw)
	if err != nil {
		return nil, err
	}
	return provider.StructuredText{Text: out}, nil
}

// decodeGenerated accepts both the list form and the single-object form of a
// text-generation answer.
func decodeGenerated(raw []byte) (string, error) {
	var list []generationResult
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, r := range list {
			if strings.TrimSpace(r.GeneratedText) != "" {
				return r.GeneratedText, nil
			}
		}
		return "", fmt.Errorf("huggingface: %w", provider.ErrEmptyResponse)
	}
	var single generationResult
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", fmt.Errorf("huggingface: decode response %q: %w", provider.Snippet(string(raw)), err)
	}
	if strings.TrimSpace(single.GeneratedText) == "" {
		return "", fmt.Errorf("huggingface: %w", provider.ErrEmptyResponse)
	}
	return single.GeneratedText, nil
}

// instructPrompt folds the system and user prompt into a single instruction
// and asks for labelled sections the normalizer can split.
func instructPrompt(p text.Prompt) string {
	var sb strings.Builder
	sb.WriteString("[INST] ")
	if p.System != "" {
		sb.WriteString(p.System)
		sb.WriteString("\n\n")
	}
	sb.WriteString(p.User)
	sb.WriteString("\n\nAnswer using the labels TITLE:, TEXT:, HASHTAGS:, TAGS:, CTA: and DESCRIPTION:, each on its own line. [/INST]")
	return sb.String()
}
