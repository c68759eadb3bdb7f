// Package huggingface provides a voice provider backed by a HuggingFace
// Inference API text-to-speech model. The endpoint answers with raw encoded
// audio whose format is given by the Content-Type header.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

const (
	name             = "huggingface-tts"
	defaultBaseURL   = "https://api-inference.huggingface.co/models"
	defaultModel     = "facebook/mms-tts-eng"
	defaultTimeout   = 90 * time.Second
	maxInputChars    = 1_000
	maxAudioBytes    = 32 << 20
	defaultAudioMIME = "audio/flac"
)

// Compile-time interface assertion.
var _ voice.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the inference endpoint (the model name is appended).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithModel selects the TTS model.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements voice.Provider for HuggingFace TTS models.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("huggingface-tts: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Limits implements voice.Provider.
func (p *Provider) Limits() provider.Limits {
	return provider.Limits{MaxInputChars: maxInputChars}
}

// Synthesize implements voice.Provider. The model determines the voice; the
// profile is ignored.
func (p *Provider) Synthesize(ctx context.Context, text string, _ voice.Profile) (provider.AudioBlob, error) {
	body, _ := json.Marshal(map[string]any{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+p.model, bytes.NewReader(body))
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("huggingface-tts: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("huggingface-tts: request: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.CheckResponse(name, resp); err != nil {
		return provider.AudioBlob{}, err
	}

	mimeType := audioMIME(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		// A 200 with a JSON body is an error report, not audio.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return provider.AudioBlob{}, fmt.Errorf("huggingface-tts: unexpected payload %q: %w", provider.Snippet(string(msg)), provider.ErrEmptyResponse)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("huggingface-tts: read audio: %w", err)
	}
	if len(data) == 0 {
		return provider.AudioBlob{}, fmt.Errorf("huggingface-tts: %w", provider.ErrEmptyResponse)
	}
	return provider.AudioBlob{Data: data, MIMEType: mimeType}, nil
}

// audioMIME returns the media type when it describes audio, the default audio
// type when the header is missing, and "" for non-audio payloads.
func audioMIME(contentType string) string {
	if contentType == "" {
		return defaultAudioMIME
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(mt, "audio/") {
		return mt
	}
	if mt == "application/octet-stream" {
		return defaultAudioMIME
	}
	return ""
}
