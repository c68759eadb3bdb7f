// Package murf provides a voice provider backed by the Murf.ai REST API
// (POST /v1/speech/generate).
package murf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

const (
	name             = "murf"
	defaultBaseURL   = "https://api.murf.ai"
	generatePath     = "/v1/speech/generate"
	defaultTimeout   = 60 * time.Second
	maxInputChars    = 3_000
	maxDownloadBytes = 32 << 20

	defaultFemaleVoice = "en-US-natalie"
	defaultMaleVoice   = "en-US-terrell"
)

// Compile-time interface assertion.
var _ voice.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API origin.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithFormat sets the requested audio format ("MP3", "WAV", "FLAC").
func WithFormat(format string) Option {
	return func(p *Provider) { p.format = strings.ToUpper(format) }
}

// Provider implements voice.Provider for Murf.
type Provider struct {
	apiKey     string
	baseURL    string
	format     string
	httpClient *http.Client
}

// New creates a Murf Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("murf: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		format:     "MP3",
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

type generateRequest struct {
	Text           string `json:"text"`
	VoiceID        string `json:"voiceId"`
	Format         string `json:"format"`
	Rate           int    `json:"rate,omitempty"`
	EncodeAsBase64 bool   `json:"encodeAsBase64"`
}

type generateResponse struct {
	AudioFile    string `json:"audioFile"`
	EncodedAudio string `json:"encodedAudio"`
}

// Synthesize implements voice.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, profile voice.Profile) (provider.AudioBlob, error) {
	body, err := json.Marshal(generateRequest{
		Text:           text,
		VoiceID:        voiceID(profile),
		Format:         p.format,
		Rate:           rateFor(profile.Speed),
		EncodeAsBase64: true,
	})
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("murf: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("murf: build request: %w", err)
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return provider.AudioBlob{}, fmt.Errorf("murf: request: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.CheckResponse(name, resp); err != nil {
		return provider.AudioBlob{}, err
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return provider.AudioBlob{}, fmt.Errorf("murf: decode response: %w", err)
	}

	var audio []byte
	switch {
	case gr.EncodedAudio != "":
		audio, err = base64.StdEncoding.DecodeString(gr.EncodedAudio)
		if err != nil {
			return provider.AudioBlob{}, fmt.Errorf("murf: decode audio: %w", err)
		}
	case gr.AudioFile != "":
		audio, err = p.download(ctx, gr.AudioFile)
		if err != nil {
			return provider.AudioBlob{}, err
		}
	}
	if len(audio) == 0 {
		return provider.AudioBlob{}, fmt.Errorf("murf: %w", provider.ErrEmptyResponse)
	}
	return provider.AudioBlob{Data: audio, MIMEType: mimeFor(p.format)}, nil
}

// download fetches audio from the signed URL Murf returns when base64
// encoding was not honoured.
func (p *Provider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("murf: build download request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("murf: download audio: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.CheckResponse(name, resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("murf: read audio: %w", err)
	}
	return data, nil
}

func voiceID(profile voice.Profile) string {
	if profile.ID != "" {
		return profile.ID
	}
	if profile.Gender == voice.GenderMale {
		return defaultMaleVoice
	}
	return defaultFemaleVoice
}

// rateFor maps a speed multiplier onto Murf's -50..50 percentage scale.
func rateFor(speed float64) int {
	if speed <= 0 || speed == 1 {
		return 0
	}
	r := int(math.Round((speed - 1) * 100))
	return min(max(r, -50), 50)
}

func mimeFor(format string) string {
	switch format {
	case "WAV":
		return "audio/wav"
	case "FLAC":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}
