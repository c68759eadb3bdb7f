// Package elevenlabs provides an ElevenLabs-backed voice provider using the
// ElevenLabs stream-input WebSocket API. The whole script is sent in one
// session and the streamed audio chunks are concatenated into a single blob.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

const (
	name             = "elevenlabs"
	defaultBaseURL   = "wss://api.elevenlabs.io"
	wsPathFmt        = "%s/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	defaultModel     = "eleven_multilingual_v2"
	defaultOutputFmt = "mp3_44100_128"
	maxInputChars    = 5_000
	readLimit        = 8 << 20

	// Default voices used when the profile only carries a gender hint.
	defaultFemaleVoice = "21m00Tcm4TlvDq8ikWAM"
	defaultMaleVoice   = "pNInz6obpgDQGcFmaJgB"
)

// Compile-time interface assertion.
var _ voice.Provider = (*Provider)(nil)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithOutputFormat sets the audio output format (e.g., "mp3_44100_128", "pcm_16000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) { p.outputFormat = format }
}

// WithBaseURL overrides the WebSocket origin (scheme and host).
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// Provider implements voice.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	baseURL      string
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		baseURL:      defaultBaseURL,
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

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for each text fragment.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	Flush         bool           `json:"flush,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// boiMessage is the initial "begin of input" message.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// audioResponse is the JSON message received from ElevenLabs over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Synthesize implements voice.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, profile voice.Profile) (provider.AudioBlob, error) {
	conn, resp, err := websocket.Dial(ctx, p.streamURL(profile), nil)
	if err != nil {
		if resp != nil {
			return provider.AudioBlob{}, handshakeError(resp, err)
		}
		return provider.AudioBlob{}, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	if profile.Speed > 0 && profile.Speed != 1 {
		vs.Speed = clampSpeed(profile.Speed)
	}
	messages := []any{
		boiMessage{Text: " ", VoiceSettings: vs, XiAPIKey: p.apiKey},
		textMessage{Text: text + " ", Flush: true},
		textMessage{Text: ""},
	}
	for _, m := range messages {
		b, _ := json.Marshal(m)
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			return provider.AudioBlob{}, fmt.Errorf("elevenlabs: send: %w", err)
		}
	}

	audio, err := readAudio(ctx, conn)
	if err != nil {
		return provider.AudioBlob{}, err
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
	return provider.AudioBlob{Data: audio, MIMEType: mimeFor(p.outputFormat)}, nil
}

// readAudio collects audio chunks until the final message or the server
// closes the stream.
func readAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var buf bytes.Buffer
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if buf.Len() > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs: read: %w", err)
		}
		var ar audioResponse
		if err := json.Unmarshal(msg, &ar); err != nil {
			continue
		}
		if ar.Error != "" {
			return nil, streamError(ar)
		}
		if ar.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(ar.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: decode audio chunk: %w", err)
			}
			buf.Write(chunk)
		}
		if ar.IsFinal {
			break
		}
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("elevenlabs: %w", provider.ErrEmptyResponse)
	}
	return buf.Bytes(), nil
}

// streamError converts an in-band error message. Quota and rate errors are
// reported as 429 so the caller may retry.
func streamError(ar audioResponse) error {
	code := http.StatusBadRequest
	lower := strings.ToLower(ar.Error + " " + ar.Message)
	switch {
	case strings.Contains(lower, "rate") || strings.Contains(lower, "too many") || strings.Contains(lower, "concurren"):
		code = http.StatusTooManyRequests
	case strings.Contains(lower, "quota"):
		code = http.StatusPaymentRequired
	case strings.Contains(lower, "auth") || strings.Contains(lower, "api key"):
		code = http.StatusUnauthorized
	}
	return &provider.StatusError{Provider: name, StatusCode: code, Message: strings.TrimSpace(ar.Error + ": " + ar.Message)}
}

func handshakeError(resp *http.Response, err error) error {
	se := &provider.StatusError{Provider: name, StatusCode: resp.StatusCode, Message: err.Error()}
	if d, ok := provider.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
		se.RetryAfter = d
	}
	return se
}

func (p *Provider) streamURL(profile voice.Profile) string {
	return fmt.Sprintf(wsPathFmt, p.baseURL, voiceID(profile), p.model, p.outputFormat)
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

// ElevenLabs accepts speeds between 0.7 and 1.2.
func clampSpeed(s float64) float64 {
	return min(max(s, 0.7), 1.2)
}

func mimeFor(format string) string {
	switch {
	case strings.HasPrefix(format, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(format, "pcm"):
		return "audio/L16"
	case strings.HasPrefix(format, "ulaw"):
		return "audio/basic"
	case strings.HasPrefix(format, "opus"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
