// Package text defines the Provider interface for text generation backends.
//
// A text provider wraps one vendor API (OpenAI, Groq, Gemini, any-llm
// backends, HuggingFace inference) and turns a [Prompt] into a single
// [provider.Response]. Adapters do not retry: rate-limit handling and
// fallback across providers are the caller's concern.
//
// Implementations must be safe for concurrent use.
package text

import (
	"context"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
)

// Prompt is the input of a text generation call.
type Prompt struct {
	// System carries instructions; it may be empty.
	System string
	// User carries the request itself.
	User string
	// Temperature is the sampling temperature. Zero uses the provider default.
	Temperature float64
	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
}

// Len returns the combined rune length of the prompt text.
func (p Prompt) Len() int {
	return len([]rune(p.System)) + len([]rune(p.User))
}

// Provider is the abstraction over a text generation backend.
type Provider interface {
	// Generate sends prompt to the backend and returns its answer as a
	// [provider.ChatCompletion] or [provider.StructuredText].
	//
	// Non-2xx answers are reported as *provider.StatusError so callers can
	// recognise rate limiting; an answer without content yields
	// [provider.ErrEmptyResponse].
	Generate(ctx context.Context, prompt Prompt) (provider.Response, error)

	// Limits returns the input limits of this backend.
	Limits() provider.Limits
}
