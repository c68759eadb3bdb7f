// Package provider holds the vocabulary shared by every AI vendor adapter: the
// tagged-union [Response] returned by adapters, the [StatusError] used to
// report non-2xx answers, and per-provider input [Limits].
//
// Concrete adapters live in the text and voice sub-packages.
package provider

import "context"

// Response is the result of a single provider call. It is one of
// [ChatCompletion], [StructuredText] or [AudioBlob]; the unexported method
// keeps the set closed so normalizers can switch over it exhaustively.
type Response interface {
	isResponse()
}

// ChatCompletion is a chat-style completion returned by OpenAI-compatible,
// Gemini and any-llm backends.
type ChatCompletion struct {
	Content      string
	FinishReason string
	Model        string
}

// StructuredText is free text that uses labelled sections ("TITLE:",
// "HASHTAGS:" …) instead of JSON.
type StructuredText struct {
	Text string
}

// AudioBlob is an encoded audio payload.
type AudioBlob struct {
	Data     []byte
	MIMEType string
}

func (ChatCompletion) isResponse() {}
func (StructuredText) isResponse() {}
func (AudioBlob) isResponse()      {}

var (
	_ Response = ChatCompletion{}
	_ Response = StructuredText{}
	_ Response = AudioBlob{}
)

// Limits describes constraints the caller must honour before invoking a
// provider.
type Limits struct {
	// MaxInputChars is the maximum number of characters (runes) of input the
	// provider accepts. Zero means unlimited.
	MaxInputChars int
}

// Limited is implemented by providers that declare input limits.
type Limited interface {
	Limits() Limits
}

// LimitsOf returns the declared limits of p, or the zero value when p does not
// implement [Limited].
func LimitsOf(p any) Limits {
	if l, ok := p.(Limited); ok {
		return l.Limits()
	}
	return Limits{}
}

// Pinger is implemented by providers that can cheaply verify reachability.
// It is used by readiness checks only.
type Pinger interface {
	Ping(ctx context.Context) error
}
