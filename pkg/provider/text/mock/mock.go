// Package mock provides a test double for the text.Provider interface.
//
// Responses are consumed in order from Script; once the script is exhausted
// the last entry is repeated. A zero-length script returns Response/Err.
//
// Example:
//
//	p := &mock.Provider{Script: []mock.Step{
//	    {Err: &provider.StatusError{StatusCode: 429}},
//	    {Response: provider.ChatCompletion{Content: `{"text":"hi"}`}},
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
)

// Step is one scripted answer.
type Step struct {
	Response provider.Response
	Err      error
}

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	Ctx    context.Context
	Prompt text.Prompt
}

// Provider is a mock implementation of text.Provider.
type Provider struct {
	mu sync.Mutex

	// Response and Err are returned when Script is empty.
	Response provider.Response
	Err      error

	// Script, when non-empty, is consumed one step per call.
	Script []Step

	// Block makes Generate wait until its context is done and return the
	// context error, like a vendor that never answers.
	Block bool

	// MaxInputChars is reported by Limits.
	MaxInputChars int

	// Calls records every invocation of Generate in order.
	Calls []GenerateCall
}

var _ text.Provider = (*Provider)(nil)

// Generate implements text.Provider.
func (p *Provider) Generate(ctx context.Context, prompt text.Prompt) (provider.Response, error) {
	p.mu.Lock()
	n := len(p.Calls)
	p.Calls = append(p.Calls, GenerateCall{Ctx: ctx, Prompt: prompt})
	block := p.Block
	p.mu.Unlock()
	if block {
		<-ctx.Done()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Script) == 0 {
		return p.Response, p.Err
	}
	step := p.Script[min(n, len(p.Script)-1)]
	return step.Response, step.Err
}

// Limits implements text.Provider.
func (p *Provider) Limits() provider.Limits {
	return provider.Limits{MaxInputChars: p.MaxInputChars}
}

// CallCount returns the number of Generate calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
