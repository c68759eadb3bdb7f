// Package mock provides a test double for the voice.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

// Step is one scripted answer.
type Step struct {
	Audio provider.AudioBlob
	Err   error
}

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text    string
	Profile voice.Profile
}

// Provider is a mock implementation of voice.Provider. Script works like the
// text mock: one step per call, the last one repeated.
type Provider struct {
	mu sync.Mutex

	Audio provider.AudioBlob
	Err   error

	Script []Step

	// Block makes Synthesize wait until its context is done.
	Block bool

	MaxInputChars int

	Calls []SynthesizeCall
}

var _ voice.Provider = (*Provider)(nil)

// Synthesize implements voice.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, profile voice.Profile) (provider.AudioBlob, error) {
	p.mu.Lock()
	n := len(p.Calls)
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Profile: profile})
	block := p.Block
	p.mu.Unlock()
	if block {
		<-ctx.Done()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return provider.AudioBlob{}, err
	}
	if len(p.Script) == 0 {
		return p.Audio, p.Err
	}
	step := p.Script[min(n, len(p.Script)-1)]
	return step.Audio, step.Err
}

// Limits implements voice.Provider.
func (p *Provider) Limits() provider.Limits {
	return provider.Limits{MaxInputChars: p.MaxInputChars}
}

// CallCount returns the number of Synthesize calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
