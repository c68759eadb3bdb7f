package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/SAZZAD-404/vidpilot/internal/resilience"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
)

// ErrProviderNotRegistered is returned when no factory has been registered
// under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// TextFactory builds a text provider from its entry and resolved credential.
type TextFactory func(ctx context.Context, entry ProviderEntry, credential string) (text.Provider, error)

// VoiceFactory builds a voice provider from its entry and resolved
// credential.
type VoiceFactory func(ctx context.Context, entry ProviderEntry, credential string) (voice.Provider, error)

// Registry maps provider names to their constructor functions for each
// chain. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	text  map[string]TextFactory
	voice map[string]VoiceFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		text:  make(map[string]TextFactory),
		voice: make(map[string]VoiceFactory),
	}
}

// RegisterText registers a text provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterText(name string, factory TextFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text[name] = factory
}

// RegisterVoice registers a voice provider factory under name.
func (r *Registry) RegisterVoice(name string, factory VoiceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice[name] = factory
}

// TextNames returns the registered text provider names, sorted.
func (r *Registry) TextNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.text)
}

// VoiceNames returns the registered voice provider names, sorted.
func (r *Registry) VoiceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.voice)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Chains are the provider chains built from one config snapshot.
type Chains struct {
	Text  *resilience.Chain[text.Provider]
	Voice *resilience.Chain[voice.Provider]
}

// Check reports every enabled entry of cfg whose name has no registered
// factory, joined as [ErrProviderNotRegistered] errors. Startup and config
// reloads call it so that a typo is rejected before any request runs.
func (r *Registry) Check(cfg *Config) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return errors.Join(
		unregistered("text", cfg.Providers.Text, r.text),
		unregistered("voice", cfg.Providers.Voice, r.voice),
	)
}

func unregistered[F any](kind string, entries []ProviderEntry, factories map[string]F) error {
	var errs []error
	for _, e := range entries {
		if e.Disabled {
			continue
		}
		if _, ok := factories[e.Name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s/%q (registered: %v)", ErrProviderNotRegistered, kind, e.Name, sortedKeys(factories)))
		}
	}
	return errors.Join(errs...)
}

// Build resolves credentials for every enabled entry and returns the text
// and voice chains. Entries without a credential become descriptors with
// CredentialPresent=false and no client. An entry whose factory fails is
// logged and treated the same way.
//
// The two chains are built independently and an unregistered name only
// drops its own entry. Build then returns both usable chains together with
// the [ErrProviderNotRegistered] errors.
func (r *Registry) Build(ctx context.Context, cfg *Config, env LookupEnv) (Chains, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	textChain, textErr := buildChain(ctx, "text", cfg.Providers.Text, r.text, env)
	voiceChain, voiceErr := buildChain(ctx, "voice", cfg.Providers.Voice, r.voice, env)
	return Chains{Text: textChain, Voice: voiceChain}, errors.Join(textErr, voiceErr)
}

func buildChain[T any, F ~func(context.Context, ProviderEntry, string) (T, error)](
	ctx context.Context,
	kind string,
	entries []ProviderEntry,
	factories map[string]F,
	env LookupEnv,
) (*resilience.Chain[T], error) {
	var descs []resilience.Descriptor[T]
	for _, e := range entries {
		if e.Disabled {
			continue
		}
		factory, ok := factories[e.Name]
		if !ok {
			continue
		}
		d := resilience.Descriptor[T]{Name: e.Name, Priority: e.Priority}
		if cred, ok := e.Credential(env); ok {
			v, err := factory(ctx, e, cred)
			if err != nil {
				slog.Warn("provider construction failed; skipping", "kind", kind, "provider", e.Name, "err", err)
			} else {
				d.CredentialPresent = true
				d.Value = v
			}
		}
		descs = append(descs, d)
	}
	return resilience.NewChain(descs...), unregistered(kind, entries, factories)
}

// ProviderStatus is the diagnostic view of one configured provider.
type ProviderStatus struct {
	Chain             string `json:"chain"`
	Name              string `json:"name"`
	Priority          int    `json:"priority"`
	Model             string `json:"model,omitempty"`
	Registered        bool   `json:"registered"`
	CredentialPresent bool   `json:"credential_present"`
	Disabled          bool   `json:"disabled,omitempty"`
}

// Snapshot reports every configured provider, sorted by chain and priority,
// without constructing any client.
func (r *Registry) Snapshot(cfg *Config, env LookupEnv) []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ProviderStatus
	add := func(chain string, entries []ProviderEntry, registered func(string) bool) {
		part := make([]ProviderStatus, 0, len(entries))
		for _, e := range entries {
			_, hasCred := e.Credential(env)
			part = append(part, ProviderStatus{
				Chain:             chain,
				Name:              e.Name,
				Priority:          e.Priority,
				Model:             e.Model,
				Registered:        registered(e.Name),
				CredentialPresent: hasCred,
				Disabled:          e.Disabled,
			})
		}
		sort.SliceStable(part, func(i, j int) bool { return part[i].Priority < part[j].Priority })
		out = append(out, part...)
	}
	add("text", cfg.Providers.Text, func(n string) bool { _, ok := r.text[n]; return ok })
	add("voice", cfg.Providers.Voice, func(n string) bool { _, ok := r.voice[n]; return ok })
	return out
}
