package config

import (
	"fmt"
	"strings"
)

// ConfigDiff describes what changed between two configs. Only fields that
// take effect without a restart are tracked.
type ConfigDiff struct {
	LogLevelChanged   bool
	NewLogLevel       LogLevel
	GenerationChanged bool
	TextChanges       []ProviderDiff
	VoiceChanges      []ProviderDiff
}

// ProviderDiff describes what changed for one provider entry.
type ProviderDiff struct {
	Name            string
	Added           bool
	Removed         bool
	PriorityChanged bool
	ConfigChanged   bool
}

// Empty reports whether nothing relevant changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.GenerationChanged && len(d.TextChanges) == 0 && len(d.VoiceChanges) == 0
}

// String summarises d for logs.
func (d ConfigDiff) String() string {
	if d.Empty() {
		return "none"
	}
	var parts []string
	if d.LogLevelChanged {
		parts = append(parts, "log_level="+string(d.NewLogLevel))
	}
	if d.GenerationChanged {
		parts = append(parts, "generation")
	}
	for _, c := range d.TextChanges {
		parts = append(parts, "text/"+c.String())
	}
	for _, c := range d.VoiceChanges {
		parts = append(parts, "voice/"+c.String())
	}
	return strings.Join(parts, ",")
}

func (p ProviderDiff) String() string {
	switch {
	case p.Added:
		return p.Name + "+"
	case p.Removed:
		return p.Name + "-"
	default:
		return fmt.Sprintf("%s~", p.Name)
	}
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.GenerationChanged = !sameGeneration(old.Generation, new.Generation)
	d.TextChanges = diffEntries(old.Providers.Text, new.Providers.Text)
	d.VoiceChanges = diffEntries(old.Providers.Voice, new.Providers.Voice)
	return d
}

func sameGeneration(a, b GenerationConfig) bool {
	ra, rb := -1, -1
	if a.MaxRateLimitRetries != nil {
		ra = *a.MaxRateLimitRetries
	}
	if b.MaxRateLimitRetries != nil {
		rb = *b.MaxRateLimitRetries
	}
	a.MaxRateLimitRetries, b.MaxRateLimitRetries = nil, nil
	return ra == rb && a == b
}

// diffEntries reports changes in old order, then additions in new order.
func diffEntries(old, new []ProviderEntry) []ProviderDiff {
	newByName := make(map[string]ProviderEntry, len(new))
	for _, e := range new {
		newByName[e.Name] = e
	}
	oldNames := make(map[string]bool, len(old))

	var out []ProviderDiff
	for _, o := range old {
		oldNames[o.Name] = true
		n, ok := newByName[o.Name]
		if !ok {
			out = append(out, ProviderDiff{Name: o.Name, Removed: true})
			continue
		}
		changed := o.APIKey != n.APIKey || o.APIKeyEnv != n.APIKeyEnv || o.BaseURL != n.BaseURL ||
			o.Model != n.Model || o.Disabled != n.Disabled || fmt.Sprint(o.Options) != fmt.Sprint(n.Options)
		pd := ProviderDiff{
			Name:            o.Name,
			PriorityChanged: o.Priority != n.Priority,
			ConfigChanged:   changed,
		}
		if pd.PriorityChanged || pd.ConfigChanged {
			out = append(out, pd)
		}
	}
	for _, n := range new {
		if !oldNames[n.Name] {
			out = append(out, ProviderDiff{Name: n.Name, Added: true})
		}
	}
	return out
}
