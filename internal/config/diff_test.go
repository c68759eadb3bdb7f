package config_test

import (
	"testing"
	"time"

	"github.com/SAZZAD-404/vidpilot/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	d := config.Diff(cfg, cfg)
	if !d.Empty() {
		t.Errorf("expected empty diff, got %s", d)
	}
	if d.String() != "none" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v", d)
	}
}

func TestDiff_Providers(t *testing.T) {
	t.Parallel()
	old := &config.Config{Providers: config.ProvidersConfig{Text: []config.ProviderEntry{
		{Name: "openai", Priority: 1, Model: "a"},
		{Name: "groq", Priority: 2},
		{Name: "gemini", Priority: 3},
	}}}
	new := &config.Config{Providers: config.ProvidersConfig{Text: []config.ProviderEntry{
		{Name: "openai", Priority: 1, Model: "b"},
		{Name: "groq", Priority: 5},
		{Name: "mistral", Priority: 4},
	}}}

	d := config.Diff(old, new)
	want := []config.ProviderDiff{
		{Name: "openai", ConfigChanged: true},
		{Name: "groq", PriorityChanged: true},
		{Name: "gemini", Removed: true},
		{Name: "mistral", Added: true},
	}
	if len(d.TextChanges) != len(want) {
		t.Fatalf("TextChanges = %+v", d.TextChanges)
	}
	for i := range want {
		if d.TextChanges[i] != want[i] {
			t.Errorf("TextChanges[%d] = %+v, want %+v", i, d.TextChanges[i], want[i])
		}
	}
	if got := d.String(); got != "text/openai~,text/groq~,text/gemini-,text/mistral+" {
		t.Errorf("String() = %q", got)
	}
}

func TestDiff_Generation(t *testing.T) {
	t.Parallel()
	two, three := 2, 3
	old := &config.Config{Generation: config.GenerationConfig{Timeout: time.Minute, MaxRateLimitRetries: &two}}
	same := &config.Config{Generation: config.GenerationConfig{Timeout: time.Minute, MaxRateLimitRetries: &two}}
	changed := &config.Config{Generation: config.GenerationConfig{Timeout: time.Minute, MaxRateLimitRetries: &three}}

	if config.Diff(old, same).GenerationChanged {
		t.Error("equal retry counts behind different pointers should not count as a change")
	}
	if !config.Diff(old, changed).GenerationChanged {
		t.Error("retry count change not detected")
	}
}
