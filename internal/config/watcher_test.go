package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SAZZAD-404/vidpilot/internal/config"
)

const (
	chainOpenAIFirst = `
server:
  log_level: info
providers:
  text:
    - name: openai
      priority: 1
`
	chainGroqFirst = `
server:
  log_level: debug
providers:
  text:
    - name: openai
      priority: 2
    - name: groq
      priority: 1
`
	badLogLevel = `
server:
  log_level: bananas
`
	misspelledProvider = `
server:
  log_level: debug
providers:
  text:
    - name: opneai
      priority: 1
`
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newWatched writes body to a temp file and watches it. Every onChange call
// is sent on the returned channel.
func newWatched(t *testing.T, body string, opts ...config.WatcherOption) (string, *config.Watcher, <-chan [2]*config.Config) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidpilot.yaml")
	writeFile(t, path, body)
	changes := make(chan [2]*config.Config, 8)
	opts = append(opts, config.WithOnChange(func(old, new *config.Config) {
		changes <- [2]*config.Config{old, new}
	}))
	w, err := config.NewWatcher(path, opts...)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return path, w, changes
}

func TestWatcher_InitialLoadAppliesDefaults(t *testing.T) {
	_, w, _ := newWatched(t, chainOpenAIFirst)
	cfg := w.Current()
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr || cfg.Generation.Timeout != config.DefaultTimeout {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, badLogLevel)
	if _, err := config.NewWatcher(path); err == nil {
		t.Fatal("invalid file accepted")
	}
}

func TestWatcher_Reload(t *testing.T) {
	tests := []struct {
		name        string
		rewrite     string
		touchOnly   bool
		wantChanged bool
		wantErr     bool
		wantLevel   config.LogLevel
	}{
		{name: "chain reordered", rewrite: chainGroqFirst, wantChanged: true, wantLevel: config.LogDebug},
		{name: "same bytes", rewrite: chainOpenAIFirst, wantLevel: config.LogInfo},
		{name: "touch only", touchOnly: true, wantLevel: config.LogInfo},
		{name: "invalid edit", rewrite: badLogLevel, wantErr: true, wantLevel: config.LogInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, w, changes := newWatched(t, chainOpenAIFirst)
			if tt.touchOnly {
				later := time.Now().Add(time.Minute)
				if err := os.Chtimes(path, later, later); err != nil {
					t.Fatal(err)
				}
			} else {
				writeFile(t, path, tt.rewrite)
			}

			changed, err := w.Reload(true)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reload error = %v, wantErr %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got := w.Current().Server.LogLevel; got != tt.wantLevel {
				t.Errorf("current log_level = %q, want %q", got, tt.wantLevel)
			}
			if got := len(changes); got != map[bool]int{true: 1, false: 0}[tt.wantChanged] {
				t.Errorf("onChange called %d times", got)
			}
		})
	}
}

func TestWatcher_ReloadSkipsUnchangedStat(t *testing.T) {
	path, w, _ := newWatched(t, chainOpenAIFirst)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, chainGroqFirst)
	// Restore the original stat so only a forced reload notices.
	if err := os.Truncate(path, info.Size()); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatal(err)
	}

	if changed, err := w.Reload(false); err != nil || changed {
		t.Fatalf("unforced Reload = %v, %v; want no change", changed, err)
	}
}

func TestWatcher_RunPicksUpEdits(t *testing.T) {
	path, w, changes := newWatched(t, chainOpenAIFirst, config.WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	later := time.Now().Add(time.Minute)
	writeFile(t, path, chainGroqFirst)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changes:
		if len(c[0].Providers.Text) != 1 || len(c[1].Providers.Text) != 2 {
			t.Errorf("old/new chains = %d/%d providers", len(c[0].Providers.Text), len(c[1].Providers.Text))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("edit not picked up")
	}
	if w.Current().Providers.Text[1].Name != "groq" {
		t.Errorf("Current not updated")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWatcher_ValidatorRejectsUnregisteredProvider(t *testing.T) {
	check := config.WithValidator(testRegistry(nil).Check)
	path, w, changes := newWatched(t, chainOpenAIFirst, check)

	writeFile(t, path, misspelledProvider)
	changed, err := w.Reload(true)
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("Reload error = %v, want ErrProviderNotRegistered", err)
	}
	if changed || len(changes) != 0 {
		t.Error("rejected config was applied")
	}
	if got := w.Current().Providers.Text[0].Name; got != "openai" {
		t.Errorf("current provider = %q, want openai", got)
	}

	bad := filepath.Join(t.TempDir(), "typo.yaml")
	writeFile(t, bad, misspelledProvider)
	if _, err := config.NewWatcher(bad, check); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("NewWatcher error = %v, want ErrProviderNotRegistered", err)
	}
}
