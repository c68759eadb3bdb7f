package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWatchInterval is how often a [Watcher] stats its file.
const DefaultWatchInterval = 5 * time.Second

// fingerprint identifies one version of the config file on disk.
type fingerprint struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// Watcher keeps the latest valid configuration of a file. Every generation
// reads [Watcher.Current], so provider chains, priorities and retry tuning
// change without a restart. Edits that fail to parse or validate are logged
// and the previous configuration stays in effect.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)
	validate func(*Config) error
	log      *slog.Logger

	current atomic.Pointer[Config]

	// reloadMu serialises reloads; seen is only touched under it.
	reloadMu sync.Mutex
	seen     fingerprint
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval overrides [DefaultWatchInterval].
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnChange registers fn to run after a reload that changed the
// configuration. It runs on the watcher goroutine.
func WithOnChange(fn func(old, new *Config)) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// WithValidator adds a check that every loaded configuration must pass on
// top of [Config.Validate], such as [Registry.Check]. A rejected file is
// handled like one that fails to parse.
func WithValidator(fn func(*Config) error) WatcherOption {
	return func(w *Watcher) { w.validate = fn }
}

// WithLogger sets the reload logger.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher reads path once and fails when it is not a valid configuration.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: DefaultWatchInterval, log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	cfg, fp, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current.Store(cfg)
	w.seen = fp
	return w, nil
}

// Current returns the configuration in effect. It must be treated as
// read-only.
func (w *Watcher) Current() *Config { return w.current.Load() }

// Run polls the file until ctx is done and then returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := w.Reload(false); err != nil {
				w.log.Warn("config reload rejected", "path", w.path, "err", err)
			}
		}
	}
}

// Reload re-reads the file and reports whether the configuration changed.
// Without force the file is only parsed when its size or modification time
// moved. An invalid file returns the error and keeps the current config.
func (w *Watcher) Reload(force bool) (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if !force {
		info, err := os.Stat(w.path)
		if err != nil {
			return false, err
		}
		if info.ModTime().Equal(w.seen.modTime) && info.Size() == w.seen.size {
			return false, nil
		}
	}

	cfg, fp, err := w.read()
	if err != nil {
		return false, err
	}
	same := fp.sum == w.seen.sum
	w.seen = fp
	if same {
		return false, nil
	}

	old := w.current.Swap(cfg)
	w.log.Info("configuration reloaded", "path", w.path, "changes", Diff(old, cfg).String())
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true, nil
}

func (w *Watcher) read() (*Config, fingerprint, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fingerprint{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fingerprint{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fingerprint{}, err
	}
	if w.validate != nil {
		if err := w.validate(cfg); err != nil {
			return nil, fingerprint{}, err
		}
	}
	return cfg, fingerprint{modTime: info.ModTime(), size: info.Size(), sum: sha256.Sum256(data)}, nil
}
