package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the built-in provider names per chain.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"text":  {"openai", "groq", "gemini", "deepseek", "mistral", "anthropic", "ollama", "llamacpp", "huggingface"},
	"voice": {"elevenlabs", "murf", "huggingface-tts"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.WithDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	errs = append(errs, validateChain("text", cfg.Providers.Text)...)
	errs = append(errs, validateChain("voice", cfg.Providers.Voice)...)
	if len(cfg.Providers.Text) == 0 {
		slog.Warn("no text providers configured; every caption, post and story will use the local generator")
	}

	g := cfg.Generation
	if g.MaxRateLimitRetries != nil && *g.MaxRateLimitRetries < 0 {
		errs = append(errs, fmt.Errorf("generation.max_rate_limit_retries %d must not be negative", *g.MaxRateLimitRetries))
	}
	if g.RetryBaseDelay > 0 && g.MaxRetryDelay > 0 && g.RetryBaseDelay > g.MaxRetryDelay {
		errs = append(errs, fmt.Errorf("generation.retry_base_delay %s exceeds max_retry_delay %s", g.RetryBaseDelay, g.MaxRetryDelay))
	}

	switch cfg.Credits.Backend {
	case "", BackendMemory:
	case BackendRedis:
		if cfg.Credits.RedisAddr == "" {
			errs = append(errs, errors.New("credits.redis_addr is required when backend is redis"))
		}
	case BackendPostgres:
		if cfg.Credits.PostgresDSN == "" {
			errs = append(errs, errors.New("credits.postgres_dsn is required when backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("credits.backend %q is invalid; valid values: memory, redis, postgres", cfg.Credits.Backend))
	}
	if cfg.Credits.Allowance < 0 {
		errs = append(errs, fmt.Errorf("credits.allowance %d must not be negative", cfg.Credits.Allowance))
	}

	switch cfg.History.Backend {
	case "", BackendMemory:
	case BackendSQLite:
		if cfg.History.SQLitePath == "" {
			errs = append(errs, errors.New("history.sqlite_path is required when backend is sqlite"))
		}
	case BackendPostgres:
		if cfg.History.PostgresDSN == "" {
			errs = append(errs, errors.New("history.postgres_dsn is required when backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.backend %q is invalid; valid values: memory, sqlite, postgres", cfg.History.Backend))
	}

	return errors.Join(errs...)
}

func validateChain(kind string, entries []ProviderEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("providers.%s[%d]", kind, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.%s[%d]", prefix, e.Name, kind, prev))
		}
		seen[e.Name] = i
		if e.Priority < 0 {
			errs = append(errs, fmt.Errorf("%s.priority %d must not be negative", prefix, e.Priority))
		}
		if e.APIKey != "" && e.APIKeyEnv != "" {
			errs = append(errs, fmt.Errorf("%s: set api_key or api_key_env, not both", prefix))
		}
		validateProviderName(kind, e.Name)
	}
	return errs
}

// validateProviderName logs a warning if name is not a built-in provider.
func validateProviderName(kind, name string) {
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; it must be registered before the chain is built",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
