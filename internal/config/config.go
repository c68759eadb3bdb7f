// Package config provides the configuration schema, loader, provider
// registry and hot-reload watcher for the VidPilot server and CLI.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Backend selects a storage implementation for credits or history.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendRedis    Backend = "redis"
	BackendPostgres Backend = "postgres"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
	Credits    CreditsConfig    `yaml:"credits"`
	History    HistoryConfig    `yaml:"history"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServerConfig holds network and logging settings for the HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig lists the providers of each chain. Order in the file is
// the registration order used to break priority ties.
type ProvidersConfig struct {
	Text  []ProviderEntry `yaml:"text"`
	Voice []ProviderEntry `yaml:"voice"`
}

// ProviderEntry configures one provider of a chain. The Name field is used
// to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "murf").
	Name string `yaml:"name"`

	// Priority orders the chain; lower values are tried first.
	Priority int `yaml:"priority"`

	// APIKey is the credential. Prefer APIKeyEnv to keep secrets out of the
	// file.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Disabled removes the entry from the chain without deleting it.
	Disabled bool `yaml:"disabled"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// Option returns the string value of a provider option, or "" when unset.
func (e ProviderEntry) Option(key string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return ""
}

// GenerationConfig tunes the orchestrator.
type GenerationConfig struct {
	// Timeout bounds one generation including every provider attempt.
	Timeout time.Duration `yaml:"timeout"`

	// ProviderTimeout bounds a single provider call.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	// MaxRateLimitRetries is how many extra calls a provider gets after a
	// 429. Nil selects the default of 2.
	MaxRateLimitRetries *int `yaml:"max_rate_limit_retries"`

	// RetryBaseDelay is the first 429 backoff when no Retry-After is sent.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// MaxRetryDelay caps every 429 backoff.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`

	// LocalSynthesizer forces a speech synthesizer binary for the local
	// voice fallback. Empty means auto-detect.
	LocalSynthesizer string `yaml:"local_synthesizer"`
}

// CreditsConfig selects the credit ledger.
type CreditsConfig struct {
	Backend   Backend `yaml:"backend"`
	Allowance int     `yaml:"allowance"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	PostgresDSN string `yaml:"postgres_dsn"`
}

// HistoryConfig selects the history store.
type HistoryConfig struct {
	Backend     Backend `yaml:"backend"`
	SQLitePath  string  `yaml:"sqlite_path"`
	PostgresDSN string  `yaml:"postgres_dsn"`
}

// AuthConfig configures bearer token validation. With no secret the server
// runs in single-user mode.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret of the identity provider.
	JWTSecret string `yaml:"jwt_secret"`

	// JWTSecretEnv names the environment variable holding the secret.
	JWTSecretEnv string `yaml:"jwt_secret_env"`

	// Issuer and Audience, when set, must match the token claims.
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}
