package config

import "time"

// Defaults applied by [Config.WithDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultTimeout         = 2 * time.Minute
	DefaultProviderTimeout = 45 * time.Second
	DefaultRetryBaseDelay  = time.Second
	DefaultMaxRetryDelay   = 10 * time.Second
	DefaultRateLimitRetry  = 2
	DefaultSQLitePath      = "vidpilot.db"
	DefaultJWTSecretEnv    = "SUPABASE_JWT_SECRET"
)

// Default returns the configuration used when no file is given: every
// built-in provider in its usual priority, credentials from the
// conventional environment variables, in-memory credits and SQLite history.
func Default() *Config {
	cfg := &Config{
		Providers: ProvidersConfig{
			Text: []ProviderEntry{
				{Name: "openai", Priority: 1, Model: "gpt-4o-mini"},
				{Name: "groq", Priority: 2, Model: "llama-3.3-70b-versatile"},
				{Name: "gemini", Priority: 3, Model: "gemini-2.0-flash"},
				{Name: "deepseek", Priority: 4, Model: "deepseek-chat"},
				{Name: "mistral", Priority: 5, Model: "mistral-small-latest"},
				{Name: "anthropic", Priority: 6, Model: "claude-3-5-haiku-latest"},
				{Name: "huggingface", Priority: 7, Model: "mistralai/Mistral-7B-Instruct-v0.3"},
			},
			Voice: []ProviderEntry{
				{Name: "elevenlabs", Priority: 1},
				{Name: "murf", Priority: 2},
				{Name: "huggingface-tts", Priority: 3},
			},
		},
		Credits: CreditsConfig{Backend: BackendMemory},
		History: HistoryConfig{Backend: BackendSQLite},
	}
	return cfg.WithDefaults()
}

// WithDefaults fills zero values in place and returns cfg.
func (cfg *Config) WithDefaults() *Config {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	g := &cfg.Generation
	if g.Timeout <= 0 {
		g.Timeout = DefaultTimeout
	}
	if g.ProviderTimeout <= 0 {
		g.ProviderTimeout = DefaultProviderTimeout
	}
	if g.MaxRateLimitRetries == nil {
		n := DefaultRateLimitRetry
		g.MaxRateLimitRetries = &n
	}
	if g.RetryBaseDelay <= 0 {
		g.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if g.MaxRetryDelay <= 0 {
		g.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.Credits.Backend == "" {
		cfg.Credits.Backend = BackendMemory
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = BackendSQLite
	}
	if cfg.History.Backend == BackendSQLite && cfg.History.SQLitePath == "" {
		cfg.History.SQLitePath = DefaultSQLitePath
	}
	if cfg.Auth.JWTSecret == "" && cfg.Auth.JWTSecretEnv == "" {
		cfg.Auth.JWTSecretEnv = DefaultJWTSecretEnv
	}
	return cfg
}
