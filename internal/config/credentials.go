package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// LookupEnv resolves environment variables. [os.LookupEnv] is the
// production implementation.
type LookupEnv func(key string) (string, bool)

// MapEnv returns a LookupEnv backed by m.
func MapEnv(m map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// ConventionalEnv maps provider names to the environment variable checked
// when an entry sets neither api_key nor api_key_env.
var ConventionalEnv = map[string]string{
	"openai":          "OPENAI_API_KEY",
	"groq":            "GROQ_API_KEY",
	"gemini":          "GEMINI_API_KEY",
	"deepseek":        "DEEPSEEK_API_KEY",
	"mistral":         "MISTRAL_API_KEY",
	"anthropic":       "ANTHROPIC_API_KEY",
	"huggingface":     "HUGGINGFACE_API_KEY",
	"huggingface-tts": "HUGGINGFACE_API_KEY",
	"elevenlabs":      "ELEVENLABS_API_KEY",
	"murf":            "MURF_API_KEY",
}

// Keyless lists providers that run without a credential.
var Keyless = []string{"ollama", "llamacpp"}

// Credential resolves the entry's credential: the api_key value, else the
// api_key_env variable, else the provider's conventional variable. The
// second result is false when no non-empty credential was found. Keyless
// providers always report true.
func (e ProviderEntry) Credential(env LookupEnv) (string, bool) {
	if k := strings.TrimSpace(e.APIKey); k != "" {
		return k, true
	}
	for _, name := range []string{e.APIKeyEnv, ConventionalEnv[e.Name]} {
		if name == "" || env == nil {
			continue
		}
		if v, ok := env(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", slices.Contains(Keyless, e.Name)
}

// Secret resolves the auth secret the same way provider credentials are
// resolved.
func (a AuthConfig) Secret(env LookupEnv) string {
	if a.JWTSecret != "" {
		return a.JWTSecret
	}
	if a.JWTSecretEnv != "" && env != nil {
		if v, ok := env(a.JWTSecretEnv); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// OSEnv is the process environment.
var OSEnv LookupEnv = os.LookupEnv
