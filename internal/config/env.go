package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment variables that override the YAML file. Unset
// variables leave the file's values untouched.
type Env struct {
	ListenAddr    string   `env:"MOUTHSYNC_LISTEN_ADDR"`
	LogLevel      string   `env:"MOUTHSYNC_LOG_LEVEL"`
	ModelName     string   `env:"MODEL_NAME"`
	Language      string   `env:"LANGUAGE_DEFAULT"`
	MaxSeconds    float64  `env:"MAX_SECONDS"`
	MaxBytes      int64    `env:"MAX_BYTES"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:","`
	APIVersion    string   `env:"API_VERSION"`
	UpstageAPIKey string   `env:"UPSTAGE_API_KEY"`
	DatabaseURL   string   `env:"DATABASE_URL"`
}

// ReadEnv parses the override variables from environ, or from the process
// environment when environ is nil.
func ReadEnv(environ map[string]string) (Env, error) {
	e, err := env.ParseAsWithOptions[Env](env.Options{Environment: environ})
	if err != nil {
		return Env{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return e, nil
}

// Apply copies every set variable onto cfg.
func (e Env) Apply(cfg *Config) {
	setString(&cfg.Server.ListenAddr, e.ListenAddr)
	if e.LogLevel != "" {
		cfg.Server.LogLevel = LogLevel(e.LogLevel)
	}
	setString(&cfg.Providers.STT.Model, e.ModelName)
	setString(&cfg.Transcription.Language, e.Language)
	if e.MaxSeconds != 0 {
		cfg.Transcription.MaxSeconds = e.MaxSeconds
	}
	if e.MaxBytes != 0 {
		cfg.Transcription.MaxBytes = e.MaxBytes
	}
	if len(e.CORSOrigins) > 0 {
		cfg.Server.CORSOrigins = e.CORSOrigins
	}
	setString(&cfg.Server.APIVersion, e.APIVersion)
	setString(&cfg.Storage.PostgresDSN, e.DatabaseURL)

	// The Upstage key is only meaningful for the Solar backend, which is
	// reached through the OpenAI-compatible provider.
	if e.UpstageAPIKey != "" {
		if cfg.Providers.LLM.Name == "" {
			cfg.Providers.LLM.Name = "solar"
		}
		if cfg.Providers.LLM.APIKey == "" || cfg.Providers.LLM.Name == "solar" {
			cfg.Providers.LLM.APIKey = e.UpstageAPIKey
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
