// Package config provides the configuration schema, loader, environment
// overrides, hot-reload watcher and provider registry for the mouthsync
// server.
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

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatJSON || f == LogFormatText
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":8000"
	DefaultLanguage        = "ko"
	DefaultMaxSeconds      = 60
	DefaultMaxBytes        = 20_000_000
	DefaultAPIVersion      = "v1"
	DefaultCORSOrigin      = "http://localhost:3000"
	DefaultMCPPath         = "/mcp"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCoachTimeout    = 20 * time.Second
	DefaultCoachTemp       = 0.7
)

// Config is the root configuration structure. Load it with [Load] or
// [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Coach         CoachConfig         `yaml:"coach"`
	Storage       StorageConfig       `yaml:"storage"`
	MCP           MCPConfig           `yaml:"mcp"`
	Resilience    ResilienceConfig    `yaml:"resilience"`
}

// ServerConfig holds network, logging and HTTP settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`

	// CORSOrigins lists origins allowed to call the API from a browser. "*"
	// allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`

	// APIVersion is reported by /health and in transcription responses.
	APIVersion string `yaml:"api_version"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS enables HTTPS when both files are set.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds PEM file paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether TLS is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// ProvidersConfig selects the speech-to-text and coaching backends. Fallback
// entries are tried in order when the primary fails.
type ProvidersConfig struct {
	STT          ProviderEntry   `yaml:"stt"`
	STTFallbacks []ProviderEntry `yaml:"stt_fallbacks"`
	LLM          ProviderEntry   `yaml:"llm"`
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks"`
}

// ProviderEntry is the configuration block shared by all providers. Name
// selects the factory in the [Registry].
type ProviderEntry struct {
	Name    string         `yaml:"name"`
	APIKey  string         `yaml:"api_key"`
	BaseURL string         `yaml:"base_url"`
	Model   string         `yaml:"model"`
	Options map[string]any `yaml:"options"`
}

// TranscriptionConfig bounds uploads and sets the default language.
type TranscriptionConfig struct {
	Language   string  `yaml:"language"`
	MaxSeconds float64 `yaml:"max_seconds"`
	MaxBytes   int64   `yaml:"max_bytes"`

	// FFmpegPath enables non-WAV uploads. Empty restricts uploads to WAV.
	FFmpegPath string `yaml:"ffmpeg_path"`
}

// CoachConfig tunes LLM feedback.
type CoachConfig struct {
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig selects where practice attempts are kept. An empty DSN keeps
// them in memory.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MCPConfig controls the Model Context Protocol tool endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ResilienceConfig tunes the per-provider circuit breakers.
type ResilienceConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if s.LogFormat == "" {
		s.LogFormat = LogFormatJSON
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{DefaultCORSOrigin}
	}
	if s.APIVersion == "" {
		s.APIVersion = DefaultAPIVersion
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}

	t := &cfg.Transcription
	if t.Language == "" {
		t.Language = DefaultLanguage
	}
	if t.MaxSeconds == 0 {
		t.MaxSeconds = DefaultMaxSeconds
	}
	if t.MaxBytes == 0 {
		t.MaxBytes = DefaultMaxBytes
	}

	if cfg.Coach.Temperature == 0 {
		cfg.Coach.Temperature = DefaultCoachTemp
	}
	if cfg.Coach.Timeout == 0 {
		cfg.Coach.Timeout = DefaultCoachTimeout
	}
	if cfg.MCP.Path == "" {
		cfg.MCP.Path = DefaultMCPPath
	}
}
