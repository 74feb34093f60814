package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Unknown
// names only produce a warning, since third-party factories may be
// registered at runtime.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "whisper-native", "deepgram"},
	"llm": {"openai", "solar", "anyllm", "anthropic", "gemini", "deepseek", "mistral", "groq", "ollama"},
}

var apiVersionPattern = regexp.MustCompile(`^v[0-9]+$`)

// LoadOption configures [Load] and [LoadFromReader].
type LoadOption func(*loadOptions)

type loadOptions struct {
	environ map[string]string
}

// WithEnvironment reads overrides from environ instead of the process
// environment.
func WithEnvironment(environ map[string]string) LoadOption {
	return func(o *loadOptions) { o.environ = environ }
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string, opts ...LoadOption) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader is [Load] for an already opened document. An empty document
// yields the defaults.
func LoadFromReader(r io.Reader, opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	e, err := ReadEnv(o.environ)
	if err != nil {
		return nil, err
	}
	e.Apply(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	s := cfg.Server
	if s.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if !s.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", s.LogLevel))
	}
	if !s.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: json, text", s.LogFormat))
	}
	for i, origin := range s.CORSOrigins {
		if err := validateOrigin(origin); err != nil {
			errs = append(errs, fmt.Errorf("server.cors_origins[%d]: %w", i, err))
		}
	}
	if !apiVersionPattern.MatchString(s.APIVersion) {
		errs = append(errs, fmt.Errorf("server.api_version %q must look like v1", s.APIVersion))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if (s.TLS.CertFile == "") != (s.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	p := cfg.Providers
	if p.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	validateProviderName("stt", p.STT.Name)
	validateProviderName("llm", p.LLM.Name)
	for i, fb := range p.STTFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt_fallbacks[%d].name is required", i))
		}
		validateProviderName("stt", fb.Name)
	}
	for i, fb := range p.LLMFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.llm_fallbacks[%d].name is required", i))
		}
		validateProviderName("llm", fb.Name)
	}
	if p.LLM.Name == "" && len(p.LLMFallbacks) > 0 {
		errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
	}
	if p.LLM.Name == "" {
		slog.Info("no LLM provider configured; coaching feedback is rule-based")
	}

	t := cfg.Transcription
	if t.Language == "" {
		errs = append(errs, errors.New("transcription.language is required"))
	}
	if t.MaxSeconds <= 0 {
		errs = append(errs, fmt.Errorf("transcription.max_seconds %v must be positive", t.MaxSeconds))
	}
	if t.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("transcription.max_bytes %d must be positive", t.MaxBytes))
	}

	if cfg.Coach.Temperature < 0 || cfg.Coach.Temperature > 2 {
		errs = append(errs, fmt.Errorf("coach.temperature %.2f is out of range [0, 2]", cfg.Coach.Temperature))
	}
	if cfg.Coach.Timeout < 0 {
		errs = append(errs, errors.New("coach.timeout must not be negative"))
	}

	if cfg.MCP.Enabled && (cfg.MCP.Path == "" || cfg.MCP.Path[0] != '/') {
		errs = append(errs, fmt.Errorf("mcp.path %q must start with /", cfg.MCP.Path))
	}

	if cfg.Resilience.MaxFailures < 0 {
		errs = append(errs, errors.New("resilience.max_failures must not be negative"))
	}
	if cfg.Resilience.ResetTimeout < 0 {
		errs = append(errs, errors.New("resilience.reset_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// validateOrigin accepts "*" or a scheme://host[:port] origin.
func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
		return fmt.Errorf("origin %q must be scheme://host[:port]", origin)
	}
	return nil
}

// validateProviderName logs a warning if name is non-empty and unknown.
func validateProviderName(kind, name string) {
	if name == "" || slices.Contains(ValidProviderNames[kind], name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", ValidProviderNames[kind],
	)
}
