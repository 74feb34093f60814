package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/mouthsync/internal/config"
)

// noEnv isolates tests from the process environment.
var noEnv = config.WithEnvironment(map[string]string{})

const minimalYAML = `
providers:
  stt:
    name: whisper
`

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML), noEnv)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := config.Config{
		Server: config.ServerConfig{
			ListenAddr:      ":8000",
			LogLevel:        config.LogInfo,
			LogFormat:       config.LogFormatJSON,
			CORSOrigins:     []string{"http://localhost:3000"},
			APIVersion:      "v1",
			ShutdownTimeout: 10 * time.Second,
		},
		Providers: config.ProvidersConfig{STT: config.ProviderEntry{Name: "whisper"}},
		Transcription: config.TranscriptionConfig{
			Language:   "ko",
			MaxSeconds: 60,
			MaxBytes:   20_000_000,
		},
		Coach: config.CoachConfig{Temperature: 0.7, Timeout: 20 * time.Second},
		MCP:   config.MCPConfig{Path: "/mcp"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromReader_FullDocument(t *testing.T) {
	t.Parallel()

	const doc = `
server:
  listen_addr: ":9000"
  log_level: debug
  log_format: text
  cors_origins: ["https://app.example.com", "http://localhost:5173"]
  api_version: v2
  shutdown_timeout: 3s
providers:
  stt:
    name: whisper
    base_url: http://localhost:8080
    model: small
  stt_fallbacks:
    - name: deepgram
      api_key: dg-key
  llm:
    name: solar
    api_key: up-key
transcription:
  language: en
  max_seconds: 30
  max_bytes: 1000
  ffmpeg_path: /usr/bin/ffmpeg
coach:
  temperature: 0.2
  timeout: 5s
storage:
  postgres_dsn: postgres://localhost/mouthsync
mcp:
  enabled: true
resilience:
  max_failures: 3
  reset_timeout: 1m
`
	cfg, err := config.LoadFromReader(strings.NewReader(doc), noEnv)
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second || cfg.Coach.Timeout != 5*time.Second {
		t.Errorf("durations = %v / %v", cfg.Server.ShutdownTimeout, cfg.Coach.Timeout)
	}
	if len(cfg.Providers.STTFallbacks) != 1 || cfg.Providers.STTFallbacks[0].APIKey != "dg-key" {
		t.Errorf("stt_fallbacks = %+v", cfg.Providers.STTFallbacks)
	}
	if cfg.Resilience.ResetTimeout != time.Minute || cfg.Resilience.MaxFailures != 3 {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if !cfg.MCP.Enabled || cfg.MCP.Path != "/mcp" {
		t.Errorf("mcp = %+v", cfg.MCP)
	}
	if cfg.Transcription.FFmpegPath != "/usr/bin/ffmpeg" || cfg.Transcription.MaxBytes != 1000 {
		t.Errorf("transcription = %+v", cfg.Transcription)
	}
}

func TestLoadFromReader_EnvOverrides(t *testing.T) {
	t.Parallel()

	const doc = `
server:
  listen_addr: ":9000"
providers:
  stt:
    name: whisper
    model: base
transcription:
  max_seconds: 30
`
	env := map[string]string{
		"MOUTHSYNC_LISTEN_ADDR": ":7000",
		"MOUTHSYNC_LOG_LEVEL":   "warn",
		"MODEL_NAME":            "large-v3",
		"LANGUAGE_DEFAULT":      "en",
		"MAX_SECONDS":           "90",
		"MAX_BYTES":             "5000",
		"CORS_ORIGINS":          "https://a.example.com,https://b.example.com",
		"API_VERSION":           "v3",
		"UPSTAGE_API_KEY":       "up-secret",
		"DATABASE_URL":          "postgres://db/mouthsync",
	}
	cfg, err := config.LoadFromReader(strings.NewReader(doc), config.WithEnvironment(env))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"listen_addr", cfg.Server.ListenAddr, ":7000"},
		{"log_level", cfg.Server.LogLevel, config.LogWarn},
		{"model", cfg.Providers.STT.Model, "large-v3"},
		{"language", cfg.Transcription.Language, "en"},
		{"max_seconds", cfg.Transcription.MaxSeconds, 90.0},
		{"max_bytes", cfg.Transcription.MaxBytes, int64(5000)},
		{"cors", strings.Join(cfg.Server.CORSOrigins, " "), "https://a.example.com https://b.example.com"},
		{"api_version", cfg.Server.APIVersion, "v3"},
		{"llm name", cfg.Providers.LLM.Name, "solar"},
		{"llm key", cfg.Providers.LLM.APIKey, "up-secret"},
		{"dsn", cfg.Storage.PostgresDSN, "postgres://db/mouthsync"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestEnvApply_UpstageKeyDoesNotClobberOtherProvider(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Providers: config.ProvidersConfig{
		LLM: config.ProviderEntry{Name: "openai", APIKey: "sk-openai"},
	}}
	config.Env{UpstageAPIKey: "up-secret"}.Apply(cfg)
	if cfg.Providers.LLM.APIKey != "sk-openai" || cfg.Providers.LLM.Name != "openai" {
		t.Errorf("LLM = %+v, want the openai entry untouched", cfg.Providers.LLM)
	}
}

func TestReadEnv_InvalidNumber(t *testing.T) {
	t.Parallel()

	if _, err := config.ReadEnv(map[string]string{"MAX_SECONDS": "lots"}); err == nil {
		t.Fatal("expected error for non-numeric MAX_SECONDS")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "missing stt",
			doc:  `server: {log_level: info}`,
			want: []string{"providers.stt.name is required"},
		},
		{
			name: "bad server values",
			doc: minimalYAML + `
server:
  log_level: bananas
  log_format: xml
  api_version: latest
  cors_origins: ["localhost:3000", "https://ok.example.com/path"]
`,
			want: []string{"server.log_level", "server.log_format", "server.api_version", "cors_origins[0]", "cors_origins[1]"},
		},
		{
			name: "half tls",
			doc:  minimalYAML + "server:\n  tls:\n    cert_file: a.pem\n",
			want: []string{"server.tls requires both"},
		},
		{
			name: "limits and coach",
			doc:  minimalYAML + "transcription:\n  max_seconds: -1\n  max_bytes: -5\ncoach:\n  temperature: 3\n",
			want: []string{"max_seconds", "max_bytes", "coach.temperature"},
		},
		{
			name: "fallbacks",
			doc:  minimalYAML + "  stt_fallbacks:\n    - model: x\n  llm_fallbacks:\n    - name: openai\n",
			want: []string{"stt_fallbacks[0].name is required", "llm_fallbacks requires providers.llm"},
		},
		{
			name: "mcp path",
			doc:  minimalYAML + "mcp:\n  enabled: true\n  path: mcp\n",
			want: []string{"mcp.path"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadFromReader(strings.NewReader(tt.doc), noEnv)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(minimalYAML+"npcs: []\n"), noEnv)
	if err == nil || !strings.Contains(err.Error(), "npcs") {
		t.Errorf("err = %v, want unknown field error naming npcs", err)
	}
}

func TestTLSConfig_Enabled(t *testing.T) {
	t.Parallel()

	if (config.TLSConfig{CertFile: "c"}).Enabled() {
		t.Error("Enabled() with only cert_file = true")
	}
	if !(config.TLSConfig{CertFile: "c", KeyFile: "k"}).Enabled() {
		t.Error("Enabled() with both files = false")
	}
}
