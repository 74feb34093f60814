// Command mouthsync serves speech transcription, pronunciation scoring and
// viseme resolution over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/mouthsync/internal/app"
	"github.com/MrWong99/mouthsync/internal/config"
	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/pkg/provider/llm"
	"github.com/MrWong99/mouthsync/pkg/provider/llm/anyllm"
	"github.com/MrWong99/mouthsync/pkg/provider/llm/openai"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	"github.com/MrWong99/mouthsync/pkg/provider/stt/deepgram"
	"github.com/MrWong99/mouthsync/pkg/provider/stt/whisper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "mouthsync: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "mouthsync: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(os.Stderr, cfg.Server.LogFormat, levelVar))

	slog.Info("mouthsync starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		APIVersion:     cfg.Server.APIVersion,
		STTProvider:    cfg.Providers.STT.Name,
		LLMProvider:    cfg.Providers.LLM.Name,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLevelVar(levelVar))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	watcher, err := config.NewWatcher(*configPath, application.ApplyConfig)
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return application.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	slog.Info("server ready, press Ctrl+C to shut down")

	code := 0
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	closeProviders(providers)
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyLLMBackends are the any-llm-go backends that take an optional API key
// and base URL.
var anyLLMBackends = []string{"anthropic", "gemini", "deepseek", "mistral", "groq", "ollama"}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("solar", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.NewSolar(entry.APIKey, entry.Model, opts...)
	})

	// "anyllm" picks its backend from options.backend; the named entries
	// below are shorthands for the same factory.
	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		backend := optString(entry.Options, "backend")
		if backend == "" {
			return nil, errors.New("anyllm: options.backend is required")
		}
		return newAnyLLM(backend, entry)
	})
	for _, backend := range anyLLMBackends {
		reg.RegisterLLM(backend, func(entry config.ProviderEntry) (llm.Provider, error) {
			return newAnyLLM(backend, entry)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	slog.Debug("registered providers", "stt", reg.STTNames(), "llm", reg.LLMNames())
}

func newAnyLLM(backend string, entry config.ProviderEntry) (llm.Provider, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(backend, entry.Model, opts...)
}

// buildProviders instantiates the primary and fallback providers named in
// cfg. A primary STT provider that fails to initialise does not stop the
// server: its error is kept for /health and the fallbacks still serve.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	sttEntries := append([]config.ProviderEntry{cfg.Providers.STT}, cfg.Providers.STTFallbacks...)
	for i, entry := range sttEntries {
		if entry.Name == "" {
			continue
		}
		p, err := reg.CreateSTT(entry)
		switch {
		case errors.Is(err, config.ErrProviderNotRegistered):
			return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		case err != nil && i == 0:
			slog.Error("primary stt provider unavailable", "name", entry.Name, "err", err)
			ps.InitErr = fmt.Errorf("%s: %w", entry.Name, err)
		case err != nil:
			slog.Warn("stt fallback unavailable", "name", entry.Name, "err", err)
		default:
			ps.STT = append(ps.STT, app.Named[stt.Provider]{Name: entry.Name, Provider: p})
			slog.Info("provider created", "kind", "stt", "name", entry.Name)
		}
	}

	llmEntries := append([]config.ProviderEntry{cfg.Providers.LLM}, cfg.Providers.LLMFallbacks...)
	for _, entry := range llmEntries {
		if entry.Name == "" {
			continue
		}
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		ps.LLM = append(ps.LLM, app.Named[llm.Provider]{Name: entry.Name, Provider: p})
		slog.Info("provider created", "kind", "llm", "name", entry.Name)
	}

	return ps, nil
}

// closeProviders releases providers holding native resources.
func closeProviders(ps *app.Providers) {
	for _, p := range ps.STT {
		if c, ok := p.Provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("provider close error", "name", p.Name, "err", err)
			}
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        mouthsync startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	fmt.Printf("║  Fallbacks       : %-19s ║\n",
		fmt.Sprintf("%d stt / %d llm", len(cfg.Providers.STTFallbacks), len(cfg.Providers.LLMFallbacks)))
	storage := "memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Attempts        : %-19s ║\n", storage)
	mcp := "(disabled)"
	if cfg.MCP.Enabled {
		mcp = cfg.MCP.Path
	}
	fmt.Printf("║  MCP             : %-19s ║\n", mcp)
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len([]rune(value)) > 19 {
		value = string([]rune(value)[:16]) + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, format config.LogFormat, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
