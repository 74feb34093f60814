// Package app wires all mouthsync subsystems into a running HTTP service.
//
// The App struct owns the full lifecycle: New builds the provider failover
// groups, the attempt store, the practice pipeline and the HTTP server; Run
// serves until the context ends; Shutdown releases what New acquired.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/mouthsync/internal/attempt"
	"github.com/MrWong99/mouthsync/internal/config"
	"github.com/MrWong99/mouthsync/internal/health"
	"github.com/MrWong99/mouthsync/internal/mcpserver"
	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/internal/practice"
	"github.com/MrWong99/mouthsync/internal/pronounce"
	"github.com/MrWong99/mouthsync/internal/resilience"
	"github.com/MrWong99/mouthsync/internal/server"
	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/provider/llm"
	"github.com/MrWong99/mouthsync/pkg/provider/stt"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

// ErrNoSTT is reported by /health when no speech-to-text provider could be
// created.
var ErrNoSTT = errors.New("app: no stt provider configured")

// Named pairs a provider with the name it was configured under.
type Named[T any] struct {
	Name     string
	Provider T
}

// Providers holds the configured backends in failover order: the first entry
// of each slice is the primary. Populated by main via the config registry.
type Providers struct {
	STT []Named[stt.Provider]
	LLM []Named[llm.Provider]

	// InitErr is the error that kept the primary STT provider from being
	// created, if any. It is reported by /health.
	InitErr error
}

// App owns all subsystem lifetimes.
type App struct {
	cfg      *config.Config
	metrics  *observe.Metrics
	levelVar *slog.LevelVar

	stt     *resilience.STTFallback
	llm     *resilience.LLMFallback
	store   attempt.Store
	service *practice.Service
	server  *server.Server
	initErr error

	httpServer *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects an attempt store instead of creating one from config.
func WithStore(s attempt.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects the metrics sink. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets configuration reloads change the log level of the
// handler built on lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.levelVar = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers come
// from main (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if providers == nil {
		providers = &Providers{}
	}

	// ── 1. Provider failover groups ──────────────────────────────────────
	a.initSTT(providers)
	a.initLLM(providers)

	// ── 2. Attempt store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Practice pipeline ─────────────────────────────────────────────
	coachOpts := []pronounce.CoachOption{
		pronounce.WithTemperature(cfg.Coach.Temperature),
		pronounce.WithLLMTimeout(cfg.Coach.Timeout),
	}
	if a.llm != nil {
		coachOpts = append(coachOpts, pronounce.WithLLM(a.llm))
	}
	a.service = practice.New(a.stt, pronounce.NewCoach(coachOpts...),
		practice.WithStore(a.store),
		practice.WithDefaultLanguage(cfg.Transcription.Language),
		practice.WithMaxSeconds(cfg.Transcription.MaxSeconds),
	)

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	a.initServer()

	slog.Info("app initialised",
		"stt", a.stt.Info().Name,
		"coach_llm", a.llm != nil,
		"mcp", cfg.MCP.Enabled,
	)
	return a, nil
}

func (a *App) breakerConfig(kind string) resilience.FallbackConfig {
	return resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  a.cfg.Resilience.MaxFailures,
		ResetTimeout: a.cfg.Resilience.ResetTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state changed",
				"kind", kind, "provider", name, "from", from.String(), "to", to.String())
		},
	}}
}

// initSTT builds the STT failover group. Without any provider the group
// holds a stand-in that reports not ready.
func (a *App) initSTT(ps *Providers) {
	a.initErr = ps.InitErr
	if len(ps.STT) == 0 {
		if a.initErr == nil {
			a.initErr = ErrNoSTT
		}
		a.stt = resilience.NewSTTFallback(unavailableSTT{err: a.initErr}, "unavailable", a.breakerConfig("stt"))
		return
	}
	first := ps.STT[0]
	a.stt = resilience.NewSTTFallback(newInstrumentedSTT(first.Name, first.Provider, a.metrics), first.Name, a.breakerConfig("stt"))
	for _, fb := range ps.STT[1:] {
		a.stt.AddFallback(fb.Name, newInstrumentedSTT(fb.Name, fb.Provider, a.metrics))
	}
}

// initLLM builds the coaching LLM failover group, or leaves it nil so the
// coach uses rule-based feedback.
func (a *App) initLLM(ps *Providers) {
	if len(ps.LLM) == 0 {
		return
	}
	first := ps.LLM[0]
	a.llm = resilience.NewLLMFallback(newInstrumentedLLM(first.Name, first.Provider, a.metrics), first.Name, a.breakerConfig("llm"))
	for _, fb := range ps.LLM[1:] {
		a.llm.AddFallback(fb.Name, newInstrumentedLLM(fb.Name, fb.Provider, a.metrics))
	}
}

// initStore connects to PostgreSQL when a DSN is configured and falls back to
// process memory otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Info("attempt store: in memory")
		a.store = attempt.NewMemStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	store := attempt.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	slog.Info("attempt store: postgres")
	return nil
}

func (a *App) initServer() {
	cfg := a.cfg
	engine := viseme.New()

	var transcoder *audio.Transcoder
	if cfg.Transcription.FFmpegPath != "" {
		transcoder = audio.NewTranscoder(cfg.Transcription.FFmpegPath)
	}

	hopts := []health.Option{
		health.WithChecker(health.Checker{Name: "stt", Check: a.stt.Ready}),
		health.WithStatus(a.status),
	}
	if p, ok := a.store.(attempt.Pinger); ok {
		hopts = append(hopts, health.WithChecker(health.Checker{Name: "store", Check: p.Ping}))
	}
	h := health.New(hopts...)

	opts := []server.Option{
		server.WithDecoder(audio.NewDecoder(transcoder)),
		server.WithEngine(engine),
		server.WithMetrics(a.metrics),
		server.WithHealth(h),
		server.WithCORS(server.NewCORS(cfg.Server.CORSOrigins)),
		server.WithReadiness(a.stt.Ready),
		server.WithMaxBytes(cfg.Transcription.MaxBytes),
		server.WithVersion(cfg.Server.APIVersion),
	}
	if cfg.MCP.Enabled {
		mcpSrv := mcpserver.New(cfg.Server.APIVersion, engine)
		opts = append(opts, server.WithMount(cfg.MCP.Path, mcpserver.Handler(mcpSrv)))
	}
	a.server = server.New(a.service, opts...)
}

// status builds the /health document.
func (a *App) status(ctx context.Context) health.Status {
	info := a.stt.Info()
	st := health.Status{
		Model:   info.Model,
		Device:  info.Device,
		Version: a.cfg.Server.APIVersion,
	}
	if st.Device == "" {
		st.Device = "remote"
	}
	err := a.initErr
	if err == nil {
		err = a.stt.Ready(ctx)
	}
	st.Ready = err == nil
	st.Error = health.ErrorString(err)
	return st
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.server }

// ─── Config reload ───────────────────────────────────────────────────────────

// ApplyConfig applies the live-reloadable parts of a changed configuration.
// It is meant as the onChange callback of a config.Watcher.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.levelVar != nil {
		a.levelVar.Set(SlogLevel(d.NewLogLevel))
		slog.Info("config: log level changed", "level", string(d.NewLogLevel))
	}
	if d.CORSChanged {
		a.server.CORS().SetOrigins(d.NewCORSOrigins)
		slog.Info("config: cors origins changed", "origins", d.NewCORSOrigins)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config: changes require a restart", "sections", d.RestartRequired)
	}
}

// SlogLevel converts a config log level to its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address until ctx is cancelled, then
// drains open requests within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.httpServer = &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		tls := a.cfg.Server.TLS
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", tls.Enabled())
		if tls.Enabled() {
			errCh <- a.httpServer.ServeTLS(ln, tls.CertFile, tls.KeyFile)
			return
		}
		errCh <- a.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: http shutdown: %w", err)
	}
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases everything New acquired. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// unavailableSTT stands in for a provider that failed to initialise.
type unavailableSTT struct {
	err error
}

func (u unavailableSTT) Transcribe(context.Context, stt.Request) (*stt.Result, error) {
	return nil, fmt.Errorf("%w: %w", stt.ErrNotReady, u.err)
}

func (u unavailableSTT) Info() stt.Info {
	return stt.Info{Name: "unavailable"}
}

func (u unavailableSTT) Ready(context.Context) error {
	return fmt.Errorf("%w: %w", stt.ErrNotReady, u.err)
}
