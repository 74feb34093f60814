// Package server is the HTTP API of mouthsync: speech-to-text, Hangul to
// IPA conversion, pronunciation evaluation, viseme frames and the live
// playback stream, plus health and metrics endpoints.
//
// Every API route lives under "/{version}" (default "v1"). Failures are
// returned in the envelope {"error":{"code","message","hint","details"}}.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MrWong99/mouthsync/internal/health"
	"github.com/MrWong99/mouthsync/internal/observe"
	"github.com/MrWong99/mouthsync/internal/practice"
	"github.com/MrWong99/mouthsync/pkg/audio"
	"github.com/MrWong99/mouthsync/pkg/viseme"
)

const (
	defaultVersion  = "v1"
	defaultMaxBytes = 20_000_000
)

type mount struct {
	pattern string
	handler http.Handler
}

// Server routes API requests. Build one with [New]; it is safe for
// concurrent use.
type Server struct {
	svc      *practice.Service
	decoder  *audio.Decoder
	engine   *viseme.Engine
	metrics  *observe.Metrics
	health   *health.Handler
	cors     *CORS
	ready    func(ctx context.Context) error
	mounts   []mount
	maxBytes int64
	version  string
	now      func() time.Time

	handler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithDecoder sets the upload decoder. Default: WAV only.
func WithDecoder(d *audio.Decoder) Option {
	return func(s *Server) { s.decoder = d }
}

// WithEngine sets the viseme engine.
func WithEngine(e *viseme.Engine) Option {
	return func(s *Server) { s.engine = e }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth mounts the health endpoints.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithCORS installs a CORS filter in front of every route.
func WithCORS(c *CORS) Option {
	return func(s *Server) { s.cors = c }
}

// WithReadiness sets the probe consulted before accepting audio. A non-nil
// error answers 503 MODEL_NOT_READY.
func WithReadiness(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = fn }
}

// WithMaxBytes limits upload size. Default: 20 MB.
func WithMaxBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithVersion sets the API version path prefix and the version reported in
// responses. Default: "v1".
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// WithMount registers an extra handler, for example the MCP endpoint.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) { s.mounts = append(s.mounts, mount{pattern: pattern, handler: h}) }
}

// New creates a Server backed by svc.
func New(svc *practice.Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		maxBytes: defaultMaxBytes,
		version:  defaultVersion,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.decoder == nil {
		s.decoder = audio.NewDecoder(nil)
	}
	if s.engine == nil {
		s.engine = viseme.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.handler = s.routes()
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// CORS returns the CORS filter, or nil when none is installed.
func (s *Server) CORS() *CORS { return s.cors }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	v := "/" + s.version

	mux.HandleFunc("POST "+v+"/stt", s.handleSTT)
	mux.HandleFunc("POST "+v+"/ipa", s.handleIPA)
	mux.HandleFunc("POST "+v+"/pron-eval", s.handlePronEval)
	mux.HandleFunc("POST "+v+"/viseme/frame", s.handleFrame)
	mux.HandleFunc("POST "+v+"/viseme/timeline", s.handleTimeline)
	mux.HandleFunc("GET "+v+"/viseme/table", s.handleTable)
	mux.HandleFunc("GET "+v+"/playback", s.handlePlayback)
	mux.HandleFunc("POST "+v+"/attempts", s.handleCreateAttempt)
	mux.HandleFunc("GET "+v+"/attempts", s.handleListAttempts)
	mux.HandleFunc("GET "+v+"/attempts/{id}", s.handleGetAttempt)

	mux.Handle("GET /metrics", observe.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}
	for _, m := range s.mounts {
		mux.Handle(m.pattern, m.handler)
	}

	var h http.Handler = mux
	if s.cors != nil {
		h = s.cors.Wrap(h)
	}
	return observe.Middleware(s.metrics)(h)
}
