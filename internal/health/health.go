// Package health serves the liveness, readiness and legacy status endpoints.
//
//   - /healthz: liveness; always 200 while the process serves HTTP.
//   - /readyz: readiness; 200 only when every registered [Checker] passes.
//   - /health: the status document older clients poll, reporting whether the
//     speech model is ready along with model, device and API version.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const defaultCheckTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is healthy. It must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Status is the /health document.
type Status struct {
	Ready   bool    `json:"ready"`
	Model   string  `json:"model"`
	Device  string  `json:"device"`
	Version string  `json:"version"`
	Error   *string `json:"error"`
}

// StatusFunc produces the /health document.
type StatusFunc func(ctx context.Context) Status

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. Its configuration is fixed at
// construction, so it is safe for concurrent use.
type Handler struct {
	checkers []Checker
	status   StatusFunc
	timeout  time.Duration
}

// Option configures a [Handler].
type Option func(*Handler)

// WithChecker adds a readiness checker.
func WithChecker(c Checker) Option {
	return func(h *Handler) { h.checkers = append(h.checkers, c) }
}

// WithStatus sets the /health document source.
func WithStatus(fn StatusFunc) Option {
	return func(h *Handler) { h.status = fn }
}

// WithCheckTimeout bounds each readiness check. Default: 5s.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New creates a [Handler].
func New(opts ...Option) *Handler {
	h := &Handler{timeout: defaultCheckTimeout}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Healthz always reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs all checkers concurrently and reports 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(h.checkers))
		allOK  = true
	)
	for _, c := range h.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
				return
			}
			checks[c.Name] = "ok"
		}()
	}
	wg.Wait()

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Health serves the legacy status document. It always answers 200; clients
// read the ready flag.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeJSON(w, http.StatusOK, Status{Ready: true})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	writeJSON(w, http.StatusOK, h.status(ctx))
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /health", h.Health)
}

// ErrorString returns a pointer to err's message, or nil for a nil error.
func ErrorString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
