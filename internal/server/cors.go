package server

import (
	"net/http"
	"slices"
	"sync/atomic"
)

// CORS echoes allowed origins and answers preflight requests. The origin
// list can be replaced while the server runs.
type CORS struct {
	origins atomic.Pointer[[]string]
}

// NewCORS returns a CORS filter allowing origins. "*" allows any origin.
func NewCORS(origins []string) *CORS {
	c := &CORS{}
	c.SetOrigins(origins)
	return c
}

// SetOrigins replaces the allowed origins.
func (c *CORS) SetOrigins(origins []string) {
	cp := slices.Clone(origins)
	c.origins.Store(&cp)
}

// Origins returns the allowed origins.
func (c *CORS) Origins() []string {
	return slices.Clone(*c.origins.Load())
}

func (c *CORS) allowed(origin string) bool {
	list := *c.origins.Load()
	return slices.Contains(list, "*") || slices.Contains(list, origin)
}

// Wrap returns next behind the CORS filter.
func (c *CORS) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Add("Vary", "Origin")
		ok := c.allowed(origin)
		if ok {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if ok {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				}
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
