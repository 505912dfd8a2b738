package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler serves liveness/readiness information for the process.
type Handler struct {
	checks map[string]Checker
}

// New builds a health handler. Nil checkers are skipped so optional
// dependencies (redis, kafka) can be wired unconditionally.
func New() *Handler {
	return &Handler{checks: make(map[string]Checker)}
}

// Register adds a named dependency check.
func (h *Handler) Register(name string, c Checker) {
	if c != nil {
		h.checks[name] = c
	}
}

// ServeHTTP reports overall status plus per-dependency detail.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	detail := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			detail[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		detail[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       http.StatusText(status),
		"dependencies": detail,
	})
}
