package healthprobe

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// HealthChecker provides liveness and readiness checks. Readiness is
// per component: the service runs several monitors plus the HTTP API,
// and /ready reports 200 only once every registered component has
// marked itself ready.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	components map[string]bool
}

// New creates a HealthChecker with the given component names, all
// initially not ready.
func New(components ...string) *HealthChecker {
	m := make(map[string]bool, len(components))
	for _, name := range components {
		m[name] = false
	}
	return &HealthChecker{
		startTime:  time.Now(),
		components: m,
	}
}

// SetReady marks a component ready or not ready. Unknown names are
// registered on first use.
func (h *HealthChecker) SetReady(component string, ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[component] = ready
}

// notReady returns the sorted names of components not yet ready.
func (h *HealthChecker) notReady() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var pending []string
	for name, ready := range h.components {
		if !ready {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)
	return pending
}

// HealthResponse represents the health or readiness check response.
type HealthResponse struct {
	Status  string   `json:"status"`
	Uptime  string   `json:"uptime"`
	Pending []string `json:"pending,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when every component is ready, 503 otherwise with
// the pending component names.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending := h.notReady()
		uptime := time.Since(h.startTime).String()

		w.Header().Set("Content-Type", "application/json")
		if len(pending) > 0 {
			resp := HealthResponse{
				Status:  "not_ready",
				Uptime:  uptime,
				Pending: pending,
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime,
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
