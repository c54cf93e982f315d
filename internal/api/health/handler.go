package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"poseidon/pkg/logger"
)

// Checker is a component that can report reachability.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler serves the health endpoint, probing the store and the node RPC.
type Handler struct {
	store       Checker
	rpc         Checker
	startTime   time.Time
	serviceName string
	version     string
	log         *logger.Logger
}

// New creates the health handler.
func New(store, rpc Checker, serviceName, version string) *Handler {
	return &Handler{
		store:       store,
		rpc:         rpc,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
		log:         logger.Get().With("component", "health"),
	}
}

// Status is the overall health report.
type Status struct {
	Status    string            `json:"status"` // healthy, degraded
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HandleHealth probes each dependency with a short deadline.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{
		"store": probe(ctx, h.store),
		"rpc":   probe(ctx, h.rpc),
	}

	status := "healthy"
	code := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Status{
		Status:    status,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func probe(ctx context.Context, c Checker) string {
	if c == nil {
		return "disabled"
	}
	if err := c.Health(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
