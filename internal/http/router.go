// Package httpapi exposes the operational surface of the ledger process:
// liveness and Prometheus metrics. Ledger operations are invoked in-process.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edugrant/pkg/requestcontext"
)

// HealthChecker reports whether the ledger can serve requests.
type HealthChecker interface {
	Check(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRouter wires /healthz and /metrics.
func NewRouter(health HealthChecker, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, propagateRequestID)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if err := health.Check(req.Context()); err != nil {
			resp = healthResponse{Status: "degraded", Error: err.Error()}
			status = http.StatusServiceUnavailable
			if logger != nil {
				logger.WarnContext(req.Context(), "health check failed",
					"error", err,
					"request_id", requestcontext.RequestID(req.Context()),
				)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// propagateRequestID copies chi's request id into the ledger's request context.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if rid := middleware.GetReqID(ctx); rid != "" {
			ctx = requestcontext.WithRequestID(ctx, rid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
