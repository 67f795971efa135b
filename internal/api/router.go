package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/api/handler"
	apimw "github.com/cardloop/card-courier/internal/api/middleware"
	"github.com/cardloop/card-courier/internal/queue"
)

// NewRouter wires the operational HTTP surface: liveness, Prometheus scrape
// and a JSON dispatch snapshot. The card CRUD API lives in a separate
// service and is deliberately absent here.
func NewRouter(
	q *queue.Queue,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)     // recover panics, return 500
	r.Use(chimw.RealIP)        // trust X-Forwarded-For / X-Real-IP
	r.Use(apimw.CorrelationID) // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	dh := handler.NewDispatchHandler(q)
	hh := handler.NewHealthHandler()

	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// JSON snapshot of the delivery queue
	r.Get("/api/v1/dispatch", dh.GetDispatch)

	return r
}
