// Package httpapi maps the REST surface onto the estimate and catalog services.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/smeta/internal/models"
	"github.com/Simplici0/smeta/internal/pricing"
)

// EstimateService is the estimate repository as seen by the handlers.
type EstimateService interface {
	Create(ctx context.Context, e models.Estimate) (models.Estimate, error)
	Update(ctx context.Context, name string, patch models.EstimatePatch) (models.Estimate, error)
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (pricing.EstimateView, error)
	Search(ctx context.Context, pattern string) ([]pricing.EstimateView, error)
}

// MaterialService is the material catalog as seen by the handlers.
type MaterialService interface {
	Create(ctx context.Context, m models.Material) (models.Material, error)
	Update(ctx context.Context, name string, m models.Material) (models.Material, error)
	Delete(ctx context.Context, name string) error
	Search(ctx context.Context, pattern string, purpose models.Purpose) ([]models.Material, error)
}

// API serves the estimates and materials JSON endpoints.
type API struct {
	estimates EstimateService
	materials MaterialService
	metrics   *Metrics
	log       *zap.Logger
}

// New returns an API over the given services. metrics may be nil.
func New(estimates EstimateService, materials MaterialService, metrics *Metrics, log *zap.Logger) *API {
	return &API{estimates: estimates, materials: materials, metrics: metrics, log: log}
}

// Router builds the chi router. metrics may be nil to disable /metrics.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.log))
	if a.metrics != nil {
		r.Use(a.metrics.middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if a.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/estimates", func(r chi.Router) {
		r.Get("/", a.handleEstimatesList)
		r.Post("/", a.handleEstimateCreate)
		r.Put("/", a.handleEstimateUpdate)
		r.Delete("/", a.handleEstimateDelete)
		r.Put("/{name}", a.handleEstimateUpdate)
		r.Delete("/{name}", a.handleEstimateDelete)
		r.Get("/{name}/xlsx", a.handleEstimateExport)
	})

	r.Route("/materials", func(r chi.Router) {
		r.Get("/", a.handleMaterialsList)
		r.Post("/", a.handleMaterialCreate)
		r.Put("/", a.handleMaterialUpdate)
		r.Delete("/", a.handleMaterialDelete)
		r.Put("/{name}", a.handleMaterialUpdate)
		r.Delete("/{name}", a.handleMaterialDelete)
	})

	return r
}
