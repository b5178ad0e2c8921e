package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/primecart/search-sync/internal/service"
	"github.com/primecart/search-sync/pkg/health"
	"github.com/primecart/search-sync/pkg/middleware"
)

// syncTimeout bounds a single HTTP-triggered run. A full catalog walk pages
// through many upstream calls, so this is deliberately long.
const syncTimeout = 5 * time.Minute

// NewRouter creates a chi router with all synchronizer routes registered.
func NewRouter(
	syncService *service.SyncService,
	healthHandler *health.Handler,
	environment string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Environment = environment

	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.Tracing("search-sync"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("search-sync"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	syncHandler := NewSyncHandler(syncService, logger)
	webhookHandler := NewWebhookHandler(syncService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(syncTimeout))

		r.Route("/sync", func(r chi.Router) {
			r.Post("/products", syncHandler.SyncProducts)
			r.Post("/products/{id}", syncHandler.SyncProduct)
			r.Post("/brands", syncHandler.SyncBrands)
			r.Post("/brands/{id}", syncHandler.SyncBrand)
			r.Post("/categories", syncHandler.SyncCategories)
			r.Post("/categories/{id}", syncHandler.SyncCategory)
			r.Post("/settings", syncHandler.SyncSettings)
		})

		r.Post("/webhooks/content", webhookHandler.ContentChanged)
	})

	return r
}
