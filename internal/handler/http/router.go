package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/health"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	ProfileMaxAge  time.Duration
	PprofCIDRs     []string
	CORS           middleware.CORSConfig
}

// NewRouter creates a chi router with all sellertrust routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	profileService *service.ProfileService,
	healthHandler *health.Handler,
	metrics *middleware.HTTPMetrics,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)
	sellerHandler := NewSellerHandler(profileService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(middleware.CacheControl(0)).Post("/reviews", reviewHandler.SubmitReview)

		r.Route("/sellers/{identifier}", func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.ProfileMaxAge))
			r.Get("/", sellerHandler.GetSeller)
			r.Get("/profile", sellerHandler.GetProfile)
		})
	})

	return r
}
