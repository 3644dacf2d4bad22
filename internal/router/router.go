package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinicstore/config"
	"github.com/jwalitptl/clinicstore/internal/handler/prometheus"
	"github.com/jwalitptl/clinicstore/internal/middleware"
	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	config   Config
	health   Handler
	metrics  *prometheus.Handler
	handlers []Handler
}

type Config struct {
	RateLimit      config.RateLimitConfig
	RequestTimeout time.Duration
	MaxBodySize    int64
	// MetricsPath is where the prometheus handler is mounted. Empty disables it.
	MetricsPath string
}

// ConfigFrom picks the router settings out of the application config.
func ConfigFrom(cfg *config.Config) Config {
	rc := Config{
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodySize:    middleware.DefaultSizeLimitConfig().MaxBodySize,
	}
	if cfg.Monitoring.PrometheusEnabled {
		rc.MetricsPath = cfg.Monitoring.MetricsPath
	}
	return rc
}

func NewRouter(
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
	health Handler,
	metricsH *prometheus.Handler,
	handlers ...Handler,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		config:   config,
		health:   health,
		metrics:  metricsH,
		handlers: handlers,
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: config.MaxBodySize}),
	)

	if config.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RateLimit.RequestsPerSecond),
			Burst: config.RateLimit.Burst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	// Innermost, so it renders errors before the outer middleware read the status.
	engine.Use(middleware.ErrorHandler(log))

	return r
}

func (r *Router) Setup() {
	if r.metrics != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
