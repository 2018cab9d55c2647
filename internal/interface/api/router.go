package api

import (
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RouterConfig holds HTTP-layer settings
type RouterConfig struct {
	IngestRateLimit float64
	IngestRateBurst int
	Gatherer        prometheus.Gatherer
}

// NewRouter creates the gin engine with all routes
func NewRouter(h *Handler, cfg RouterConfig, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/health", h.Health)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		inbound := v1.Group("/inbound")
		if cfg.IngestRateLimit > 0 {
			inbound.Use(RateLimiter(rate.Limit(cfg.IngestRateLimit), max(cfg.IngestRateBurst, 1)))
		}
		inbound.POST("/email", h.IngestEmail)

		v1.POST("/reconcile", h.TriggerReconcile)
		v1.GET("/reconcile/runs", h.ListRuns)
	}

	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"clientIP", c.ClientIP())
	}
}
