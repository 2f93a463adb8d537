package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gifts-assessment-service/internal/logger"
	"gifts-assessment-service/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Assessments *AssessmentHandler
	WS          *WSHandler
	Auth        *Auth
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	Log         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Log), requestMetrics(cfg.Metrics))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.WS != nil {
		router.GET("/ws", gin.WrapF(cfg.WS.ServeWS))
	}

	api := router.Group("/api/v1")
	api.Use(cfg.Auth.OptionalAuth())
	{
		api.POST("/assessments", cfg.Assessments.Start)
		api.GET("/assessments/:id/questions", cfg.Assessments.Questions)
		api.POST("/assessments/:id/submit", cfg.Assessments.Submit)
	}

	protected := router.Group("/api/v1")
	protected.Use(cfg.Auth.RequireAuth())
	protected.POST("/insights", cfg.Assessments.Insights)

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", routeOf(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id := identityFrom(c); id != "" {
			fields = append(fields, "identity", id)
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}

func requestMetrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, routeOf(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

func routeOf(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unknown"
}
