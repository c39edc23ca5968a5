package api

import (
	"context"
	"net/http"
	"time"

	"emarknews/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Service is the news pipeline as the HTTP layer sees it.
type Service interface {
	Get(ctx context.Context, category string) types.CacheEntry
	GetFast(ctx context.Context, category string) types.CacheEntry
	Refresh(ctx context.Context, category string) types.CacheEntry
	RecomputeRatings(ctx context.Context, category string) types.CacheEntry
	Invalidate(ctx context.Context, category string) error
	ClearAll(ctx context.Context)
	RecordFeedback(f types.Feedback) error
	Status() types.StatusResponse
	Categories() []string
}

// NewRouter constructs a Gin engine with registered routes. A nil registry
// leaves /metrics unmounted.
func NewRouter(svc Service, registry *prometheus.Registry, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), cors.New(corsConfig()))

	RegisterHealthRoutes(r)
	RegisterNewsRoutes(r, svc)
	RegisterFeedbackRoutes(r, svc)
	RegisterAdminRoutes(r, svc, logger)
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	return r
}

// corsConfig lets the public front end call the API from any origin.
func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}
}

func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// requireCategory writes a 404 and reports false when the path names a
// category the catalog does not know.
func requireCategory(c *gin.Context, svc Service) (string, bool) {
	category := c.Param("category")
	for _, name := range svc.Categories() {
		if name == category {
			return category, true
		}
	}
	notFound(c, category)
	return "", false
}

func notFound(c *gin.Context, category string) {
	c.JSON(404, gin.H{"success": false, "error": "unknown category: " + category})
}
