package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterAdminRoutes registers cache maintenance endpoints.
func RegisterAdminRoutes(r *gin.Engine, svc Service, logger *zap.Logger) {
	g := r.Group("/api/admin")
	g.DELETE("/cache", func(c *gin.Context) {
		svc.ClearAll(c.Request.Context())
		logger.Info("cache cleared")
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	g.DELETE("/cache/:category", handleInvalidate(svc, logger))
	g.POST("/ratings/:category", handleRecomputeRatings(svc))
	g.POST("/refresh/:category", handleRefresh(svc))
}

func handleInvalidate(svc Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := requireCategory(c, svc)
		if !ok {
			return
		}
		if err := svc.Invalidate(c.Request.Context(), category); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		logger.Info("category invalidated", zap.String("category", category))
		c.JSON(http.StatusOK, gin.H{"success": true, "category": category})
	}
}

// handleRecomputeRatings re-scores the cached entry without fetching.
func handleRecomputeRatings(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := requireCategory(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.RecomputeRatings(c.Request.Context(), category))
	}
}

// handleRefresh runs a full cycle and responds with its result.
func handleRefresh(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := requireCategory(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.Refresh(c.Request.Context(), category))
	}
}
