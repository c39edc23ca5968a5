package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterNewsRoutes registers the read endpoints. Results are always 200,
// with success false in the body when nothing could be produced.
func RegisterNewsRoutes(r *gin.Engine, svc Service) {
	g := r.Group("/api")
	g.GET("/news/:category", handleGetNews(svc))
	g.GET("/news/:category/fast", handleGetFastNews(svc))
	// Older clients call the fast endpoint without the news segment.
	g.GET("/:category/fast", handleGetFastNews(svc))
	g.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Status())
	})
}

func handleGetNews(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := requireCategory(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.Get(c.Request.Context(), category))
	}
}

// handleGetFastNews never waits past phase 1.
func handleGetFastNews(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := requireCategory(c, svc)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.GetFast(c.Request.Context(), category))
	}
}
