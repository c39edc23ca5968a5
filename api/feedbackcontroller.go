package api

import (
	"errors"
	"net/http"

	"emarknews/orchestrator"
	"emarknews/types"

	"github.com/gin-gonic/gin"
)

func RegisterFeedbackRoutes(r *gin.Engine, svc Service) {
	r.POST("/api/feedback", handlePostFeedback(svc))
}

func handlePostFeedback(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f types.Feedback
		if err := c.ShouldBindJSON(&f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		if err := svc.RecordFeedback(f); err != nil {
			switch {
			case errors.Is(err, orchestrator.ErrUnknownCategory):
				notFound(c, f.Category)
			case errors.Is(err, orchestrator.ErrInvalidFeedback):
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			default:
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "category": f.Category})
	}
}
