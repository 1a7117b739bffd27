package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes. metrics may be nil.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	{
		analyses := v1.Group("/analyses")
		{
			analyses.POST("", handler.SubmitAnalysis)             // POST /api/v1/analyses
			analyses.GET("", handler.ListAnalyses)                // GET /api/v1/analyses
			analyses.GET("/:id", handler.GetAnalysis)             // GET /api/v1/analyses/:id
			analyses.DELETE("/:id", handler.CancelAnalysis)       // DELETE /api/v1/analyses/:id
			analyses.GET("/:id/progress", handler.StreamProgress) // GET /api/v1/analyses/:id/progress
		}

		v1.GET("/conversations/:id/events", handler.ConversationEvents)
		v1.POST("/chat", handler.Chat)
		v1.GET("/nlp/status", handler.NLPStatus)
		v1.GET("/features/:name", handler.FeatureDecision)
	}
}
