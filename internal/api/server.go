package api

import (
	"net/http"
	"time"

	"rankstat/internal"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP routes of the service
func NewRouter(h *SubmissionHandler, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/variables", h.ListVariables)

		api.GET("/submissions", h.ListSubmissions)
		api.POST("/submissions/paired", h.SubmitPaired)
		api.POST("/submissions/chi-square", h.SubmitChiSquare)
		api.GET("/submissions/:id", h.GetSubmission)
		api.DELETE("/submissions/:id", h.CancelSubmission)
		api.GET("/submissions/:id/events", h.StreamEvents)

		api.GET("/analytics/:id/statistics", h.GetStatistics)
	}
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[API] %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
