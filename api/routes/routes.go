package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/doc-converter/api/handlers"
	"github.com/feichai0017/doc-converter/api/middleware"
)

// SetupRoutes wires all endpoints. The health probe stays open; the
// conversion routes sit behind the API key.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, apiKey string) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	v1.GET("/health", h.Convert.Health)

	docs := v1.Group("/convert")
	docs.Use(middleware.APIKeyAuth(apiKey))
	{
		docs.POST("", h.Convert.ConvertSync)
		docs.POST("/async", h.Convert.Submit)
		docs.POST("/batch", h.Convert.SubmitBatch)
		docs.GET("/status/:taskId", h.Convert.GetStatus)
		docs.GET("/result/:taskId", h.Convert.GetResult)
		docs.DELETE("/task/:taskId", h.Convert.CancelTask)
	}
}
