package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/handwriting-ocr/api/handlers"
	"github.com/feichai0017/handwriting-ocr/api/middleware"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowedOrigins []string, log logger.Logger) {
	// 全局中间件
	r.Use(middleware.RequestID(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/healthz", h.Health.Check)

	r.POST("/ocr", h.Document.ProcessDocument)
	r.OPTIONS("/ocr", h.Document.Preflight)
	r.GET("/ocr/results/:id", h.Document.GetResult)
}
