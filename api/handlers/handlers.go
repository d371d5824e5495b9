package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/handwriting-ocr/internal/service/ocr"
	"github.com/feichai0017/handwriting-ocr/internal/utils/validator"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Health   *HealthHandler
}

func NewHandlers(
	service ocr.DocumentProcessor,
	v *validator.DocumentValidator,
	backend string,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(service, v, logger),
		Health:   &HealthHandler{backend: backend},
	}
}

type HealthHandler struct {
	backend string
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": h.backend,
	})
}
