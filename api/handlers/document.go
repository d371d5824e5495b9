package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/handwriting-ocr/internal/service/ocr"
	"github.com/feichai0017/handwriting-ocr/internal/utils/validator"
	"github.com/feichai0017/handwriting-ocr/pkg/converters"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
	"github.com/feichai0017/handwriting-ocr/pkg/progress"
	"github.com/feichai0017/handwriting-ocr/pkg/storage"
)

// multipartOverhead 为表单边界和其他字段预留的空间
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	service   ocr.DocumentProcessor
	validator *validator.DocumentValidator
	logger    logger.Logger
}

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewDocumentHandler(service ocr.DocumentProcessor, v *validator.DocumentValidator, logger logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service:   service,
		validator: v,
		logger:    logger,
	}
}

// ProcessDocument 校验上传的 PDF，然后以 SSE 推送处理进度
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.validator.MaxFileSize()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleValidation(c, h.validator.TooLarge())
			return
		}
		h.handleError(c, http.StatusBadRequest, "INVALID_UPLOAD", "A PDF file is required in the 'file' form field", err)
		return
	}

	doc, info, err := h.validator.ValidateFile(header)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.handleValidation(c, verr)
			return
		}
		h.handleError(c, http.StatusInternalServerError, "UPLOAD_READ_FAILED", "Failed to read uploaded file", err)
		return
	}

	log.Info("upload accepted",
		logger.String("filename", info.Filename),
		logger.Int64("size", info.Size),
		logger.String("hash", info.Hash),
	)

	stream := progress.NewSSE(c.Writer, log)

	// 客户端断开不会中止处理
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := h.service.Process(ctx, doc, stream); err != nil {
		_ = c.Error(err)
	}

	if !stream.Closed() {
		stream.Fail("Processing ended without a result")
	}
}

// GetResult 以附件形式下载已归档的结果
func (h *DocumentHandler) GetResult(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.handleError(c, http.StatusBadRequest, "MISSING_ID", "Result ID is required", nil)
		return
	}

	converter, err := converters.ForFormat(c.Query("format"))
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), nil)
		return
	}

	result, err := h.service.GetResult(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.handleError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Result %s not found", id), nil)
		return
	case errors.Is(err, ocr.ErrArchiveDisabled):
		h.handleError(c, http.StatusNotFound, "ARCHIVE_DISABLED", "Result storage is not configured", nil)
		return
	case err != nil:
		h.handleError(c, http.StatusInternalServerError, "RESULT_LOAD_FAILED", "Failed to get result", err)
		return
	}

	data, err := converter.Convert(result)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "CONVERT_FAILED", "Failed to convert result", err)
		return
	}

	filename := fmt.Sprintf("result_%s.%s", id, converter.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, converter.ContentType(), data)
}

// Preflight 兼容不经过 CORS 中间件的 OPTIONS 请求
func (h *DocumentHandler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Status(http.StatusOK)
}

func (h *DocumentHandler) handleValidation(c *gin.Context, verr *validator.ValidationError) {
	logger.FromContext(c.Request.Context(), h.logger).Warn("upload rejected",
		logger.String("code", verr.Code),
		logger.String("reason", verr.Message),
	)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Code, Message: verr.Message})
}

// handleError 统一错误处理
func (h *DocumentHandler) handleError(c *gin.Context, status int, code, message string, err error) {
	log := logger.FromContext(c.Request.Context(), h.logger)
	fields := []logger.Field{logger.String("path", c.Request.URL.Path), logger.Int("status", status)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if status >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Warn(message, fields...)
	}

	c.JSON(status, ErrorResponse{Error: code, Message: message})
}
