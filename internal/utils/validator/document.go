// internal/utils/validator/document.go
package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

const (
	ContentTypePDF = "application/pdf"

	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
)

// PDFMagic 每个 PDF 文件的前 5 个字节
var PDFMagic = []byte("%PDF-")

var (
	ErrEmptyFile          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidContentType = errors.New("invalid content type")
	ErrInvalidFormat      = errors.New("invalid format")
)

// DocumentValidator 上传文档验证器
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

// ValidatorConfig 验证器配置
type ValidatorConfig struct {
	MaxFileSize  int64    // 最大文件大小（字节）
	AllowedTypes []string // 允许的 Content-Type
}

// ValidationError 验证错误，Unwrap 返回对应的哨兵错误
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	err error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// FileInfo 文件信息
type FileInfo struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Hash        string `json:"hash"`
}

// NewDocumentValidator 创建新的文档验证器
func NewDocumentValidator(logger logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = &ValidatorConfig{}
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = []string{ContentTypePDF}
	}

	return &DocumentValidator{
		logger: logger,
		config: config,
	}
}

// MaxFileSize returns the configured upload bound in bytes.
func (v *DocumentValidator) MaxFileSize() int64 {
	return v.config.MaxFileSize
}

// ValidateFile 验证上传的文件并读入内存
func (v *DocumentValidator) ValidateFile(header *multipart.FileHeader) (*models.Document, FileInfo, error) {
	info := FileInfo{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}

	// 大小在读取前检查
	if err := v.checkSize(info.Size); err != nil {
		return nil, info, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, info, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.config.MaxFileSize+1))
	if err != nil {
		return nil, info, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := v.Validate(header.Filename, info.ContentType, data)
	if err != nil {
		return nil, info, err
	}

	info.Size = doc.Size()
	info.Hash = hash(doc.Data)

	v.logger.Debug("upload validated",
		logger.String("filename", info.Filename),
		logger.Int64("size", info.Size),
		logger.String("hash", info.Hash),
	)

	return doc, info, nil
}

// Validate 检查大小、Content-Type 与 PDF 文件头
func (v *DocumentValidator) Validate(filename, contentType string, data []byte) (*models.Document, error) {
	if err := v.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	if err := v.checkContentType(contentType); err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, PDFMagic) {
		return nil, &ValidationError{
			Code:    "INVALID_FORMAT",
			Message: "Invalid format: file is not a PDF document",
			Field:   "file",
			err:     ErrInvalidFormat,
		}
	}

	return &models.Document{Filename: filename, Data: data}, nil
}

func (v *DocumentValidator) checkSize(size int64) error {
	if size == 0 {
		return &ValidationError{
			Code:    "EMPTY_FILE",
			Message: "File is empty",
			Field:   "file",
			err:     ErrEmptyFile,
		}
	}

	if size > v.config.MaxFileSize {
		return v.TooLarge()
	}

	return nil
}

// TooLarge builds the error reported for uploads over the size limit.
func (v *DocumentValidator) TooLarge() *ValidationError {
	return &ValidationError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("File size exceeds maximum limit of %dMB", v.config.MaxFileSize/(1024*1024)),
		Field:   "size",
		err:     ErrFileTooLarge,
	}
}

func (v *DocumentValidator) checkContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		for _, allowed := range v.config.AllowedTypes {
			if mediaType == allowed {
				return nil
			}
		}
	}

	return &ValidationError{
		Code:    "INVALID_CONTENT_TYPE",
		Message: fmt.Sprintf("Invalid content type %q: only PDF files are accepted", contentType),
		Field:   "contentType",
		err:     ErrInvalidContentType,
	}
}

// 计算文件哈希
func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
