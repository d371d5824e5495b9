package ocr

import (
	"context"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/progress"
)

// PageSeparator joins the text of consecutive pages in DocumentResult.FullText.
const PageSeparator = "\n\n--- Page Break ---\n\n"

// DocumentProcessor 文档识别服务
type DocumentProcessor interface {
	// Process 运行完整流水线，并且恰好向 reporter 发送一次终止事件
	Process(ctx context.Context, doc *models.Document, reporter progress.Reporter) (*models.DocumentResult, error)
	// GetResult 读取已归档的结果
	GetResult(ctx context.Context, id string) (*models.DocumentResult, error)
}

// Recognizer turns one page image into a page result and never fails.
type Recognizer interface {
	Recognize(ctx context.Context, page models.PageImage) models.PageResult
}

// Archive 保存完成的结果
type Archive interface {
	Save(ctx context.Context, result *models.DocumentResult) error
	Load(ctx context.Context, id string) (*models.DocumentResult, error)
}
