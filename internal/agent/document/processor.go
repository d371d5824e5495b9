package document

import (
	"context"
	"errors"

	"github.com/feichai0017/handwriting-ocr/internal/models"
)

var (
	// ErrPageNotFound 请求的页码超出文档范围
	ErrPageNotFound = errors.New("page not found")
	// ErrNoPages 文档没有可用页面
	ErrNoPages = errors.New("document has no pages")
	// ErrUnreadable 文档无法被解析
	ErrUnreadable = errors.New("document is unreadable")
)

// Rasterizer opens a document for page-by-page rendering.
type Rasterizer interface {
	Open(ctx context.Context, doc *models.Document) (PageSource, error)
}

// PageSource renders pages of one opened document.
type PageSource interface {
	// PageCount 返回文档结构中的真实页数；无法获得时返回错误，调用方改为逐页探测
	PageCount() (int, error)

	// Rasterize 渲染 1 起始的页码；越界时返回 ErrPageNotFound
	Rasterize(ctx context.Context, page int) (models.PageImage, error)

	// Close 清理临时资源
	Close() error
}

// Normalizer prepares a raw page image for recognition.
type Normalizer interface {
	Normalize(ctx context.Context, page models.PageImage) (models.PageImage, error)
}
