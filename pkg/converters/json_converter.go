package converters

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/feichai0017/handwriting-ocr/internal/models"
)

// ErrEmptyResult 结果中没有页面
var ErrEmptyResult = errors.New("no pages to convert")

// DocumentConverter 定义结果导出接口
type DocumentConverter interface {
	Convert(result *models.DocumentResult) ([]byte, error)
	ContentType() string
	Extension() string
}

// ProcessedDocument 导出的 JSON 文档结构
type ProcessedDocument struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Content     []PageContent    `json:"content"`
	Metadata    DocumentMetadata `json:"metadata"`
	ProcessedAt time.Time        `json:"processedAt"`
}

// PageContent 单页内容
type PageContent struct {
	Text       string  `json:"text"`
	Position   int     `json:"position"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// DocumentMetadata 导出的元数据
type DocumentMetadata struct {
	FileName     string  `json:"fileName,omitempty"`
	FileType     string  `json:"fileType"`
	PageCount    int     `json:"pageCount"`
	Confidence   float64 `json:"confidence"`
	ProcessingMs int64   `json:"processingMs"`
	LowQuality   []int   `json:"lowQualityPages,omitempty"`
}

// LowConfidence 低于该置信度的页面列入 lowQualityPages
const LowConfidence = 0.5

type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) ContentType() string { return "application/json" }

func (c *JSONConverter) Extension() string { return "json" }

func (c *JSONConverter) Convert(result *models.DocumentResult) ([]byte, error) {
	doc, err := c.Build(result)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Build maps a result onto the export structure.
func (c *JSONConverter) Build(result *models.DocumentResult) (*ProcessedDocument, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, ErrEmptyResult
	}

	doc := &ProcessedDocument{
		ID:          result.ID,
		Status:      "completed",
		ProcessedAt: result.CreatedAt,
		Content:     make([]PageContent, 0, len(result.Pages)),
		Metadata: DocumentMetadata{
			FileName:     result.Filename,
			FileType:     "pdf",
			PageCount:    result.Metadata.TotalPages,
			Confidence:   result.Metadata.AverageConfidence,
			ProcessingMs: result.Metadata.ProcessingTimeMs,
		},
	}

	for _, page := range result.Pages {
		doc.Content = append(doc.Content, PageContent{
			Text:       page.ExtractedText,
			Position:   page.PageNumber,
			Type:       "page",
			Confidence: page.ConfidenceScore,
		})
		if page.ConfidenceScore < LowConfidence {
			doc.Metadata.LowQuality = append(doc.Metadata.LowQuality, page.PageNumber)
		}
	}

	return doc, nil
}
