package converters

import (
	"fmt"
	"strings"

	"github.com/feichai0017/handwriting-ocr/internal/models"
)

// TextConverter 导出拼接后的全文
type TextConverter struct{}

func (TextConverter) ContentType() string { return "text/plain; charset=utf-8" }

func (TextConverter) Extension() string { return "txt" }

func (TextConverter) Convert(result *models.DocumentResult) ([]byte, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, ErrEmptyResult
	}
	return []byte(result.FullText), nil
}

// MarkdownConverter renders one section per page with its confidence.
type MarkdownConverter struct{}

func (MarkdownConverter) ContentType() string { return "text/markdown; charset=utf-8" }

func (MarkdownConverter) Extension() string { return "md" }

func (MarkdownConverter) Convert(result *models.DocumentResult) ([]byte, error) {
	if result == nil || len(result.Pages) == 0 {
		return nil, ErrEmptyResult
	}

	var b strings.Builder
	title := result.Filename
	if title == "" {
		title = result.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_%d pages, average confidence %.2f_\n", result.Metadata.TotalPages, result.Metadata.AverageConfidence)

	for _, page := range result.Pages {
		fmt.Fprintf(&b, "\n## Page %d\n\n", page.PageNumber)
		b.WriteString(strings.TrimSpace(page.ExtractedText))
		fmt.Fprintf(&b, "\n\n_Confidence: %.2f_\n", page.ConfidenceScore)
	}

	return []byte(b.String()), nil
}

// ForFormat returns the converter for json, txt or md.
func ForFormat(format string) (DocumentConverter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewJSONConverter(), nil
	case "txt", "text":
		return TextConverter{}, nil
	case "md", "markdown":
		return MarkdownConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
