//go:build tesseract

package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/handwriting-ocr/config"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

func init() {
	registerBackend(config.BackendTesseract, func(_ context.Context, cfg config.RecognitionConfig, _ logger.Logger) (Backend, error) {
		return NewTesseractBackend(cfg.Language), nil
	})
}

var _ Backend = (*TesseractBackend)(nil)

// TesseractBackend 本地 Tesseract 识别，每次调用使用独立的 client
type TesseractBackend struct {
	languages []string
}

func NewTesseractBackend(language string) *TesseractBackend {
	var languages []string
	for _, l := range strings.Split(language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			languages = append(languages, l)
		}
	}
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractBackend{languages: languages}
}

func (b *TesseractBackend) Name() string { return "tesseract" }

func (b *TesseractBackend) Extract(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(b.languages...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(req.Image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return text, nil
}

func (b *TesseractBackend) Close() error { return nil }
