package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/feichai0017/handwriting-ocr/internal/agent/document"
	"github.com/feichai0017/handwriting-ocr/internal/models"
)

type Config struct {
	MaxDimension int
	Grayscale    bool
	Denoise      float64
	Contrast     float64
	Sharpen      float64
}

var _ document.Normalizer = (*Normalizer)(nil)

// Normalizer 按顺序执行预处理步骤并输出 PNG
type Normalizer struct {
	steps []Preprocessor
}

// NewNormalizer builds the pipeline resize, grayscale, denoise, contrast, sharpen,
// skipping steps whose setting is zero.
func NewNormalizer(cfg Config) *Normalizer {
	var steps []Preprocessor

	if cfg.MaxDimension > 0 {
		steps = append(steps, NewResizeProcessor(cfg.MaxDimension))
	}
	if cfg.Grayscale {
		steps = append(steps, NewGrayscaleProcessor())
	}
	if cfg.Denoise > 0 {
		steps = append(steps, NewDenoiseProcessor(cfg.Denoise))
	}
	if cfg.Contrast != 0 {
		steps = append(steps, NewContrastProcessor(cfg.Contrast))
	}
	if cfg.Sharpen > 0 {
		steps = append(steps, NewSharpenProcessor(cfg.Sharpen))
	}

	return &Normalizer{steps: steps}
}

// NewNormalizerWithSteps uses steps as given.
func NewNormalizerWithSteps(steps ...Preprocessor) *Normalizer {
	return &Normalizer{steps: steps}
}

func (n *Normalizer) Normalize(ctx context.Context, page models.PageImage) (models.PageImage, error) {
	img, err := imaging.Decode(bytes.NewReader(page.Data), imaging.AutoOrientation(true))
	if err != nil {
		return page, fmt.Errorf("failed to decode page %d: %w", page.PageNumber, err)
	}

	for _, step := range n.steps {
		if err := ctx.Err(); err != nil {
			return page, err
		}

		var out image.Image
		out, err = step.Process(img)
		if err != nil {
			return page, fmt.Errorf("%s failed on page %d: %w", step.Name(), page.PageNumber, err)
		}
		img = out
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return page, fmt.Errorf("failed to encode page %d: %w", page.PageNumber, err)
	}

	return models.PageImage{
		PageNumber:  page.PageNumber,
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}
