package image

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Preprocessor 图像预处理步骤
type Preprocessor interface {
	Name() string
	Process(img image.Image) (image.Image, error)
}

// 缩放处理器，长边不超过 maxDimension
type ResizeProcessor struct {
	maxDimension int
}

func NewResizeProcessor(maxDimension int) *ResizeProcessor {
	return &ResizeProcessor{maxDimension: maxDimension}
}

func (p *ResizeProcessor) Name() string { return "resize" }

func (p *ResizeProcessor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	b := img.Bounds()
	if p.maxDimension <= 0 || (b.Dx() <= p.maxDimension && b.Dy() <= p.maxDimension) {
		return img, nil
	}

	// 宽高传 0 保持比例
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, p.maxDimension, 0, imaging.Lanczos), nil
	}
	return imaging.Resize(img, 0, p.maxDimension, imaging.Lanczos), nil
}

// 灰度处理器
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Name() string { return "grayscale" }

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// 降噪处理器
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Name() string { return "denoise" }

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	// 使用高斯模糊进行降噪
	return imaging.Blur(img, p.strength), nil
}

// 对比度处理器，percentage 取值 -100..100
type ContrastProcessor struct {
	percentage float64
}

func NewContrastProcessor(percentage float64) *ContrastProcessor {
	return &ContrastProcessor{percentage: percentage}
}

func (p *ContrastProcessor) Name() string { return "contrast" }

func (p *ContrastProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.percentage), nil
}

// 锐化处理器
type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Name() string { return "sharpen" }

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}
