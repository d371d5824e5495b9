package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// PageCount 从文档结构读取页数，先用 pdfcpu，失败后退回 ledongthuc/pdf
func PageCount(data []byte) (int, error) {
	n, err := pdfcpuPageCount(data)
	if err == nil && n > 0 {
		return n, nil
	}

	n, fallbackErr := readerPageCount(data)
	if fallbackErr == nil && n > 0 {
		return n, nil
	}

	if err == nil && fallbackErr == nil {
		return 0, ErrNoPages
	}
	return 0, fmt.Errorf("failed to read page count: %w", errors.Join(err, fallbackErr))
}

func pdfcpuPageCount(data []byte) (int, error) {
	// 不在用户目录下生成 pdfcpu 配置
	disableConfigDir.Do(func() { model.ConfigPath = "disable" })

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu: %w", err)
	}
	return n, nil
}

func readerPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("pdf reader: %w", err)
	}
	return reader.NumPage(), nil
}
