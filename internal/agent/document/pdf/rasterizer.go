package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/feichai0017/handwriting-ocr/internal/agent/document"
	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

var (
	ErrPageNotFound = document.ErrPageNotFound
	ErrNoPages      = document.ErrNoPages
	ErrUnreadable   = document.ErrUnreadable
)

// pdftoppm 退出码
const (
	exitOpenFailed  = 1
	exitOutputError = 2
	exitPermissions = 3
)

type Config struct {
	PdftoppmPath string
	DPI          int
	TempDir      string
}

var _ document.Rasterizer = (*Rasterizer)(nil)

// Rasterizer 调用 poppler 的 pdftoppm 将单页渲染为 PNG
type Rasterizer struct {
	binary  string
	dpi     int
	tempDir string
	logger  logger.Logger
}

func NewRasterizer(cfg Config, log logger.Logger) *Rasterizer {
	binary := cfg.PdftoppmPath
	if binary == "" {
		binary = "pdftoppm"
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 200
	}

	return &Rasterizer{
		binary:  binary,
		dpi:     dpi,
		tempDir: cfg.TempDir,
		logger:  log.Named("rasterizer"),
	}
}

// Available reports whether the pdftoppm binary can be found.
func (r *Rasterizer) Available() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("pdftoppm not available: %w", err)
	}
	return nil
}

// Open 将文档写入一次临时文件，整个请求期间复用
func (r *Rasterizer) Open(ctx context.Context, doc *models.Document) (document.PageSource, error) {
	dir, err := os.MkdirTemp(r.tempDir, "ocr-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, doc.Data, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to spool document: %w", err)
	}

	source := &Source{
		rasterizer: r,
		dir:        dir,
		path:       path,
	}
	source.pages, source.countErr = PageCount(doc.Data)
	if source.countErr != nil {
		r.logger.Debug("page count unavailable, probing",
			logger.String("filename", doc.Filename),
			logger.Error(source.countErr),
		)
	}

	return source, nil
}

// Source 一个已打开的文档
type Source struct {
	rasterizer *Rasterizer
	dir        string
	path       string
	pages      int
	countErr   error
}

func (s *Source) PageCount() (int, error) {
	return s.pages, s.countErr
}

func (s *Source) Rasterize(ctx context.Context, page int) (models.PageImage, error) {
	if page < 1 || (s.countErr == nil && page > s.pages) {
		return models.PageImage{}, fmt.Errorf("page %d: %w", page, ErrPageNotFound)
	}

	root := filepath.Join(s.dir, "page-"+strconv.Itoa(page))
	defer os.Remove(root + ".png")

	p := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, s.rasterizer.binary,
		"-f", p, "-l", p,
		"-r", strconv.Itoa(s.rasterizer.dpi),
		"-png", "-singlefile",
		s.path, root,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.PageImage{}, classify(page, err, stderr.String())
	}

	data, err := os.ReadFile(root + ".png")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.PageImage{}, fmt.Errorf("page %d: %w", page, ErrPageNotFound)
		}
		return models.PageImage{}, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}

	return models.PageImage{
		PageNumber:  page,
		ContentType: "image/png",
		Data:        data,
	}, nil
}

func (s *Source) Close() error {
	return os.RemoveAll(s.dir)
}

func classify(page int, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)

	if strings.Contains(stderr, "Wrong page range") {
		return fmt.Errorf("page %d: %w", page, ErrPageNotFound)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case exitOpenFailed, exitPermissions:
			return fmt.Errorf("pdftoppm page %d: %s: %w", page, stderr, ErrUnreadable)
		case exitOutputError:
			return fmt.Errorf("pdftoppm page %d: cannot write output: %s", page, stderr)
		}
	}

	if stderr != "" {
		return fmt.Errorf("pdftoppm page %d: %w: %s", page, err, stderr)
	}
	return fmt.Errorf("pdftoppm page %d: %w", page, err)
}
