package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/handwriting-ocr/internal/agent/document"
	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
	"github.com/feichai0017/handwriting-ocr/pkg/progress"
	"github.com/feichai0017/handwriting-ocr/pkg/storage"
	"github.com/feichai0017/handwriting-ocr/pkg/worker"
)

// 进度权重
const (
	progressReceived   = 5
	progressValidated  = 10
	progressSetup      = 15
	progressCounted    = 30
	progressRasterized = 80
	progressRecognized = 90
	progressFinalizing = 95
)

var ErrArchiveDisabled = errors.New("result archive is disabled")

type ServiceConfig struct {
	MaxPages             int
	RasterBatchSize      int
	RecognitionBatchSize int
	RecognitionDelay     time.Duration
}

// DefaultServiceConfig returns the batch sizes and page ceiling used when none are configured.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxPages:             500,
		RasterBatchSize:      5,
		RecognitionBatchSize: 3,
		RecognitionDelay:     time.Second,
	}
}

type OCRService struct {
	rasterizer document.Rasterizer
	normalizer document.Normalizer
	recognizer Recognizer
	archive    Archive
	logger     logger.Logger
	config     ServiceConfig

	rasterRunner      *worker.BatchRunner
	recognitionRunner *worker.BatchRunner

	now   func() time.Time
	newID func() string
}

type Option func(*OCRService)

// WithNormalizer enables image normalization between rasterization and recognition.
func WithNormalizer(n document.Normalizer) Option {
	return func(s *OCRService) { s.normalizer = n }
}

// WithArchive stores completed results.
func WithArchive(a Archive) Option {
	return func(s *OCRService) { s.archive = a }
}

func NewService(
	rasterizer document.Rasterizer,
	recognizer Recognizer,
	log logger.Logger,
	cfg ServiceConfig,
	opts ...Option,
) *OCRService {
	defaults := DefaultServiceConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaults.MaxPages
	}
	if cfg.RasterBatchSize <= 0 {
		cfg.RasterBatchSize = defaults.RasterBatchSize
	}
	if cfg.RecognitionBatchSize <= 0 {
		cfg.RecognitionBatchSize = defaults.RecognitionBatchSize
	}

	s := &OCRService{
		rasterizer: rasterizer,
		recognizer: recognizer,
		logger:     log.Named("ocr"),
		config:     cfg,
		rasterRunner: worker.NewBatchRunner(worker.Config{
			BatchSize: cfg.RasterBatchSize,
		}),
		recognitionRunner: worker.NewBatchRunner(worker.Config{
			BatchSize: cfg.RecognitionBatchSize,
			Delay:     cfg.RecognitionDelay,
		}),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// job 单个请求的处理状态
type job struct {
	doc      *models.Document
	reporter progress.Reporter
	logger   logger.Logger
	stage    models.Stage
	started  time.Time
}

func (j *job) advance(next models.Stage) error {
	if !j.stage.CanAdvance(next) {
		return fmt.Errorf("invalid stage transition %s -> %s", j.stage, next)
	}
	j.logger.Debug("stage transition",
		logger.String("from", string(j.stage)),
		logger.String("to", string(next)),
	)
	j.stage = next
	return nil
}

// Process 执行 上传 -> 栅格化 -> 识别 -> 汇总 的流水线
func (s *OCRService) Process(ctx context.Context, doc *models.Document, reporter progress.Reporter) (result *models.DocumentResult, err error) {
	j := &job{
		doc:      doc,
		reporter: reporter,
		logger:   logger.FromContext(ctx, s.logger).With(logger.String("filename", doc.Filename)),
		stage:    models.StageUploading,
		started:  s.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", j.stage, r)
			result = nil
		}
		if err != nil {
			s.fail(j, err)
		}
	}()

	reporter.Progress(progressReceived, "Upload received")
	reporter.Progress(progressValidated, "Document validated")

	images, err := s.rasterize(ctx, j)
	if err != nil {
		return nil, err
	}

	pages, err := s.recognize(ctx, j, images)
	if err != nil {
		return nil, err
	}

	result, err = s.finalize(ctx, j, pages)
	if err != nil {
		return nil, err
	}

	if err := j.advance(models.StageComplete); err != nil {
		return nil, err
	}
	reporter.Complete(result)

	j.logger.Info("document processed",
		logger.String("id", result.ID),
		logger.Int("pages", result.Metadata.TotalPages),
		logger.Float64("average_confidence", result.Metadata.AverageConfidence),
		logger.Int64("processing_ms", result.Metadata.ProcessingTimeMs),
	)
	return result, nil
}

func (s *OCRService) fail(j *job, err error) {
	if j.stage.CanAdvance(models.StageFailed) {
		j.stage = models.StageFailed
	}
	j.logger.Error("document processing failed", logger.Error(err))
	j.reporter.Fail(failureMessage(err))
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, document.ErrNoPages):
		return "No pages could be extracted from the PDF"
	case errors.Is(err, document.ErrUnreadable):
		return "The PDF could not be read"
	}
	return "Processing failed: " + err.Error()
}

func (s *OCRService) rasterize(ctx context.Context, j *job) ([]models.PageImage, error) {
	if err := j.advance(models.StageRasterizing); err != nil {
		return nil, err
	}
	j.reporter.Progress(progressSetup, "Preparing pages")

	source, err := s.rasterizer.Open(ctx, j.doc)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			j.logger.Warn("failed to release document", logger.Error(err))
		}
	}()

	var (
		mu     sync.Mutex
		images []models.PageImage
		ended  bool
	)

	task := func(ctx context.Context, i int) error {
		page := i + 1
		img, err := source.Rasterize(ctx, page)
		switch {
		case errors.Is(err, document.ErrPageNotFound):
			mu.Lock()
			ended = true
			mu.Unlock()
			return nil
		case errors.Is(err, document.ErrUnreadable):
			return err
		case err != nil:
			// 单页失败只丢弃该页
			j.logger.Warn("page rasterization failed", logger.Int("page", page), logger.Error(err))
			return nil
		}

		img = s.normalize(ctx, j, img)

		mu.Lock()
		images = append(images, img)
		mu.Unlock()
		return nil
	}

	total, countErr := source.PageCount()
	if countErr == nil {
		if total > s.config.MaxPages {
			j.logger.Warn("page ceiling reached, remaining pages ignored",
				logger.Int("pages", total),
				logger.Int("max_pages", s.config.MaxPages),
			)
			total = s.config.MaxPages
		}
		j.logger.Info("page count read", logger.Int("pages", total))
		j.reporter.Progress(progressCounted, fmt.Sprintf("Found %d pages", total))

		err = s.rasterRunner.Run(ctx, total, task, func(done int) {
			j.reporter.Progress(progressCounted+(progressRasterized-progressCounted)*done/total,
				fmt.Sprintf("Converted %d of %d pages", done, total))
		})
	} else {
		j.reporter.Progress(progressCounted, "Detecting pages")
		err = s.probe(ctx, j, task, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return ended
		})
	}
	if err != nil {
		return nil, err
	}

	if len(images) == 0 {
		return nil, document.ErrNoPages
	}

	sort.Slice(images, func(a, b int) bool { return images[a].PageNumber < images[b].PageNumber })
	j.reporter.Progress(progressRasterized, fmt.Sprintf("Converted %d pages", len(images)))
	return images, nil
}

// probe 没有可靠页数时逐批探测，直到出现 ErrPageNotFound 或达到上限
func (s *OCRService) probe(ctx context.Context, j *job, task worker.Task, ended func() bool) error {
	size := s.rasterRunner.Size()

	for start := 0; start < s.config.MaxPages; start += size {
		end := min(start+size, s.config.MaxPages)
		if err := s.rasterRunner.Batch(ctx, start, end, task); err != nil {
			return err
		}
		if ended() {
			return nil
		}

		// 总数未知，进度渐近 80%
		span := progressRasterized - progressCounted
		j.reporter.Progress(progressCounted+span*end/(end+size), fmt.Sprintf("Converted %d pages", end))
	}

	j.logger.Warn("page ceiling reached while probing, remaining pages ignored",
		logger.Int("max_pages", s.config.MaxPages),
	)
	return nil
}

func (s *OCRService) normalize(ctx context.Context, j *job, img models.PageImage) models.PageImage {
	if s.normalizer == nil {
		return img
	}

	out, err := s.normalizer.Normalize(ctx, img)
	if err != nil {
		j.logger.Warn("image normalization failed, using raw page",
			logger.Int("page", img.PageNumber),
			logger.Error(err),
		)
		return img
	}
	return out
}

func (s *OCRService) recognize(ctx context.Context, j *job, images []models.PageImage) ([]models.PageResult, error) {
	if err := j.advance(models.StageRecognizing); err != nil {
		return nil, err
	}

	total := len(images)
	j.reporter.Progress(progressRasterized, fmt.Sprintf("Recognizing text on %d pages", total))

	var (
		mu    sync.Mutex
		pages = make([]models.PageResult, 0, total)
	)

	err := s.recognitionRunner.Run(ctx, total, func(ctx context.Context, i int) error {
		result := s.recognizer.Recognize(ctx, images[i])
		mu.Lock()
		pages = append(pages, result)
		mu.Unlock()
		return nil
	}, func(done int) {
		j.reporter.Progress(progressRasterized+(progressRecognized-progressRasterized)*done/total,
			fmt.Sprintf("Recognized %d of %d pages", done, total))
	})
	if err != nil {
		return nil, err
	}

	return pages, nil
}

func (s *OCRService) finalize(ctx context.Context, j *job, pages []models.PageResult) (*models.DocumentResult, error) {
	if err := j.advance(models.StageFinalizing); err != nil {
		return nil, err
	}
	j.reporter.Progress(progressFinalizing, "Finalizing results")

	if len(pages) == 0 {
		return nil, document.ErrNoPages
	}

	result := Assemble(s.newID(), j.doc.Filename, pages)
	result.CreatedAt = s.now()
	result.Metadata.ProcessingTimeMs = result.CreatedAt.Sub(j.started).Milliseconds()

	if s.archive != nil {
		if err := s.archive.Save(ctx, result); err != nil {
			j.logger.Warn("failed to archive result", logger.String("id", result.ID), logger.Error(err))
		}
	}

	return result, nil
}

// Assemble sorts pages by page number, joins their text and averages their confidence.
// pages must not be empty.
func Assemble(id, filename string, pages []models.PageResult) *models.DocumentResult {
	sorted := append([]models.PageResult(nil), pages...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].PageNumber < sorted[b].PageNumber })

	texts := make([]string, len(sorted))
	var sum float64
	for i, p := range sorted {
		texts[i] = p.ExtractedText
		sum += p.ConfidenceScore
	}

	return &models.DocumentResult{
		ID:       id,
		Filename: filename,
		Pages:    sorted,
		FullText: strings.Join(texts, PageSeparator),
		Metadata: models.DocumentMetadata{
			TotalPages:        len(sorted),
			AverageConfidence: sum / float64(len(sorted)),
		},
	}
}

func (s *OCRService) GetResult(ctx context.Context, id string) (*models.DocumentResult, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}

	result, err := s.archive.Load(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load result %s: %w", id, err)
	}
	return result, nil
}
