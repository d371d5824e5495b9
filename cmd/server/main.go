package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/handwriting-ocr/api/handlers"
	"github.com/feichai0017/handwriting-ocr/api/routes"
	"github.com/feichai0017/handwriting-ocr/config"
	"github.com/feichai0017/handwriting-ocr/internal/agent/document/image"
	"github.com/feichai0017/handwriting-ocr/internal/agent/document/pdf"
	"github.com/feichai0017/handwriting-ocr/internal/agent/recognition"
	"github.com/feichai0017/handwriting-ocr/internal/service/ocr"
	"github.com/feichai0017/handwriting-ocr/internal/utils/validator"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
	"github.com/feichai0017/handwriting-ocr/pkg/storage"
	"github.com/feichai0017/handwriting-ocr/pkg/storage/minio"
	"github.com/feichai0017/handwriting-ocr/pkg/storage/redis"
	"github.com/feichai0017/handwriting-ocr/pkg/storage/s3"
)

func main() {
	configPath := flag.String("config", os.Getenv("OCR_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// init logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rasterizer := pdf.NewRasterizer(pdf.Config{
		PdftoppmPath: cfg.PDF.PdftoppmPath,
		DPI:          cfg.PDF.DPI,
		TempDir:      cfg.PDF.TempDir,
	}, log)
	if err := rasterizer.Available(); err != nil {
		log.Warn("pdftoppm not available, uploads will fail until it is installed", logger.Error(err))
	}

	normalizer := image.NewNormalizer(image.Config{
		MaxDimension: cfg.Image.MaxDimension,
		Grayscale:    cfg.Image.Grayscale,
		Contrast:     cfg.Image.Contrast,
		Sharpen:      cfg.Image.Sharpen,
	})

	recognizer, err := recognition.NewClientFromConfig(ctx, cfg.Recognition, log)
	if err != nil {
		log.Fatal("Failed to create recognition backend", logger.Error(err))
	}
	defer recognizer.Close()

	opts := []ocr.Option{ocr.WithNormalizer(normalizer)}

	store, err := newStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to create result storage", logger.Error(err))
	}
	if store != nil {
		archive := storage.NewResultArchive(store, cfg.Storage.Prefix, log)
		opts = append(opts, ocr.WithArchive(archive))
		if cfg.Storage.TTL > 0 {
			go archive.RunJanitor(ctx, cfg.Storage.TTL, time.Hour)
		}
	}

	// init ocr service
	service := ocr.NewService(rasterizer, recognizer, log, ocr.ServiceConfig{
		MaxPages:             cfg.PDF.MaxPages,
		RasterBatchSize:      cfg.PDF.BatchSize,
		RecognitionBatchSize: cfg.Recognition.BatchSize,
		RecognitionDelay:     cfg.Recognition.BatchDelay,
	}, opts...)

	v := validator.NewDocumentValidator(log, &validator.ValidatorConfig{
		MaxFileSize: cfg.Server.MaxUploadBytes,
	})

	// init handlers
	h := handlers.NewHandlers(service, v, recognizer.Backend(), log)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, cfg.Server.AllowedOrigins, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		log.Info("Server starting",
			logger.String("addr", cfg.Server.Addr),
			logger.String("backend", recognizer.Backend()),
			logger.String("storage", cfg.Storage.Type),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}

// newStorage returns nil when archiving is disabled.
func newStorage(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", config.StorageNone:
		return nil, nil
	case config.StorageS3:
		return s3.NewS3Storage(ctx, cfg.S3, cfg.Prefix, log)
	case config.StorageMinio:
		return minio.NewMinioStorage(ctx, cfg.Minio, cfg.Prefix, log)
	case config.StorageRedis:
		return redis.NewRedisStorage(ctx, cfg.Redis, cfg.TTL, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
