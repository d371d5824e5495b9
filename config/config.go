package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
	BackendTextract  = "textract"
	BackendTesseract = "tesseract"

	StorageNone  = "none"
	StorageS3    = "s3"
	StorageMinio = "minio"
	StorageRedis = "redis"
)

// Config 服务全部配置
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         logger.Config     `yaml:"log"`
	PDF         PDFConfig         `yaml:"pdf"`
	Image       ImageConfig       `yaml:"image"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Storage     StorageConfig     `yaml:"storage"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

type PDFConfig struct {
	PdftoppmPath string `yaml:"pdftoppmPath"`
	DPI          int    `yaml:"dpi"`
	MaxPages     int    `yaml:"maxPages"`
	BatchSize    int    `yaml:"batchSize"`
	TempDir      string `yaml:"tempDir"`
}

type ImageConfig struct {
	MaxDimension int     `yaml:"maxDimension"`
	Grayscale    bool    `yaml:"grayscale"`
	Contrast     float64 `yaml:"contrast"`
	Sharpen      float64 `yaml:"sharpen"`
}

type RecognitionConfig struct {
	Backend      string         `yaml:"backend"`
	Model        string         `yaml:"model"`
	Endpoint     string         `yaml:"endpoint"`
	APIKey       string         `yaml:"apiKey"`
	MaxTokens    int            `yaml:"maxTokens"`
	SystemPrompt string         `yaml:"systemPrompt"`
	Language     string         `yaml:"language"`
	BatchSize    int            `yaml:"batchSize"`
	BatchDelay   time.Duration  `yaml:"batchDelay"`
	Timeout      time.Duration  `yaml:"timeout"`
	RateLimit    float64        `yaml:"rateLimit"` // requests per second, 0 = unlimited
	Textract     TextractConfig `yaml:"textract"`
}

type StorageConfig struct {
	Type   string        `yaml:"type"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
	S3     S3Config      `yaml:"s3"`
	Minio  MinioConfig   `yaml:"minio"`
	Redis  RedisConfig   `yaml:"redis"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  50 << 20,
		},
		Log: logger.DefaultConfig(),
		PDF: PDFConfig{
			PdftoppmPath: "pdftoppm",
			DPI:          200,
			MaxPages:     500,
			BatchSize:    5,
		},
		Image: ImageConfig{
			MaxDimension: 2048,
			Grayscale:    true,
			Contrast:     20,
			Sharpen:      1.0,
		},
		Recognition: RecognitionConfig{
			Backend:    BackendAnthropic,
			MaxTokens:  4096,
			BatchSize:  3,
			BatchDelay: time.Second,
			Timeout:    2 * time.Minute,
		},
		Storage: StorageConfig{
			Type:   StorageNone,
			Prefix: "results/",
			TTL:    24 * time.Hour,
		},
	}
}

// Load 依次读取 YAML 文件、.env 和环境变量，后者覆盖前者
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	r := envReader{}

	r.string("OCR_ADDR", &c.Server.Addr)
	r.duration("OCR_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	r.int64("OCR_MAX_UPLOAD_BYTES", &c.Server.MaxUploadBytes)
	r.list("OCR_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	r.string("OCR_LOG_LEVEL", &c.Log.Level)
	r.string("OCR_LOG_ENCODING", &c.Log.Encoding)
	r.list("OCR_LOG_OUTPUTS", &c.Log.OutputPaths)

	r.string("OCR_PDFTOPPM_PATH", &c.PDF.PdftoppmPath)
	r.int("OCR_PDF_DPI", &c.PDF.DPI)
	r.int("OCR_MAX_PAGES", &c.PDF.MaxPages)
	r.int("OCR_RASTER_BATCH_SIZE", &c.PDF.BatchSize)
	r.string("OCR_TEMP_DIR", &c.PDF.TempDir)

	r.int("OCR_IMAGE_MAX_DIMENSION", &c.Image.MaxDimension)
	r.bool("OCR_IMAGE_GRAYSCALE", &c.Image.Grayscale)

	r.string("OCR_RECOGNITION_BACKEND", &c.Recognition.Backend)
	r.string("OCR_RECOGNITION_MODEL", &c.Recognition.Model)
	r.string("OCR_RECOGNITION_ENDPOINT", &c.Recognition.Endpoint)
	r.string("OCR_RECOGNITION_API_KEY", &c.Recognition.APIKey)
	r.int("OCR_RECOGNITION_MAX_TOKENS", &c.Recognition.MaxTokens)
	r.string("OCR_RECOGNITION_LANGUAGE", &c.Recognition.Language)
	r.int("OCR_RECOGNITION_BATCH_SIZE", &c.Recognition.BatchSize)
	r.duration("OCR_RECOGNITION_BATCH_DELAY", &c.Recognition.BatchDelay)
	r.duration("OCR_RECOGNITION_TIMEOUT", &c.Recognition.Timeout)
	r.float("OCR_RECOGNITION_RATE_LIMIT", &c.Recognition.RateLimit)

	if c.Recognition.APIKey == "" {
		switch c.Recognition.Backend {
		case BackendAnthropic:
			r.string("ANTHROPIC_API_KEY", &c.Recognition.APIKey)
		case BackendOpenAI:
			r.string("OPENAI_API_KEY", &c.Recognition.APIKey)
		}
	}

	r.string("OCR_STORAGE_TYPE", &c.Storage.Type)
	r.string("OCR_STORAGE_PREFIX", &c.Storage.Prefix)
	r.duration("OCR_STORAGE_TTL", &c.Storage.TTL)

	c.Recognition.Textract.applyEnv(&r)
	c.Storage.S3.applyEnv(&r)
	c.Storage.Minio.applyEnv(&r)
	c.Storage.Redis.applyEnv(&r)

	return r.err()
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	if c.PDF.DPI <= 0 {
		errs = append(errs, errors.New("pdf dpi must be positive"))
	}
	if c.PDF.MaxPages <= 0 {
		errs = append(errs, errors.New("pdf max pages must be positive"))
	}
	if c.PDF.BatchSize <= 0 {
		errs = append(errs, errors.New("raster batch size must be positive"))
	}
	if c.Image.MaxDimension < 0 {
		errs = append(errs, errors.New("image max dimension must not be negative"))
	}
	if c.Recognition.BatchSize <= 0 {
		errs = append(errs, errors.New("recognition batch size must be positive"))
	}
	if c.Recognition.BatchDelay < 0 || c.Recognition.Timeout < 0 || c.Recognition.RateLimit < 0 {
		errs = append(errs, errors.New("recognition delay, timeout and rate limit must not be negative"))
	}

	switch c.Recognition.Backend {
	case BackendAnthropic, BackendOpenAI, BackendOllama, BackendTextract, BackendTesseract:
	default:
		errs = append(errs, fmt.Errorf("unknown recognition backend %q", c.Recognition.Backend))
	}

	switch c.Storage.Type {
	case "", StorageNone, StorageS3, StorageMinio, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
