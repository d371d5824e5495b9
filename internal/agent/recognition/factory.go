package recognition

import (
	"context"
	"fmt"
	"net/http"

	"github.com/feichai0017/handwriting-ocr/config"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

type backendFactory func(ctx context.Context, cfg config.RecognitionConfig, log logger.Logger) (Backend, error)

var backends = map[string]backendFactory{
	config.BackendAnthropic: func(_ context.Context, cfg config.RecognitionConfig, _ logger.Logger) (Backend, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic backend requires an API key")
		}
		return NewAnthropicBackend(AnthropicConfig{
			URL:       cfg.Endpoint,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		}), nil
	},
	config.BackendOpenAI: func(_ context.Context, cfg config.RecognitionConfig, _ logger.Logger) (Backend, error) {
		return NewOpenAIBackend(OpenAIConfig{
			URL:       cfg.Endpoint,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		}), nil
	},
	config.BackendOllama: func(_ context.Context, cfg config.RecognitionConfig, _ logger.Logger) (Backend, error) {
		return NewOllamaBackend(OllamaConfig{
			Endpoint:  cfg.Endpoint,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Client:    &http.Client{},
		}), nil
	},
	config.BackendTextract: func(ctx context.Context, cfg config.RecognitionConfig, _ logger.Logger) (Backend, error) {
		return NewTextractBackend(ctx, TextractConfig{
			Region:        cfg.Textract.Region,
			Endpoint:      cfg.Textract.Endpoint,
			AccessKey:     cfg.Textract.AccessKey,
			SecretKey:     cfg.Textract.SecretKey,
			MinConfidence: 50,
		})
	},
}

func registerBackend(name string, f backendFactory) {
	backends[name] = f
}

// NewBackend 根据配置创建识别后端
func NewBackend(ctx context.Context, cfg config.RecognitionConfig, log logger.Logger) (Backend, error) {
	factory, ok := backends[cfg.Backend]
	if !ok {
		if cfg.Backend == config.BackendTesseract {
			return nil, fmt.Errorf("recognition backend %q is not compiled in, build with -tags tesseract", cfg.Backend)
		}
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Backend)
	}

	backend, err := factory(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Backend, err)
	}

	log.Info("recognition backend ready",
		logger.String("backend", backend.Name()),
		logger.String("model", cfg.Model),
	)
	return backend, nil
}

// NewClientFromConfig wires the configured backend into a Client.
func NewClientFromConfig(ctx context.Context, cfg config.RecognitionConfig, log logger.Logger) (*Client, error) {
	backend, err := NewBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return NewClient(backend, log,
		WithRateLimit(cfg.RateLimit),
		WithTimeout(cfg.Timeout),
		WithSystemPrompt(cfg.SystemPrompt),
	), nil
}
