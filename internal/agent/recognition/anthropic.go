package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultAnthropicURL   = "https://api.anthropic.com/"
)

var _ Backend = (*AnthropicBackend)(nil)

// AnthropicBackend 通过 Messages API 识别页面
type AnthropicBackend struct {
	messages  anthropic.MessageService
	model     string
	maxTokens int64
}

type AnthropicConfig struct {
	URL       string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

func NewAnthropicBackend(cfg AnthropicConfig) *AnthropicBackend {
	url := cfg.URL
	if url == "" {
		url = defaultAnthropicURL
	}
	url = strings.TrimRight(url, "/") + "/"

	options := []option.RequestOption{
		option.WithBaseURL(url),
		option.WithMaxRetries(0),
	}
	if cfg.Client != nil {
		options = append(options, option.WithHTTPClient(cfg.Client))
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicBackend{
		messages:  anthropic.NewMessageService(options...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Extract(ctx context.Context, req *Request) (string, error) {
	switch req.ContentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", fmt.Errorf("unsupported image type %s", req.ContentType)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
				anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
					Data:      base64.StdEncoding.EncodeToString(req.Image),
					MediaType: anthropic.Base64ImageSourceMediaType(req.ContentType),
				}),
			),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := b.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("anthropic response contained no text")
	}

	return strings.Join(parts, "\n"), nil
}

func (b *AnthropicBackend) Close() error { return nil }
