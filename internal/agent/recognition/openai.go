package recognition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAIModel = "gpt-4o"
	defaultOpenAIURL   = "https://api.openai.com/v1/"
)

var _ Backend = (*OpenAIBackend)(nil)

// OpenAIBackend 通过 Chat Completions 识别页面，也适用于兼容 OpenAI 的服务
type OpenAIBackend struct {
	completions openai.ChatCompletionService
	model       string
	maxTokens   int64
}

type OpenAIConfig struct {
	URL       string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	url := cfg.URL
	if url == "" {
		url = defaultOpenAIURL
	}
	url = strings.TrimRight(url, "/") + "/"

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	options := []option.RequestOption{
		option.WithBaseURL(url),
		option.WithHTTPClient(client),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIBackend{
		completions: openai.NewChatCompletionService(options...),
		model:       model,
		maxTokens:   int64(cfg.MaxTokens),
	}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Extract(ctx context.Context, req *Request) (string, error) {
	imageURL := openai.ChatCompletionContentPartImageImageURLParam{
		URL: "data:" + req.ContentType + ";base64," + base64.StdEncoding.EncodeToString(req.Image),
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(imageURL),
	}))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: messages,
	}
	if b.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(b.maxTokens)
	}

	completion, err := b.completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("openai response contained no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) Close() error { return nil }
