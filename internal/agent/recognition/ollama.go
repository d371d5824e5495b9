package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOllamaModel    = "llama3.2-vision"
	defaultOllamaEndpoint = "http://localhost:11434"
)

var _ Backend = (*OllamaBackend)(nil)

// ollamaRequest /api/generate 请求体
type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// OllamaResponse 定义 Ollama API 响应结构
type OllamaResponse struct {
	Response      string `json:"response"`
	Model         string `json:"model"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration,omitempty"`
	EvalCount     int    `json:"eval_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

type OllamaConfig struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Client      *http.Client
}

type OllamaBackend struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &OllamaBackend{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  client,
	}
}

func (b *OllamaBackend) Name() string { return "ollama" }

func (b *OllamaBackend) Extract(ctx context.Context, req *Request) (string, error) {
	body := ollamaRequest{
		Model:  b.model,
		System: req.System,
		Prompt: req.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.Image)},
		Stream: false,
		Options: map[string]any{
			"temperature": b.temperature,
		},
	}
	if b.maxTokens > 0 {
		body.Options["num_predict"] = b.maxTokens
	}

	reqData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}

	return result.Response, nil
}

func (b *OllamaBackend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}
