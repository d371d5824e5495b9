package recognition

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/config"
	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

func testRequest() *Request {
	return &Request{
		PageNumber:  1,
		System:      "sys",
		Prompt:      PagePrompt(1),
		ContentType: "image/png",
		Image:       pngHeader,
	}
}

func TestAnthropicBackend(t *testing.T) {
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "Shopping list"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	backend := NewAnthropicBackend(AnthropicConfig{URL: server.URL, APIKey: "test-key"})

	text, err := backend.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Shopping list", text)

	assert.Equal(t, DefaultAnthropicModel, body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	image := content[1].(map[string]any)
	assert.Equal(t, "image", image["type"])
	source := image["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), source["data"])
}

func TestAnthropicBackendRejectsUnsupportedImage(t *testing.T) {
	backend := NewAnthropicBackend(AnthropicConfig{URL: "http://127.0.0.1:1", APIKey: "k"})

	req := testRequest()
	req.ContentType = "image/tiff"
	_, err := backend.Extract(context.Background(), req)
	require.Error(t, err)
}

func TestAnthropicFailureBecomesPlaceholder(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"internal"}}`))
	}))
	defer server.Close()

	client := NewClient(NewAnthropicBackend(AnthropicConfig{URL: server.URL, APIKey: "k"}), logger.NewTestLogger())
	result := client.Recognize(context.Background(), models.PageImage{PageNumber: 5, ContentType: "image/png", Data: pngHeader})

	assert.Contains(t, result.ExtractedText, "[Error processing page 5")
	assert.Zero(t, result.ConfidenceScore)
	assert.Equal(t, 1, calls)
}

func TestOpenAIBackend(t *testing.T) {
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Meeting notes"}}]
		}`))
	}))
	defer server.Close()

	backend := NewOpenAIBackend(OpenAIConfig{URL: server.URL + "/v1", APIKey: "test-key", MaxTokens: 512})

	text, err := backend.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Meeting notes", text)

	assert.Equal(t, DefaultOpenAIModel, body["model"])
	assert.EqualValues(t, 512, body["max_completion_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngHeader), imageURL)
}

func TestOllamaBackend(t *testing.T) {
	var body ollamaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(OllamaResponse{Response: "To do: call mum", Done: true})
	}))
	defer server.Close()

	backend := NewOllamaBackend(OllamaConfig{Endpoint: server.URL + "/", MaxTokens: 100})
	defer backend.Close()

	text, err := backend.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "To do: call mum", text)

	assert.Equal(t, DefaultOllamaModel, body.Model)
	assert.Equal(t, "sys", body.System)
	assert.False(t, body.Stream)
	require.Len(t, body.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), body.Images[0])
	assert.EqualValues(t, 100, body.Options["num_predict"])
}

func TestOllamaBackendErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	backend := NewOllamaBackend(OllamaConfig{Endpoint: server.URL})
	_, err := backend.Extract(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	errServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaResponse{Error: "out of memory"})
	}))
	defer errServer.Close()

	backend = NewOllamaBackend(OllamaConfig{Endpoint: errServer.URL})
	_, err = backend.Extract(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

type fakeTextract struct {
	out *textract.DetectDocumentTextOutput
	err error
	in  *textract.DetectDocumentTextInput
}

func (f *fakeTextract) DetectDocumentText(_ context.Context, in *textract.DetectDocumentTextInput, _ ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestTextractBackend(t *testing.T) {
	api := &fakeTextract{out: &textract.DetectDocumentTextOutput{
		Blocks: []types.Block{
			{BlockType: types.BlockTypePage},
			{BlockType: types.BlockTypeLine, Text: aws.String("First line"), Confidence: aws.Float32(98)},
			{BlockType: types.BlockTypeWord, Text: aws.String("First"), Confidence: aws.Float32(98)},
			{BlockType: types.BlockTypeLine, Text: aws.String("smudge"), Confidence: aws.Float32(12)},
			{BlockType: types.BlockTypeLine, Text: aws.String("Last line"), Confidence: aws.Float32(91)},
		},
	}}

	backend := NewTextractBackendWithClient(api, 50)
	text, err := backend.Extract(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "First line\n[unclear]\nLast line", text)
	assert.Equal(t, pngHeader, api.in.Document.Bytes)
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend(context.Background(), config.RecognitionConfig{Backend: "carrier-pigeon"}, logger.NewTestLogger())
	require.Error(t, err)

	_, err = NewBackend(context.Background(), config.RecognitionConfig{Backend: config.BackendAnthropic}, logger.NewTestLogger())
	require.Error(t, err, "anthropic needs a key")

	client, err := NewClientFromConfig(context.Background(), config.RecognitionConfig{Backend: config.BackendOllama}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, "ollama", client.Backend())
}
