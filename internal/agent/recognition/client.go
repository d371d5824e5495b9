package recognition

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// Client 将单页图像转换为 PageResult，从不返回错误
type Client struct {
	backend Backend
	limiter *rate.Limiter
	timeout time.Duration
	system  string
	logger  logger.Logger
}

type ClientOption func(*Client)

// WithRateLimit caps outgoing calls at perSecond; zero disables the limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout bounds a single recognition call; zero means no bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		if prompt != "" {
			c.system = prompt
		}
	}
}

func NewClient(backend Backend, log logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		system:  DefaultSystemPrompt,
		logger:  log.Named("recognition"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the name of the backend serving this client.
func (c *Client) Backend() string {
	return c.backend.Name()
}

// Recognize sends one page image to the backend exactly once.
// Any failure is folded into a placeholder result with zero confidence.
func (c *Client) Recognize(ctx context.Context, page models.PageImage) models.PageResult {
	text, err := c.extract(ctx, page)
	if err != nil {
		c.logger.Warn("page recognition failed",
			logger.Int("page", page.PageNumber),
			logger.String("backend", c.backend.Name()),
			logger.Error(err),
		)
		return models.PageResult{
			PageNumber:      page.PageNumber,
			ExtractedText:   fmt.Sprintf("[Error processing page %d: %s]", page.PageNumber, err.Error()),
			ConfidenceScore: 0,
		}
	}

	text = strings.TrimSpace(text)
	return models.PageResult{
		PageNumber:      page.PageNumber,
		ExtractedText:   text,
		ConfidenceScore: Confidence(text),
	}
}

func (c *Client) extract(ctx context.Context, page models.PageImage) (text string, err error) {
	// 后端 panic 也按单页失败处理
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()

	if len(page.Data) == 0 {
		return "", fmt.Errorf("empty page image")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contentType := page.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(page.Data)
	}

	return c.backend.Extract(ctx, &Request{
		PageNumber:  page.PageNumber,
		System:      c.system,
		Prompt:      PagePrompt(page.PageNumber),
		ContentType: contentType,
		Image:       page.Data,
	})
}

func (c *Client) Close() error {
	return c.backend.Close()
}
