package progress

import (
	"errors"
	"sync"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// MaxProgress 非终止事件的上限，100 只属于 complete
const MaxProgress = 99

var ErrClosed = errors.New("progress channel closed")

// Reporter receives pipeline progress.
type Reporter interface {
	Progress(percent int, message string)
	Complete(result *models.DocumentResult)
	Fail(message string)
}

// Sink 写出一个事件
type Sink func(event models.ProgressEvent) error

var _ Reporter = (*Channel)(nil)

// Channel enforces the stream contract on top of a Sink: progress never
// decreases, stays below 100 until completion, and exactly one terminal
// event is written with nothing after it.
type Channel struct {
	mu     sync.Mutex
	sink   Sink
	logger logger.Logger

	last    int
	closed  bool
	broken  bool
	written int
}

func New(sink Sink, log logger.Logger) *Channel {
	return &Channel{sink: sink, logger: log}
}

func (c *Channel) Progress(percent int, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	percent = max(min(percent, MaxProgress), c.last, 0)
	c.last = percent
	c.write(models.NewProgressEvent(percent, message))
}

func (c *Channel) Complete(result *models.DocumentResult) {
	c.terminate(models.NewCompleteEvent(result))
}

func (c *Channel) Fail(message string) {
	c.terminate(models.NewErrorEvent(message))
}

func (c *Channel) terminate(event models.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Warn("event after terminal event dropped", logger.String("type", string(event.Type)))
		return
	}

	c.closed = true
	if event.Type == models.EventComplete {
		c.last = 100
	}
	c.write(event)
}

// Closed reports whether a terminal event has been emitted.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Written returns how many events reached the sink.
func (c *Channel) Written() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *Channel) write(event models.ProgressEvent) {
	// 写失败后不再尝试，客户端已断开
	if c.broken {
		return
	}

	if err := c.sink(event); err != nil {
		c.broken = true
		c.logger.Warn("progress stream write failed", logger.Error(err))
		return
	}
	c.written++
}

// Recorder 在内存中保存事件，用于测试
type Recorder struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (r *Recorder) Sink(event models.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []models.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ProgressEvent(nil), r.events...)
}
