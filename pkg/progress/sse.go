package progress

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sse"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// SetHeaders writes the event-stream response headers.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// SSESink frames each event as one `data: {json}` block and flushes it.
func SSESink(w http.ResponseWriter) Sink {
	rc := http.NewResponseController(w)

	return func(event models.ProgressEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}

		// 前导空格得到常见的 "data: " 前缀
		if err := sse.Encode(w, sse.Event{Data: " " + string(data)}); err != nil {
			return err
		}

		return rc.Flush()
	}
}

// NewSSE opens a 200 event stream on w and returns its channel.
func NewSSE(w http.ResponseWriter, log logger.Logger) *Channel {
	SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	_ = http.NewResponseController(w).Flush()

	return New(SSESink(w), log)
}
