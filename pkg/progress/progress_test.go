package progress

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// parseStream splits an event-stream body on blank lines and decodes each data block.
func parseStream(t *testing.T, body string) []models.ProgressEvent {
	t.Helper()

	var events []models.ProgressEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		require.True(t, strings.HasPrefix(frame, "data:"), "frame %q", frame)

		var ev models.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(frame, "data:"))), &ev))
		events = append(events, ev)
	}
	return events
}

func TestChannelMonotonicAndCapped(t *testing.T) {
	rec := &Recorder{}
	ch := New(rec.Sink, logger.NewTestLogger())

	ch.Progress(10, "a")
	ch.Progress(5, "b")
	ch.Progress(100, "c")
	ch.Progress(-3, "d")

	events := rec.Events()
	require.Len(t, events, 4)
	assert.Equal(t, 10, events[0].Progress)
	assert.Equal(t, 10, events[1].Progress)
	assert.Equal(t, MaxProgress, events[2].Progress)
	assert.Equal(t, MaxProgress, events[3].Progress)
}

func TestChannelSingleTerminal(t *testing.T) {
	log := logger.NewTestLogger()
	rec := &Recorder{}
	ch := New(rec.Sink, log)

	ch.Progress(50, "half")
	ch.Complete(&models.DocumentResult{ID: "x"})
	ch.Fail("late failure")
	ch.Progress(60, "late progress")
	ch.Complete(&models.DocumentResult{ID: "y"})

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventComplete, events[1].Type)
	assert.Equal(t, 100, events[1].Progress)
	assert.Equal(t, "x", events[1].Result.ID)
	assert.True(t, ch.Closed())
	assert.Len(t, log.EntriesAt("WARN"), 2)
}

func TestChannelStopsWritingAfterSinkFailure(t *testing.T) {
	calls := 0
	ch := New(func(models.ProgressEvent) error {
		calls++
		return errors.New("broken pipe")
	}, logger.NewTestLogger())

	ch.Progress(10, "a")
	ch.Progress(20, "b")
	ch.Fail("x")

	assert.Equal(t, 1, calls)
	assert.Zero(t, ch.Written())
	assert.True(t, ch.Closed())
}

func TestSSEFraming(t *testing.T) {
	w := httptest.NewRecorder()
	ch := NewSSE(w, logger.NewTestLogger())

	ch.Progress(30, "Found 3 pages")
	ch.Fail("no pages")

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.True(t, w.Flushed)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: {"))

	scanner := bufio.NewScanner(strings.NewReader(body))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{
		`data: {"type":"progress","progress":30,"message":"Found 3 pages"}`,
		"",
		`data: {"type":"error","message":"no pages"}`,
		"",
	}, lines)

	events := parseStream(t, body)
	require.Len(t, events, 2)
	assert.True(t, events[1].Terminal())
}
