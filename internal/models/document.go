package models

import (
	"time"
)

// Stage is a state of the per-request processing state machine.
type Stage string

const (
	StageUploading   Stage = "uploading"
	StageRasterizing Stage = "rasterizing"
	StageRecognizing Stage = "recognizing"
	StageFinalizing  Stage = "finalizing"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageUploading:   0,
	StageRasterizing: 1,
	StageRecognizing: 2,
	StageFinalizing:  3,
	StageComplete:    4,
	StageFailed:      4,
}

// CanAdvance reports whether moving from s to next keeps the machine strictly forward.
// Failed is reachable from every non-terminal stage.
func (s Stage) CanAdvance(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return stageOrder[next] > stageOrder[s]
}

// Terminal reports whether no further transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// Document 上传的 PDF，仅在一次请求内存在
type Document struct {
	Filename string
	Data     []byte
}

// Size returns the document size in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.Data))
}

// PageImage 一页栅格化后的图像
type PageImage struct {
	PageNumber  int
	ContentType string
	Data        []byte
}

// PageResult 单页识别结果
type PageResult struct {
	PageNumber      int     `json:"pageNumber"`
	ExtractedText   string  `json:"extractedText"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

// DocumentMetadata 文档级统计
type DocumentMetadata struct {
	TotalPages        int     `json:"totalPages"`
	ProcessingTimeMs  int64   `json:"processingTimeMs"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// DocumentResult 整个文档的识别结果，Pages 按页码升序
type DocumentResult struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename,omitempty"`
	Pages     []PageResult     `json:"pages"`
	FullText  string           `json:"fullText"`
	Metadata  DocumentMetadata `json:"metadata"`
	CreatedAt time.Time        `json:"createdAt"`
}

// EventType tags a ProgressEvent.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// ProgressEvent 推送给客户端的进度事件
type ProgressEvent struct {
	Type     EventType       `json:"type"`
	Progress int             `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`
	Result   *DocumentResult `json:"result,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func NewProgressEvent(percent int, message string) ProgressEvent {
	return ProgressEvent{Type: EventProgress, Progress: percent, Message: message}
}

func NewCompleteEvent(result *DocumentResult) ProgressEvent {
	return ProgressEvent{Type: EventComplete, Progress: 100, Message: "Processing complete", Result: result}
}

func NewErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventError, Message: message}
}
