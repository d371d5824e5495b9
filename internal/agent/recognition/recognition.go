package recognition

import (
	"context"
	"fmt"
)

// DefaultSystemPrompt 识别后端的系统指令
const DefaultSystemPrompt = `You are an expert at transcribing handwritten notes.
Transcribe all handwritten text in the image exactly as written, preserving line breaks, lists and headings.
Mark any word you cannot read as [unclear].
Return only the transcribed text without commentary.`

// PagePrompt returns the per-page user instruction.
func PagePrompt(pageNumber int) string {
	return fmt.Sprintf("Please transcribe all handwritten text on page %d of this document.", pageNumber)
}

// Request 一次单页识别请求
type Request struct {
	PageNumber  int
	System      string
	Prompt      string
	ContentType string
	Image       []byte
}

// Backend 远程或本地识别服务
type Backend interface {
	Name() string
	Extract(ctx context.Context, req *Request) (string, error)
	Close() error
}
