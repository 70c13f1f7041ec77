// AngelaMos | 2026
// dto.go

package reading

import (
	"github.com/carterperez-dev/fortune-api/internal/gemini"
)

const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

type Event interface {
	EventType() string
}

type ChunkEvent struct {
	Type              string `json:"type"`
	Text              string `json:"text"`
	AccumulatedLength int    `json:"accumulatedLength"`
}

func (ChunkEvent) EventType() string { return EventChunk }

type DoneEvent struct {
	Type               string        `json:"type"`
	HTML               string        `json:"html"`
	IsTruncated        bool          `json:"isTruncated"`
	FinishReason       string        `json:"finishReason"`
	Usage              *gemini.Usage `json:"usage,omitempty"`
	CompletedSubtitles []string      `json:"completedSubtitles"`
}

func (DoneEvent) EventType() string { return EventDone }

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func (ErrorEvent) EventType() string { return EventError }
