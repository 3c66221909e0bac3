// Package stream implements the generation event stream: the server-side
// emitter that frames a generated project as Server-Sent Events, and the
// client-side ingestor that folds those events into a project store.
package stream

import (
	"encoding/json"

	"github.com/darkmc/plugin-forge/internal/project"
)

// Event types carried in the SSE frames.
const (
	EventInit         = "init"
	EventFileStart    = "file_start"
	EventFileChunk    = "file_chunk"
	EventFileComplete = "file_complete"
	EventComplete     = "complete"
	EventError        = "error"
)

// Event is the wire envelope: a type discriminator plus a type-specific
// payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// InitData announces the project header before any file arrives.
type InitData struct {
	ProjectName string `json:"project_name"`
	Language    string `json:"language"`
	Platform    string `json:"platform"`
	MCVersion   string `json:"mc_version"`
}

// FileStartData announces a new file. Content follows as chunks.
type FileStartData struct {
	Path string `json:"path"`
}

// FileChunkData carries one content fragment. Chunk boundaries are arbitrary
// producer-chosen substrings; consumers concatenate in arrival order.
type FileChunkData struct {
	Path  string `json:"path"`
	Chunk string `json:"chunk"`
}

// FileCompleteData marks a file finished. Content repeats the full body for
// consumers that joined late; chunk accumulation already produced it.
type FileCompleteData struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// CompleteData carries the full final project, replacing everything
// accumulated so far.
type CompleteData struct {
	Project project.Data `json:"project"`
}

// ErrorData reports an in-band generation error. The stream keeps flowing.
type ErrorData struct {
	Message string `json:"message"`
}

func marshalEvent(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Data: data})
}
