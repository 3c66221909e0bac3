package stream

import (
	"fmt"
	"io"
	"time"

	"github.com/darkmc/plugin-forge/internal/project"
)

// DefaultChunkSize is how many characters of file content go into one
// file_chunk frame.
const DefaultChunkSize = 50

// Flusher is implemented by writers that can push buffered frames to the
// client between events (bufio.Writer, http.Flusher adapters).
type Flusher interface {
	Flush() error
}

// Emitter re-streams a fully generated project as a sequence of discrete
// file-creation events: init, then per file a file_start, content chunks and
// a file_complete, then a terminal complete carrying the whole project.
type Emitter struct {
	// ChunkSize in characters. Zero means DefaultChunkSize.
	ChunkSize int
	// Delay between chunk frames, making progress visible. Zero disables.
	Delay time.Duration
}

// Stream writes all frames for data to w, flushing after every frame when w
// implements Flusher.
func (e *Emitter) Stream(w io.Writer, data project.Data) error {
	if err := e.writeEvent(w, EventInit, InitData{
		ProjectName: data.ProjectName,
		Language:    data.Language,
		Platform:    data.Platform,
		MCVersion:   data.MCVersion,
	}); err != nil {
		return err
	}

	chunkSize := e.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	for _, f := range data.Files {
		if err := e.writeEvent(w, EventFileStart, FileStartData{Path: f.Path}); err != nil {
			return err
		}

		content := []rune(f.Content)
		for i := 0; i < len(content); i += chunkSize {
			end := i + chunkSize
			if end > len(content) {
				end = len(content)
			}
			if err := e.writeEvent(w, EventFileChunk, FileChunkData{
				Path:  f.Path,
				Chunk: string(content[i:end]),
			}); err != nil {
				return err
			}
			if e.Delay > 0 {
				time.Sleep(e.Delay)
			}
		}

		if err := e.writeEvent(w, EventFileComplete, FileCompleteData{
			Path:    f.Path,
			Content: f.Content,
		}); err != nil {
			return err
		}
	}

	return e.writeEvent(w, EventComplete, CompleteData{Project: data})
}

// StreamError writes a single in-band error frame.
func (e *Emitter) StreamError(w io.Writer, message string) error {
	return e.writeEvent(w, EventError, ErrorData{Message: message})
}

func (e *Emitter) writeEvent(w io.Writer, eventType string, payload any) error {
	frame, err := marshalEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	if f, ok := w.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush %s event: %w", eventType, err)
		}
	}
	return nil
}
