package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/project"
)

const (
	// Frames are small, but a terminal complete event carries the whole
	// project in one line.
	scanBufInitial = 64 * 1024
	scanBufMax     = 8 * 1024 * 1024
)

// Ingestor consumes a generation event stream and incrementally mutates a
// project store, narrating progress into the build console.
//
// Individual malformed records are skipped, not fatal. An in-band error event
// raises the store's error flag but the stream is still read to completion.
// A missing terminal complete event is a silent-failure condition: whatever
// files were started remain usable.
type Ingestor struct {
	store   *project.Store
	console *project.Console
	logger  zerolog.Logger
	metrics *metrics.Metrics

	sawComplete bool
}

// IngestorOption configures an ingestor.
type IngestorOption func(*Ingestor)

// WithMetrics counts applied events by type.
func WithMetrics(m *metrics.Metrics) IngestorOption {
	return func(in *Ingestor) { in.metrics = m }
}

// NewIngestor creates an ingestor bound to a store and console.
func NewIngestor(store *project.Store, console *project.Console, logger zerolog.Logger, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		store:   store,
		console: console,
		logger:  logger.With().Str("component", "stream_ingestor").Logger(),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// SawComplete reports whether a terminal complete event arrived.
func (in *Ingestor) SawComplete() bool { return in.sawComplete }

// Run reads SSE frames from r until end-of-data, applying each event to the
// store. Transport errors are returned; already-applied events are never
// rolled back.
func (in *Ingestor) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scanBufInitial), scanBufMax)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			in.logger.Debug().Err(err).Msg("skipping malformed stream record")
			continue
		}
		in.apply(ev)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading generation stream: %w", err)
	}
	if !in.sawComplete {
		in.logger.Warn().Msg("stream ended without a complete event")
	}
	return nil
}

func (in *Ingestor) apply(ev Event) {
	if in.metrics != nil {
		// Unknown types stay out of the counter to keep the label set fixed.
		switch ev.Type {
		case EventInit, EventFileStart, EventFileChunk, EventFileComplete, EventComplete, EventError:
			in.metrics.RecordStreamEvent(ev.Type)
		}
	}

	switch ev.Type {
	case EventInit:
		var d InitData
		if !in.decode(ev, &d) {
			return
		}
		in.store.Init(d.ProjectName, d.Language, d.Platform, d.MCVersion)
		in.console.Successf("📦 Creating project: %s", d.ProjectName)

	case EventFileStart:
		var d FileStartData
		if !in.decode(ev, &d) {
			return
		}
		if dir := path.Dir(d.Path); dir != "." && dir != "/" {
			in.console.Infof("📁 Creating folder: %s", dir)
		}
		in.console.Infof("📄 Writing file: %s", path.Base(d.Path))
		in.store.StartFile(d.Path)

	case EventFileChunk:
		var d FileChunkData
		if !in.decode(ev, &d) {
			return
		}
		content := in.store.AppendChunk(d.Path, d.Chunk)
		// Auto-select the first file once it has visible content.
		if !in.store.HasSelection() && content != "" {
			in.store.Select(d.Path)
		}

	case EventFileComplete:
		var d FileCompleteData
		if !in.decode(ev, &d) {
			return
		}
		in.console.Successf("✅ Completed: %s", path.Base(d.Path))

	case EventComplete:
		var d CompleteData
		if !in.decode(ev, &d) {
			return
		}
		in.store.ReplaceAll(d.Project)
		in.console.Successf("🎉 Generated %d files successfully!", len(d.Project.Files))
		in.sawComplete = true

	case EventError:
		var d ErrorData
		if !in.decode(ev, &d) {
			return
		}
		msg := d.Message
		if msg == "" {
			msg = "Unknown error"
		}
		in.store.SetError()
		in.console.Errorf("❌ Error detected: %s", msg)
		in.console.Info(`🔧 Click "Auto Fix" button to resolve the issue`)

	default:
		in.logger.Debug().Str("type", ev.Type).Msg("ignoring unknown stream event")
	}
}

func (in *Ingestor) decode(ev Event, into any) bool {
	if err := json.Unmarshal(ev.Data, into); err != nil {
		in.logger.Debug().Err(err).Str("type", ev.Type).Msg("skipping malformed event payload")
		return false
	}
	return true
}
