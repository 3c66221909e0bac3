// Package generate coordinates a plugin generation end to end: it routes
// short descriptions through the live streaming path and long ones through a
// background job, and folds either result into the project store and build
// console.
package generate

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkmc/plugin-forge/internal/jobs"
	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/project"
	"github.com/darkmc/plugin-forge/internal/prompt"
	"github.com/darkmc/plugin-forge/internal/store"
	"github.com/darkmc/plugin-forge/internal/stream"
)

// DefaultBackgroundThreshold is the description length above which generation
// moves to a background job.
const DefaultBackgroundThreshold = 300

// Mode of a started generation.
const (
	ModeStreaming  = "streaming"
	ModeBackground = "background"
)

// Request describes what to generate.
type Request struct {
	Description string `json:"description"`
	PluginType  string `json:"pluginType"`
	MCVersion   string `json:"mcVersion"`
	Model       string `json:"model"`
}

// Result reports how a generation was routed.
type Result struct {
	Mode  string
	JobID string
}

// Streamer opens the streaming generation endpoint and returns the SSE body.
type Streamer interface {
	OpenStream(ctx context.Context, req Request) (io.ReadCloser, error)
}

// JobService creates background jobs and kicks off their processing.
type JobService interface {
	CreateJob(ctx context.Context, req Request) (string, error)
	StartJob(ctx context.Context, jobID string) error
}

// HistoryWriter persists finished generations. Implemented by the SQLite
// store.
type HistoryWriter interface {
	SaveProject(userID, description string, data project.Data) (string, error)
}

// Orchestrator drives one sandbox's generations.
type Orchestrator struct {
	store   *project.Store
	console *project.Console
	streams Streamer
	jobsvc  JobService
	fetcher jobs.StatusFetcher
	history HistoryWriter
	logger  zerolog.Logger
	metrics *metrics.Metrics

	threshold    int
	pollInterval time.Duration
	userID       string
}

// Option configures an orchestrator.
type Option func(*Orchestrator)

// WithThreshold overrides the background-routing description length.
func WithThreshold(n int) Option {
	return func(o *Orchestrator) { o.threshold = n }
}

// WithPollInterval overrides the background status poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// WithUser attributes finished generations to a user in history.
func WithUser(userID string) Option {
	return func(o *Orchestrator) { o.userID = userID }
}

// WithHistory enables history persistence.
func WithHistory(h HistoryWriter) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithMetrics enables metrics recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator bound to one store and console.
func New(store *project.Store, console *project.Console, streams Streamer, jobsvc JobService, fetcher jobs.StatusFetcher, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        store,
		console:      console,
		streams:      streams,
		jobsvc:       jobsvc,
		fetcher:      fetcher,
		logger:       logger.With().Str("component", "orchestrator").Logger(),
		threshold:    DefaultBackgroundThreshold,
		pollInterval: jobs.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate runs one generation using the standalone routing threshold. The
// description is validated before anything leaves the process. Short
// descriptions stream; descriptions over the threshold are queued as a
// background job whose status is polled until terminal.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Result, error) {
	return o.GenerateWithThreshold(ctx, req, o.threshold)
}

// GenerateWithThreshold routes with an explicit description-length limit.
// Call sites carry their own limit: the standalone flow backgrounds past 300
// characters, a sandbox regeneration past 200. The boundary is strictly
// greater-than.
func (o *Orchestrator) GenerateWithThreshold(ctx context.Context, req Request, threshold int) (Result, error) {
	if err := prompt.ValidateDescription(req.Description); err != nil {
		return Result{}, err
	}

	if len(req.Description) > threshold {
		return o.generateBackground(ctx, req)
	}
	return o.generateStreaming(ctx, req)
}

func (o *Orchestrator) generateStreaming(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	o.store.Reset(project.Placeholder(req.PluginType, req.MCVersion))
	o.console.Info("🚀 Starting AI generation...")
	o.console.Info("🤖 Analyzing your requirements...")

	body, err := o.streams.OpenStream(ctx, req)
	if err != nil {
		o.streamFailed(err)
		return Result{}, err
	}
	defer body.Close()

	var ingestOpts []stream.IngestorOption
	if o.metrics != nil {
		ingestOpts = append(ingestOpts, stream.WithMetrics(o.metrics))
	}
	ingestor := stream.NewIngestor(o.store, o.console, o.logger, ingestOpts...)
	if err := ingestor.Run(ctx, body); err != nil {
		o.streamFailed(err)
		return Result{}, err
	}

	if ingestor.SawComplete() {
		o.saveHistory(req.Description)
	}
	if o.metrics != nil {
		o.metrics.RecordGeneration(ModeStreaming, "completed")
		o.metrics.ObserveGeneration(ModeStreaming, time.Since(start).Seconds())
	}
	return Result{Mode: ModeStreaming}, nil
}

func (o *Orchestrator) streamFailed(err error) {
	o.store.SetError()
	o.console.Errorf("❌ Error: %v", err)
	o.console.Info(`🔧 Generation stopped. Click "Auto Fix" to resolve and continue`)
	if o.metrics != nil {
		o.metrics.RecordGeneration(ModeStreaming, "failed")
	}
}

func (o *Orchestrator) generateBackground(ctx context.Context, req Request) (Result, error) {
	jobID, err := o.jobsvc.CreateJob(ctx, req)
	if err != nil {
		return Result{}, err
	}

	o.store.Reset(project.Placeholder(req.PluginType, req.MCVersion))
	o.console.Info("🚀 Starting AI generation...")
	o.console.Info("⏳ Large prompt detected - Using background generation")

	if err := o.jobsvc.StartJob(ctx, jobID); err != nil {
		return Result{}, err
	}

	start := time.Now()
	poller := jobs.NewPoller(o.fetcher, o.logger,
		jobs.WithInterval(o.pollInterval),
		jobs.WithDone(func(st jobs.Status) {
			o.backgroundDone(st, start)
		}),
	)
	go poller.Run(ctx, jobID)

	return Result{Mode: ModeBackground, JobID: jobID}, nil
}

func (o *Orchestrator) backgroundDone(st jobs.Status, start time.Time) {
	if st.Status == store.JobCompleted && st.Project != nil {
		o.store.ReplaceAll(*st.Project)
		o.console.Successf("🎉 Generated %d files successfully!", len(st.Project.Files))
		// No history write here: the background runner already persisted
		// the project server-side when it completed the job.
		if o.metrics != nil {
			o.metrics.RecordGeneration(ModeBackground, "completed")
			o.metrics.ObserveGeneration(ModeBackground, time.Since(start).Seconds())
		}
		return
	}

	msg := st.ErrorMessage
	if msg == "" {
		msg = "Unknown error"
	}
	o.store.SetError()
	o.console.Errorf("❌ Error: %s", msg)
	o.console.Info(`🔧 Generation stopped. Click "Auto Fix" to resolve and continue`)
	if o.metrics != nil {
		o.metrics.RecordGeneration(ModeBackground, "failed")
	}
}

// saveHistory persists a finished streaming generation. Anonymous sessions
// never write history.
func (o *Orchestrator) saveHistory(description string) {
	if o.history == nil || o.userID == "" {
		return
	}
	snap := o.store.Snapshot()
	if _, err := o.history.SaveProject(o.userID, description, snap); err != nil {
		o.logger.Error().Err(err).Msg("failed to save project to history")
	}
}
