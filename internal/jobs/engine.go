package jobs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// EngineConfig holds worker pool sizing for background generations.
type EngineConfig struct {
	Workers   int
	QueueSize int
}

// Engine dispatches queued job IDs to a fixed pool of workers. Job state
// lives in the store; the engine only owns the in-process queue.
type Engine struct {
	runner  *Runner
	queue   chan string
	workers int
	logger  zerolog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewEngine creates a job engine around a runner.
func NewEngine(cfg EngineConfig, runner *Runner, logger zerolog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Engine{
		runner:  runner,
		queue:   make(chan string, cfg.QueueSize),
		workers: cfg.Workers,
		logger:  logger.With().Str("component", "job_engine").Logger(),
	}
}

// Start launches worker goroutines.
func (e *Engine) Start(ctx context.Context) {
	if e.running.Swap(true) {
		return
	}

	ctx, e.cancel = context.WithCancel(ctx)

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}

	e.logger.Info().Int("workers", e.workers).Msg("job engine started")
}

// Stop gracefully shuts down the engine. In-flight jobs finish; queued but
// unstarted jobs are failed on the next startup by FailStuckJobs.
func (e *Engine) Stop() {
	if !e.running.Swap(false) {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.logger.Info().Msg("job engine stopped")
}

// Submit enqueues a job ID for processing. Returns false when the queue is
// full; the job row stays pending and the caller decides how to report it.
func (e *Engine) Submit(jobID string) bool {
	select {
	case e.queue <- jobID:
		e.logger.Info().Str("job_id", jobID).Msg("job enqueued")
		return true
	default:
		e.logger.Warn().Str("job_id", jobID).Msg("job queue full")
		return false
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	log := e.logger.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("worker stopping")
			return
		case jobID, ok := <-e.queue:
			if !ok {
				return
			}
			if err := e.runner.Process(ctx, jobID); err != nil {
				log.Error().Err(err).Str("job_id", jobID).Msg("job processing failed")
			}
		}
	}
}
