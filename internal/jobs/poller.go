package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkmc/plugin-forge/internal/project"
	"github.com/darkmc/plugin-forge/internal/store"
)

// DefaultPollInterval is the cadence between status checks.
const DefaultPollInterval = 2 * time.Second

// Status is one observed job state.
type Status struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Progress     int           `json:"progress"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Project      *project.Data `json:"project_data,omitempty"`
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s.Status == store.JobCompleted || s.Status == store.JobFailed
}

// StatusFetcher reads the current state of a job. Implemented by the HTTP
// API client; tests substitute fakes.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, jobID string) (Status, error)
}

// Poller watches one background job until it reaches a terminal status.
//
// Fetch errors are swallowed: a failed check is indistinguishable from a slow
// one, so the poller just tries again next tick. The loop stops on the first
// terminal status it observes, and the completion callback fires exactly once
// no matter how the loop winds down.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	logger   zerolog.Logger

	onProgress func(Status)
	onDone     func(Status)
	doneOnce   sync.Once
}

// PollerOption configures a poller.
type PollerOption func(*Poller)

// WithInterval overrides the polling cadence.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithProgress registers a callback invoked on every successful check.
func WithProgress(fn func(Status)) PollerOption {
	return func(p *Poller) { p.onProgress = fn }
}

// WithDone registers the completion callback. It is invoked exactly once,
// with the terminal status.
func WithDone(fn func(Status)) PollerOption {
	return func(p *Poller) { p.onDone = fn }
}

// NewPoller creates a poller for one job.
func NewPoller(fetcher StatusFetcher, logger zerolog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultPollInterval,
		logger:   logger.With().Str("component", "job_poller").Logger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run polls until the job terminates or ctx is cancelled. The first check
// happens immediately, not one interval in.
func (p *Poller) Run(ctx context.Context, jobID string) {
	log := p.logger.With().Str("job_id", jobID).Logger()

	if p.check(ctx, jobID, log) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("polling cancelled")
			return
		case <-ticker.C:
			if p.check(ctx, jobID, log) {
				return
			}
		}
	}
}

// check performs one status fetch. Returns true when polling should stop.
func (p *Poller) check(ctx context.Context, jobID string, log zerolog.Logger) bool {
	st, err := p.fetcher.FetchStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.Debug().Err(err).Msg("status check failed, will retry")
		return false
	}

	if p.onProgress != nil {
		p.onProgress(st)
	}
	if !st.Terminal() {
		return false
	}

	log.Info().Str("status", st.Status).Int("progress", st.Progress).Msg("job reached terminal status")
	p.doneOnce.Do(func() {
		if p.onDone != nil {
			p.onDone(st)
		}
	})
	return true
}
