// Package jobs runs background plugin generations and polls their status.
// Long descriptions route here instead of the streaming path: the generation
// happens server-side while the client watches progress checkpoints.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
	"github.com/darkmc/plugin-forge/internal/llm"
	"github.com/darkmc/plugin-forge/internal/metrics"
	"github.com/darkmc/plugin-forge/internal/prompt"
	"github.com/darkmc/plugin-forge/internal/retry"
	"github.com/darkmc/plugin-forge/internal/store"
)

// Progress checkpoints reported while a job runs. The poller surfaces these
// to the client as a coarse progress bar.
const (
	ProgressAccepted  = 10
	ProgressPrompted  = 20
	ProgressGenerated = 60
	ProgressParsed    = 90
)

// Runner executes queued generation jobs.
type Runner struct {
	store   *store.Store
	client  llm.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
	retry   retry.Config
}

// NewRunner creates a job runner. metrics may be nil.
func NewRunner(s *store.Store, client llm.Client, logger zerolog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		store:   s,
		client:  client,
		logger:  logger.With().Str("component", "job_runner").Logger(),
		metrics: m,
		retry:   retry.DefaultConfig(),
	}
}

// Process runs one job to a terminal status. The returned error mirrors what
// was written to the job row; callers that fire-and-forget can ignore it.
//
// A model reply that parses but contains only a README fails the job: a long
// description that produced no code is a generation failure, not a result.
func (r *Runner) Process(ctx context.Context, jobID string) error {
	log := r.logger.With().Str("job_id", jobID).Logger()

	job, err := r.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		log.Warn().Str("status", job.Status).Msg("job already terminal, skipping")
		return nil
	}

	if r.metrics != nil {
		r.metrics.JobStarted()
		defer r.metrics.JobFinished()
	}

	if err := r.store.UpdateJobStatus(jobID, store.JobProcessing, ProgressAccepted); err != nil {
		return err
	}

	userPrompt := prompt.BuildUserPrompt(job.Description, job.PluginType, job.MCVersion)
	if err := r.store.UpdateJobProgress(jobID, ProgressPrompted); err != nil {
		return err
	}

	log.Info().Str("model", job.Model).Int("description_len", len(job.Description)).Msg("calling model")

	var resp *llm.Response
	err = retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.client.Complete(ctx, llm.Request{
			Model:  job.Model,
			System: prompt.SystemPrompt,
			Messages: []llm.Message{
				{Role: "user", Content: userPrompt},
			},
		})
		return callErr
	})
	if err != nil {
		return r.fail(jobID, fmt.Sprintf("AI Gateway error: %v", err), "gateway")
	}

	if err := r.store.UpdateJobProgress(jobID, ProgressGenerated); err != nil {
		return err
	}

	data, err := prompt.ParseProject(resp.Text)
	if err != nil {
		if errors.Is(err, ferrors.ErrUnclearRequest) {
			return r.fail(jobID, err.Error(), "unclear_request")
		}
		return r.fail(jobID, "Failed to parse AI response. Please try again or simplify your prompt.", "parse")
	}
	if prompt.IsReadmeOnly(data) {
		return r.fail(jobID, "AI generated only README. Need full code implementation.", "readme_only")
	}

	if err := r.store.UpdateJobProgress(jobID, ProgressParsed); err != nil {
		return err
	}

	// History write failures are logged, never fatal: the job result is the
	// project data on the job row, not the history entry.
	if _, err := r.store.SaveProject(job.UserID, job.Description, data); err != nil {
		log.Error().Err(err).Msg("failed to save project to history")
	}

	projectJSON, err := json.Marshal(data)
	if err != nil {
		return r.fail(jobID, "Failed to encode project data.", "encode")
	}
	if err := r.store.CompleteJob(jobID, string(projectJSON)); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.RecordGeneration("background", "completed")
	}
	log.Info().Str("project", data.ProjectName).Int("files", len(data.Files)).Msg("job completed")
	return nil
}

func (r *Runner) fail(jobID, message, errType string) error {
	if err := r.store.FailJob(jobID, message); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to mark job failed")
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordGeneration("background", "failed")
		r.metrics.RecordError("jobs", errType)
	}
	return fmt.Errorf("job %s failed: %s", jobID, message)
}
