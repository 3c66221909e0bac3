package store

import (
	"database/sql"
	"fmt"
	"time"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

// Job statuses. A job moves pending -> processing -> completed|failed and
// never leaves a terminal status.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Job is one queued background generation.
type Job struct {
	ID           string
	UserID       string
	Description  string
	PluginType   string
	MCVersion    string
	Model        string
	Status       string
	Progress     int
	ErrorMessage string
	ProjectData  string // JSON, set on completion
	CreatedAt    int64  // unix ms
	UpdatedAt    int64  // unix ms
	CompletedAt  int64  // unix ms, 0 = not completed
}

// Terminal reports whether the job reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// CreateJob inserts a new pending job.
func (s *Store) CreateJob(j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if j.CreatedAt == 0 {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	if j.Status == "" {
		j.Status = JobPending
	}

	query := `
	INSERT INTO generation_jobs (
		id, user_id, description, plugin_type, mc_version, model,
		status, progress, error_message, project_data, created_at, updated_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		j.ID, j.UserID, j.Description, j.PluginType, j.MCVersion,
		sql.NullString{String: j.Model, Valid: j.Model != ""},
		j.Status, j.Progress,
		sql.NullString{String: j.ErrorMessage, Valid: j.ErrorMessage != ""},
		sql.NullString{String: j.ProjectData, Valid: j.ProjectData != ""},
		j.CreatedAt, j.UpdatedAt,
		sql.NullInt64{Int64: j.CompletedAt, Valid: j.CompletedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID. Terminal jobs are served from an LRU cache
// since pollers re-read them and terminal rows never change.
func (s *Store) GetJob(id string) (*Job, error) {
	if j, ok := s.jobCache.Get(id); ok {
		return j, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	j := &Job{}
	var model, errMsg, projectData sql.NullString
	var completedAt sql.NullInt64

	query := `
	SELECT id, user_id, description, plugin_type, mc_version, model,
	       status, progress, error_message, project_data, created_at, updated_at, completed_at
	FROM generation_jobs WHERE id = ?
	`

	err := s.db.QueryRow(query, id).Scan(
		&j.ID, &j.UserID, &j.Description, &j.PluginType, &j.MCVersion, &model,
		&j.Status, &j.Progress, &errMsg, &projectData,
		&j.CreatedAt, &j.UpdatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s: %w", id, ferrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if model.Valid {
		j.Model = model.String
	}
	if errMsg.Valid {
		j.ErrorMessage = errMsg.String
	}
	if projectData.Valid {
		j.ProjectData = projectData.String
	}
	if completedAt.Valid {
		j.CompletedAt = completedAt.Int64
	}

	if j.Terminal() {
		s.jobCache.Add(id, j)
	}
	return j, nil
}

// UpdateJobStatus sets status and progress together.
func (s *Store) UpdateJobStatus(id, status string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE generation_jobs SET status = ?, progress = ?, updated_at = ? WHERE id = ?`
	return s.execJobUpdate(id, query, status, progress, time.Now().UnixMilli(), id)
}

// UpdateJobProgress advances the progress checkpoint without touching status.
func (s *Store) UpdateJobProgress(id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE generation_jobs SET progress = ?, updated_at = ? WHERE id = ?`
	return s.execJobUpdate(id, query, progress, time.Now().UnixMilli(), id)
}

// CompleteJob marks the job completed at progress 100 with the final project
// JSON.
func (s *Store) CompleteJob(id, projectData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	UPDATE generation_jobs
	SET status = ?, progress = 100, project_data = ?, completed_at = ?, updated_at = ?
	WHERE id = ?
	`
	return s.execJobUpdate(id, query, JobCompleted, projectData, now, now, id)
}

// FailJob marks the job failed with an error message.
func (s *Store) FailJob(id, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	UPDATE generation_jobs
	SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
	WHERE id = ?
	`
	return s.execJobUpdate(id, query, JobFailed, errMsg, now, now, id)
}

func (s *Store) execJobUpdate(id, query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s: %w", id, ferrors.ErrNotFound)
	}
	s.jobCache.Remove(id)
	return nil
}

// FailStuckJobs marks non-terminal jobs as failed (startup recovery). The
// engine queue is in-memory, so after a restart pending rows have no worker
// coming for them and processing rows lost theirs mid-run.
func (s *Store) FailStuckJobs() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	UPDATE generation_jobs
	SET status = 'failed', error_message = 'interrupted by restart', completed_at = ?, updated_at = ?
	WHERE status IN ('pending', 'processing')
	`
	result, err := s.db.Exec(query, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stuck jobs: %w", err)
	}
	s.jobCache.Purge()
	return result.RowsAffected()
}
