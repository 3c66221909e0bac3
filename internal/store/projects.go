package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/darkmc/plugin-forge/internal/project"
)

// SavedProject is one finished generation persisted to history.
type SavedProject struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ProjectName string           `json:"project_name"`
	Description string           `json:"description"`
	Language    string           `json:"language"`
	Platform    string           `json:"platform"`
	MCVersion   string           `json:"mc_version"`
	Files       []project.File   `json:"files"`
	Scripts     []string         `json:"scripts,omitempty"`
	Metadata    project.Metadata `json:"metadata"`
	CreatedAt   int64            `json:"created_at"` // unix ms
}

// SaveProject persists a finished project and returns its generated ID.
func (s *Store) SaveProject(userID, description string, data project.Data) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := json.Marshal(data.Files)
	if err != nil {
		return "", fmt.Errorf("marshal files: %w", err)
	}
	scripts, err := json.Marshal(data.Scripts)
	if err != nil {
		return "", fmt.Errorf("marshal scripts: %w", err)
	}
	metadata, err := json.Marshal(data.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	id := uuid.New().String()
	query := `
	INSERT INTO projects (
		id, user_id, project_name, description, language, platform,
		mc_version, files, scripts, metadata, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		id, userID, data.ProjectName, description, data.Language, data.Platform,
		data.MCVersion, string(files),
		sql.NullString{String: string(scripts), Valid: len(data.Scripts) > 0},
		sql.NullString{String: string(metadata), Valid: true},
		time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save project: %w", err)
	}
	return id, nil
}

// ListProjects returns a user's saved projects, newest first.
func (s *Store) ListProjects(userID string, limit int) ([]*SavedProject, error) {
	query := `
	SELECT id, user_id, project_name, description, language, platform,
	       mc_version, files, scripts, metadata, created_at
	FROM projects WHERE user_id = ? ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryProjects(query, args...)
}

// ListRecent returns the newest saved projects across all users, the read
// model behind the community feed.
func (s *Store) ListRecent(limit int) ([]*SavedProject, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, user_id, project_name, description, language, platform,
	       mc_version, files, scripts, metadata, created_at
	FROM projects ORDER BY created_at DESC LIMIT ?
	`
	return s.queryProjects(query, limit)
}

func (s *Store) queryProjects(query string, args ...any) ([]*SavedProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*SavedProject
	for rows.Next() {
		p := &SavedProject{}
		var files string
		var scripts, metadata sql.NullString

		err := rows.Scan(
			&p.ID, &p.UserID, &p.ProjectName, &p.Description, &p.Language,
			&p.Platform, &p.MCVersion, &files, &scripts, &metadata, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		if err := json.Unmarshal([]byte(files), &p.Files); err != nil {
			return nil, fmt.Errorf("unmarshal files for project %s: %w", p.ID, err)
		}
		if scripts.Valid {
			if err := json.Unmarshal([]byte(scripts.String), &p.Scripts); err != nil {
				return nil, fmt.Errorf("unmarshal scripts for project %s: %w", p.ID, err)
			}
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for project %s: %w", p.ID, err)
			}
		}

		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return out, nil
}

// Data reassembles the stored row into project data.
func (p *SavedProject) Data() project.Data {
	return project.Data{
		ProjectName: p.ProjectName,
		Language:    p.Language,
		Platform:    p.Platform,
		MCVersion:   p.MCVersion,
		Files:       p.Files,
		Scripts:     p.Scripts,
		Metadata:    p.Metadata,
	}
}
