package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_jobs (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL,
		plugin_type   TEXT NOT NULL,
		mc_version    TEXT NOT NULL,
		model         TEXT,
		status        TEXT NOT NULL DEFAULT 'pending',
		progress      INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		project_data  TEXT,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL,
		completed_at  INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON generation_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_user ON generation_jobs(user_id, created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	return nil
}

func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil || version >= "2" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL DEFAULT '',
		project_name TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		language     TEXT NOT NULL,
		platform     TEXT NOT NULL,
		mc_version   TEXT NOT NULL,
		files        TEXT NOT NULL,
		scripts      TEXT,
		metadata     TEXT,
		created_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}
