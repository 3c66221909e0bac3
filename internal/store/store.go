// Package store persists generation jobs and finished projects in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// jobCacheSize bounds the hot-job cache; pollers re-read the same row every
// two seconds.
const jobCacheSize = 256

// Store manages the SQLite database.
type Store struct {
	db       *sql.DB
	logger   zerolog.Logger
	mu       sync.RWMutex
	jobCache *lru.Cache[string, *Job]
}

// New opens (or creates) the SQLite database and runs migrations.
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cache, err := lru.New[string, *Job](jobCacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create job cache: %w", err)
	}

	s := &Store{
		db:       db,
		logger:   logger.With().Str("component", "store").Logger(),
		jobCache: cache,
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info().Str("path", dbPath).Msg("store initialized")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection (for testing).
func (s *Store) DB() *sql.DB {
	return s.db
}
