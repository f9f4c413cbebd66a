package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database holding quizzes, users and sessions.
type Store struct {
	db *sql.DB
}

// New opens the database and runs schema migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		mentor_id TEXT NOT NULL,
		template_type TEXT NOT NULL,
		tema TEXT NOT NULL,
		content TEXT NOT NULL,
		ai_provider TEXT NOT NULL,
		ai_model TEXT,
		thinking_process TEXT,
		limba TEXT NOT NULL DEFAULT 'RO',
		created_at INTEGER NOT NULL,
		difficulty TEXT,
		bloom_level INTEGER,
		token_estimate INTEGER NOT NULL DEFAULT 0,
		quiz_status TEXT NOT NULL DEFAULT 'draft',
		score INTEGER,
		max_score INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_student_quizzes ON quizzes(student_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_mentor_type ON quizzes(mentor_id, template_type);
	CREATE INDEX IF NOT EXISTS idx_status ON quizzes(quiz_status);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		fullname TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
