// Package store is the SQLite persistence layer: projects, users, tracked
// posts, the append-only score ledger, and the materialized per-user
// per-project aggregates.
package store

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct{ sql *sql.DB }

func Open(path string) (*Store, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON; PRAGMA busy_timeout=5000;`); err != nil {
		return nil, err
	}
	s := &Store{sql: d}
	if err := s.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) migrate() error {
	_, err := s.sql.Exec(`
	CREATE TABLE IF NOT EXISTS projects (
	  id TEXT PRIMARY KEY,
	  name TEXT NOT NULL,
	  keywords TEXT NOT NULL,
	  cooldown_hours INTEGER NOT NULL,
	  status TEXT NOT NULL DEFAULT 'active',
	  last_run_at INTEGER,
	  next_run_at INTEGER,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
	  id TEXT PRIMARY KEY,
	  external_id TEXT NOT NULL UNIQUE,
	  handle TEXT NOT NULL,
	  display_name TEXT NOT NULL DEFAULT '',
	  avatar_url TEXT NOT NULL DEFAULT '',
	  followers INTEGER NOT NULL DEFAULT 0,
	  verified INTEGER NOT NULL DEFAULT 0,
	  blue_verified INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS posts (
	  id TEXT PRIMARY KEY,
	  external_id TEXT NOT NULL,
	  project_id TEXT NOT NULL REFERENCES projects(id),
	  user_id TEXT NOT NULL REFERENCES users(id),
	  text TEXT NOT NULL DEFAULT '',
	  url TEXT NOT NULL,
	  posted_at INTEGER NOT NULL,
	  cur_likes INTEGER NOT NULL DEFAULT 0,
	  cur_reposts INTEGER NOT NULL DEFAULT 0,
	  cur_replies INTEGER NOT NULL DEFAULT 0,
	  cur_quotes INTEGER NOT NULL DEFAULT 0,
	  cur_bookmarks INTEGER NOT NULL DEFAULT 0,
	  prev_likes INTEGER NOT NULL DEFAULT 0,
	  prev_reposts INTEGER NOT NULL DEFAULT 0,
	  prev_replies INTEGER NOT NULL DEFAULT 0,
	  prev_quotes INTEGER NOT NULL DEFAULT 0,
	  prev_bookmarks INTEGER NOT NULL DEFAULT 0,
	  is_active INTEGER NOT NULL DEFAULT 1,
	  last_updated_at INTEGER NOT NULL,
	  UNIQUE(external_id, project_id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_project_posted ON posts(project_id, posted_at);
	CREATE TABLE IF NOT EXISTS score_ledger (
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL REFERENCES users(id),
	  project_id TEXT NOT NULL REFERENCES projects(id),
	  post_id TEXT NOT NULL REFERENCES posts(id),
	  likes_delta INTEGER NOT NULL,
	  reposts_delta INTEGER NOT NULL,
	  replies_delta INTEGER NOT NULL,
	  quotes_delta INTEGER NOT NULL,
	  bookmarks_delta INTEGER NOT NULL,
	  points_likes REAL NOT NULL,
	  points_reposts REAL NOT NULL,
	  points_replies REAL NOT NULL,
	  points_quotes REAL NOT NULL,
	  points_bookmarks REAL NOT NULL,
	  total_points REAL NOT NULL,
	  run_id TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_user_project ON score_ledger(user_id, project_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_post ON score_ledger(post_id);
	CREATE TABLE IF NOT EXISTS user_project_scores (
	  user_id TEXT NOT NULL REFERENCES users(id),
	  project_id TEXT NOT NULL REFERENCES projects(id),
	  total_score REAL NOT NULL DEFAULT 0,
	  post_count INTEGER NOT NULL DEFAULT 0,
	  last_points_earned REAL NOT NULL DEFAULT 0,
	  last_earned_at INTEGER,
	  updated_at INTEGER NOT NULL,
	  PRIMARY KEY (user_id, project_id)
	);
	`)
	return err
}
