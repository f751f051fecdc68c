package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pulseboard/internal/model"
)

const postCols = `id, external_id, project_id, user_id, text, url, posted_at,
	cur_likes, cur_reposts, cur_replies, cur_quotes, cur_bookmarks,
	prev_likes, prev_reposts, prev_replies, prev_quotes, prev_bookmarks,
	is_active, last_updated_at`

// GetPost returns the tracked post for (externalID, projectID), or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, externalID, projectID string) (model.Post, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT `+postCols+` FROM posts WHERE external_id=? AND project_id=?`, externalID, projectID)
	return scanPost(row)
}

// RefetchCandidates returns active posts for the project published after the
// cutoff. The engine re-fetches these by URL when a keyword search misses
// them; posts older than the cutoff are close enough to expiry that a
// re-fetch is not worth an actor run.
func (s *Store) RefetchCandidates(ctx context.Context, projectID string, postedAfter time.Time) ([]model.Post, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT `+postCols+` FROM posts
		 WHERE project_id=? AND posted_at > ? AND is_active=1
		 ORDER BY posted_at DESC`,
		projectID, postedAfter.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPostInactive freezes a post that has aged out of its tracking window.
// Its snapshot and ledger history stay as they were.
func (s *Store) MarkPostInactive(ctx context.Context, externalID, projectID string, now time.Time) error {
	_, err := s.sql.ExecContext(ctx,
		`UPDATE posts SET is_active=0, last_updated_at=? WHERE external_id=? AND project_id=?`,
		now.Unix(), externalID, projectID)
	return err
}

func scanPost(row rowScanner) (model.Post, error) {
	var p model.Post
	var active int
	var posted, updated int64
	err := row.Scan(&p.ID, &p.ExternalID, &p.ProjectID, &p.UserID, &p.Text, &p.URL, &posted,
		&p.Current.Likes, &p.Current.Reposts, &p.Current.Replies, &p.Current.Quotes, &p.Current.Bookmarks,
		&p.Previous.Likes, &p.Previous.Reposts, &p.Previous.Replies, &p.Previous.Quotes, &p.Previous.Bookmarks,
		&active, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Active = active != 0
	p.PostedAt = time.Unix(posted, 0).UTC()
	p.LastUpdatedAt = time.Unix(updated, 0).UTC()
	return p, nil
}
