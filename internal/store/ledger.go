package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pulseboard/internal/model"
	"pulseboard/internal/scoring"
)

// CreatePostScored persists a newly discovered post together with its
// discovery ledger entry and the author's aggregate, in one transaction.
// The ledger entry is written even for an all-zero snapshot: discovery is
// recorded exactly once, and the post counts toward the author's post tally.
func (s *Store) CreatePostScored(ctx context.Context, p model.Post, delta model.Engagement, pts scoring.Breakdown, runID string, now time.Time) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, external_id, project_id, user_id, text, url, posted_at,
		  cur_likes, cur_reposts, cur_replies, cur_quotes, cur_bookmarks,
		  prev_likes, prev_reposts, prev_replies, prev_quotes, prev_bookmarks,
		  is_active, last_updated_at)
		VALUES (?,?,?,?,?,?,?, ?,?,?,?,?, 0,0,0,0,0, ?,?)`,
		p.ID, p.ExternalID, p.ProjectID, p.UserID, p.Text, p.URL, p.PostedAt.Unix(),
		p.Current.Likes, p.Current.Reposts, p.Current.Replies, p.Current.Quotes, p.Current.Bookmarks,
		boolInt(p.Active), now.Unix())
	if err != nil {
		return "", err
	}
	if err := insertAward(ctx, tx, p.UserID, p.ProjectID, p.ID, delta, pts, runID, now, 1); err != nil {
		return "", err
	}
	return p.ID, tx.Commit()
}

// ApplyPostUpdate persists a re-fetched snapshot for a tracked post. When
// award is set it also appends a ledger entry and bumps the aggregate, all in
// the same transaction; with award unset only the snapshot moves, so
// zero-growth runs stay out of the history.
func (s *Store) ApplyPostUpdate(ctx context.Context, p model.Post, delta model.Engagement, pts scoring.Breakdown, runID string, now time.Time, award bool) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE posts SET
		  cur_likes=?, cur_reposts=?, cur_replies=?, cur_quotes=?, cur_bookmarks=?,
		  prev_likes=?, prev_reposts=?, prev_replies=?, prev_quotes=?, prev_bookmarks=?,
		  is_active=?, last_updated_at=?
		WHERE id=?`,
		p.Current.Likes, p.Current.Reposts, p.Current.Replies, p.Current.Quotes, p.Current.Bookmarks,
		p.Previous.Likes, p.Previous.Reposts, p.Previous.Replies, p.Previous.Quotes, p.Previous.Bookmarks,
		boolInt(p.Active), now.Unix(), p.ID)
	if err != nil {
		return err
	}
	if award {
		if err := insertAward(ctx, tx, p.UserID, p.ProjectID, p.ID, delta, pts, runID, now, 0); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// insertAward appends one immutable ledger row and upserts the (user,
// project) aggregate. countInc is 1 on the new-post path only: post_count
// means distinct posts ever awarded, not awarding events.
func insertAward(ctx context.Context, tx *sql.Tx, userID, projectID, postID string, delta model.Engagement, pts scoring.Breakdown, runID string, now time.Time, countInc int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO score_ledger (id, user_id, project_id, post_id,
		  likes_delta, reposts_delta, replies_delta, quotes_delta, bookmarks_delta,
		  points_likes, points_reposts, points_replies, points_quotes, points_bookmarks,
		  total_points, run_id, created_at)
		VALUES (?,?,?,?, ?,?,?,?,?, ?,?,?,?,?, ?,?,?)`,
		uuid.NewString(), userID, projectID, postID,
		delta.Likes, delta.Reposts, delta.Replies, delta.Quotes, delta.Bookmarks,
		pts.FromLikes, pts.FromReposts, pts.FromReplies, pts.FromQuotes, pts.FromBookmarks,
		pts.Total, runID, now.Unix())
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_project_scores (user_id, project_id, total_score, post_count, last_points_earned, last_earned_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(user_id, project_id) DO UPDATE SET
		  total_score = user_project_scores.total_score + excluded.total_score,
		  post_count = user_project_scores.post_count + excluded.post_count,
		  last_points_earned = excluded.last_points_earned,
		  last_earned_at = excluded.last_earned_at,
		  updated_at = excluded.updated_at`,
		userID, projectID, pts.Total, countInc, pts.Total, now.Unix(), now.Unix())
	return err
}

// UserScore returns the materialized aggregate for (user, project).
func (s *Store) UserScore(ctx context.Context, userID, projectID string) (model.UserProjectScore, error) {
	var sc model.UserProjectScore
	var lastEarned sql.NullInt64
	var updated int64
	err := s.sql.QueryRowContext(ctx, `
		SELECT user_id, project_id, total_score, post_count, last_points_earned, last_earned_at, updated_at
		FROM user_project_scores WHERE user_id=? AND project_id=?`, userID, projectID).
		Scan(&sc.UserID, &sc.ProjectID, &sc.TotalScore, &sc.PostCount, &sc.LastPointsEarned, &lastEarned, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return sc, ErrNotFound
	}
	if err != nil {
		return sc, err
	}
	if lastEarned.Valid {
		sc.LastEarnedAt = time.Unix(lastEarned.Int64, 0).UTC()
	}
	sc.UpdatedAt = time.Unix(updated, 0).UTC()
	return sc, nil
}

// LedgerTotal sums total_points over all ledger entries for (user, project).
// The aggregate's total_score must always equal this.
func (s *Store) LedgerTotal(ctx context.Context, userID, projectID string) (float64, error) {
	var total float64
	err := s.sql.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_points), 0) FROM score_ledger WHERE user_id=? AND project_id=?`,
		userID, projectID).Scan(&total)
	return total, err
}

// CountLedgerForPost returns how many ledger entries a post has produced.
func (s *Store) CountLedgerForPost(ctx context.Context, postID string) (int, error) {
	var n int
	err := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM score_ledger WHERE post_id=?`, postID).Scan(&n)
	return n, err
}

// Leaderboard returns the project's top scorers with profile details.
func (s *Store) Leaderboard(ctx context.Context, projectID string, limit int) ([]model.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := s.sql.QueryContext(ctx, `
		SELECT ups.user_id, u.handle, u.display_name, u.avatar_url, u.followers, u.verified, u.blue_verified,
		       ups.total_score, ups.post_count, COALESCE(ups.last_earned_at, 0)
		FROM user_project_scores ups
		JOIN users u ON u.id = ups.user_id
		WHERE ups.project_id = ?
		ORDER BY ups.total_score DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeaderboardRow
	rank := 0
	for rows.Next() {
		var r model.LeaderboardRow
		var verified, blue int
		var lastEarned int64
		if err := rows.Scan(&r.UserID, &r.Handle, &r.Name, &r.AvatarURL, &r.Followers, &verified, &blue,
			&r.TotalScore, &r.PostCount, &lastEarned); err != nil {
			return nil, err
		}
		r.Verified = verified != 0
		r.BlueVerified = blue != 0
		if lastEarned > 0 {
			r.LastEarnedAt = time.Unix(lastEarned, 0).UTC()
		}
		rank++
		r.Rank = rank
		out = append(out, r)
	}
	return out, rows.Err()
}
