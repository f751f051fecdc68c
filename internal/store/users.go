package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pulseboard/internal/model"
)

// UpsertUser resolves a provider author to a stable internal user id,
// creating the row on first sighting and refreshing the mutable profile
// fields on every subsequent one. Last write wins, no history kept.
func (s *Store) UpsertUser(ctx context.Context, a model.RawAuthor, now time.Time) (string, error) {
	if a.ExternalID == "" {
		return "", errors.New("author has no external id")
	}
	var id string
	err := s.sql.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, handle, display_name, avatar_url, followers, verified, blue_verified, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(external_id) DO UPDATE SET
		  handle = excluded.handle,
		  display_name = excluded.display_name,
		  avatar_url = excluded.avatar_url,
		  followers = excluded.followers,
		  verified = excluded.verified,
		  blue_verified = excluded.blue_verified,
		  updated_at = excluded.updated_at
		RETURNING id`,
		uuid.NewString(), a.ExternalID, a.Handle, a.Name, a.AvatarURL,
		a.Followers, boolInt(a.Verified), boolInt(a.BlueVerified),
		now.Unix(), now.Unix()).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetUser returns a user by internal id, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	var verified, blue int
	var created, updated int64
	err := s.sql.QueryRowContext(ctx, `
		SELECT id, external_id, handle, display_name, avatar_url, followers, verified, blue_verified, created_at, updated_at
		FROM users WHERE id=?`, id).
		Scan(&u.ID, &u.ExternalID, &u.Handle, &u.Name, &u.AvatarURL, &u.Followers, &verified, &blue, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.Verified = verified != 0
	u.BlueVerified = blue != 0
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return u, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
