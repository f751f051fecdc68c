package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"pulseboard/internal/model"
)

const projectCols = `id, name, keywords, cooldown_hours, status, COALESCE(last_run_at, 0), COALESCE(next_run_at, 0), created_at`

// CreateProject inserts a new active project and returns it.
func (s *Store) CreateProject(ctx context.Context, name string, keywords []string, cooldownHours int) (model.Project, error) {
	if name == "" {
		return model.Project{}, errors.New("empty project name")
	}
	if len(keywords) == 0 {
		return model.Project{}, errors.New("project needs at least one keyword")
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return model.Project{}, err
	}
	p := model.Project{
		ID:            uuid.NewString(),
		Name:          name,
		Keywords:      keywords,
		CooldownHours: cooldownHours,
		Status:        model.StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = s.sql.ExecContext(ctx,
		`INSERT INTO projects(id, name, keywords, cooldown_hours, status, created_at) VALUES(?,?,?,?,?,?)`,
		p.ID, p.Name, string(kw), p.CooldownHours, p.Status, p.CreatedAt.Unix())
	if err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// GetProject returns a project by id, or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := s.sql.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id)
	return scanProject(row)
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT `+projectCols+` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetProjectStatus flips a project between active and paused.
func (s *Store) SetProjectStatus(ctx context.Context, id, status string) error {
	if status != model.StatusActive && status != model.StatusPaused {
		return errors.New("invalid status " + status)
	}
	res, err := s.sql.ExecContext(ctx, `UPDATE projects SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// StampProjectRun records the run that just finished and when the next one
// becomes eligible.
func (s *Store) StampProjectRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	_, err := s.sql.ExecContext(ctx,
		`UPDATE projects SET last_run_at=?, next_run_at=? WHERE id=?`,
		lastRun.Unix(), nextRun.Unix(), id)
	return err
}

// DueProjects returns active projects whose cooldown has elapsed (or that
// never ran), oldest next-run first.
func (s *Store) DueProjects(ctx context.Context, now time.Time) ([]model.Project, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT `+projectCols+` FROM projects
		 WHERE status=? AND (next_run_at IS NULL OR next_run_at <= ?)
		 ORDER BY COALESCE(next_run_at, 0)`,
		model.StatusActive, now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	var kw string
	var lastRun, nextRun, created int64
	err := row.Scan(&p.ID, &p.Name, &kw, &p.CooldownHours, &p.Status, &lastRun, &nextRun, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(kw), &p.Keywords); err != nil {
		return p, err
	}
	if lastRun > 0 {
		p.LastRunAt = time.Unix(lastRun, 0).UTC()
	}
	if nextRun > 0 {
		p.NextRunAt = time.Unix(nextRun, 0).UTC()
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}
