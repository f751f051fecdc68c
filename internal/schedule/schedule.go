// Package schedule decides when project runs fire: cooldown arithmetic plus
// a polling loop that triggers due projects.
package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pulseboard/internal/model"
)

// CooldownHours are the allowed scrape cooldowns. The cooldown only governs
// scrape frequency, not how long posts stay eligible for points.
var CooldownHours = []int{1, 6, 12, 24}

// ValidCooldown reports whether hours is one of the allowed cooldowns.
func ValidCooldown(hours int) bool {
	for _, h := range CooldownHours {
		if h == hours {
			return true
		}
	}
	return false
}

// NextRun returns when a project becomes eligible again after a run.
func NextRun(lastRun time.Time, cooldownHours int) time.Time {
	return lastRun.Add(time.Duration(cooldownHours) * time.Hour)
}

// ProjectSource lists projects whose cooldown has elapsed.
type ProjectSource interface {
	DueProjects(ctx context.Context, now time.Time) ([]model.Project, error)
}

// RunFunc triggers one reconciliation run.
type RunFunc func(ctx context.Context, projectID string) (model.RunSummary, error)

// Loop polls for due projects every interval and runs them sequentially
// until ctx is cancelled. Failures are logged and the loop keeps going; a
// rejected overlapping trigger is just a project that will be due again on
// the next poll.
func Loop(ctx context.Context, src ProjectSource, run RunFunc, interval time.Duration, log zerolog.Logger) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// poll immediately, then on every tick
	poll(ctx, src, run, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-t.C:
			poll(ctx, src, run, log)
		}
	}
}

func poll(ctx context.Context, src ProjectSource, run RunFunc, log zerolog.Logger) {
	due, err := src.DueProjects(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("listing due projects failed")
		return
	}
	for _, p := range due {
		sum, err := run(ctx, p.ID)
		if err != nil {
			log.Error().Err(err).Str("project", p.ID).Msg("scheduled run failed")
			continue
		}
		log.Info().
			Str("project", p.ID).
			Int("new", sum.NewPosts).
			Int("updated", sum.UpdatedPosts).
			Float64("points", sum.PointsAwarded).
			Msg("scheduled run complete")
	}
}
