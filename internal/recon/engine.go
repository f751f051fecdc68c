// Package recon is the reconciliation engine: one run gathers candidate
// posts for a project, scores engagement growth against the last persisted
// snapshots, and settles the results into the ledger and aggregates.
package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pulseboard/internal/metrics"
	"pulseboard/internal/model"
	"pulseboard/internal/scoring"
	"pulseboard/internal/scrape"
	"pulseboard/internal/store"
)

// Engine executes reconciliation runs. Dependencies are injected; there is no
// ambient client or store state.
type Engine struct {
	store    *store.Store
	fetcher  scrape.Fetcher
	log      zerolog.Logger
	guard    *runGuard
	maxItems int
	now      func() time.Time
}

func New(st *store.Store, f scrape.Fetcher, log zerolog.Logger, maxItems int) *Engine {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &Engine{
		store:    st,
		fetcher:  f,
		log:      log,
		guard:    newRunGuard(),
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Run executes one full reconciliation run for the project. Run-level
// failures (unknown or paused project, unreachable provider) abort before any
// write; per-candidate failures are tallied in the summary and the run
// continues. Committed candidate transactions survive a mid-run abort.
func (e *Engine) Run(ctx context.Context, projectID string) (model.RunSummary, error) {
	sum := model.RunSummary{ProjectID: projectID, RunID: uuid.NewString()}
	if !e.guard.acquire(projectID) {
		return sum, fmt.Errorf("project %s: %w", projectID, ErrRunInProgress)
	}
	defer e.guard.release(projectID)

	metrics.RunsTotal.Inc()
	start := time.Now()
	defer metrics.ObserveRunDuration(start)

	now := e.now().UTC()

	p, err := e.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RunErrors.Inc()
		return sum, fmt.Errorf("project %s: %w", projectID, ErrProjectNotFound)
	}
	if err != nil {
		metrics.RunErrors.Inc()
		return sum, err
	}
	if p.Status != model.StatusActive {
		metrics.RunErrors.Inc()
		return sum, fmt.Errorf("project %s: %w", projectID, ErrProjectNotActive)
	}

	found, err := e.fetcher.SearchByKeywords(ctx, p.Keywords, e.maxItems)
	if err != nil {
		metrics.RunErrors.Inc()
		return sum, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}

	candidates, err := e.gatherRefetch(ctx, p, found, now)
	if err != nil {
		metrics.RunErrors.Inc()
		return sum, err
	}
	all := append(found, candidates...)
	sum.Scraped = len(all)

	for _, raw := range all {
		if err := e.processCandidate(ctx, p, raw, now, &sum); err != nil {
			sum.Failed++
			metrics.CandidateErrors.Inc()
			e.log.Error().Err(err).
				Str("project", p.ID).
				Str("post", raw.ID).
				Msg("candidate processing failed")
		}
	}

	next := now.Add(time.Duration(p.CooldownHours) * time.Hour)
	if err := e.store.StampProjectRun(ctx, p.ID, now, next); err != nil {
		return sum, fmt.Errorf("stamp project run: %w", err)
	}

	e.log.Info().
		Str("project", p.ID).
		Str("run", sum.RunID).
		Int("scraped", sum.Scraped).
		Int("new", sum.NewPosts).
		Int("updated", sum.UpdatedPosts).
		Int("failed", sum.Failed).
		Float64("points", sum.PointsAwarded).
		Msg("run complete")
	return sum, nil
}

// gatherRefetch finds still-young active posts the keyword search missed and
// re-fetches them by URL. A keyword search can drop a post to a later page
// while it is still gaining engagement; direct lookup recovers it. Re-fetch
// failures are not fatal: the run proceeds on search results alone.
func (e *Engine) gatherRefetch(ctx context.Context, p model.Project, found []model.RawPost, now time.Time) ([]model.RawPost, error) {
	seen := make(map[string]struct{}, len(found))
	for _, f := range found {
		seen[f.ID] = struct{}{}
	}
	tracked, err := e.store.RefetchCandidates(ctx, p.ID, now.Add(-scoring.RefreshWindow))
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, t := range tracked {
		if _, ok := seen[t.ExternalID]; !ok {
			urls = append(urls, t.URL)
		}
	}
	if len(urls) == 0 {
		return nil, nil
	}
	refetched, err := e.fetcher.FetchByURLs(ctx, urls)
	if err != nil {
		e.log.Warn().Err(err).Str("project", p.ID).Int("urls", len(urls)).Msg("url re-fetch failed, continuing with search results")
		return nil, nil
	}
	return refetched, nil
}

func (e *Engine) processCandidate(ctx context.Context, p model.Project, raw model.RawPost, now time.Time, sum *model.RunSummary) error {
	if raw.ID == "" {
		return errors.New("candidate missing post id")
	}
	active := scoring.WithinTrackingWindow(raw.PostedAt, now)

	userID, err := e.store.UpsertUser(ctx, raw.Author, now)
	if err != nil {
		return fmt.Errorf("upsert author: %w", err)
	}

	existing, err := e.store.GetPost(ctx, raw.ID, p.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First sighting: previous is all-zero, so the full counters are the
		// delta and the author is credited for everything so far. The ledger
		// entry is written even at zero engagement to mark discovery.
		delta := raw.Engagement
		pts := scoring.Points(delta)
		post := model.Post{
			ExternalID: raw.ID,
			ProjectID:  p.ID,
			UserID:     userID,
			Text:       raw.Text,
			URL:        raw.URL,
			PostedAt:   raw.PostedAt,
			Current:    raw.Engagement,
			Active:     active,
		}
		if _, err := e.store.CreatePostScored(ctx, post, delta, pts, sum.RunID, now); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		sum.NewPosts++
		sum.PointsAwarded += pts.Total
		metrics.PostsCreated.Inc()
		metrics.PointsAwarded.Add(pts.Total)

	case err != nil:
		return err

	default:
		if !existing.Active {
			// already frozen, nothing may change
			return nil
		}
		if !active {
			if err := e.store.MarkPostInactive(ctx, raw.ID, p.ID, now); err != nil {
				return err
			}
			return nil
		}
		delta := scoring.Delta(raw.Engagement, existing.Current)
		pts := scoring.Points(delta)
		existing.Previous = existing.Current
		existing.Current = raw.Engagement
		existing.Active = true
		award := pts.Total > 0
		if err := e.store.ApplyPostUpdate(ctx, existing, delta, pts, sum.RunID, now, award); err != nil {
			return fmt.Errorf("apply update: %w", err)
		}
		sum.UpdatedPosts++
		metrics.PostsUpdated.Inc()
		if award {
			sum.PointsAwarded += pts.Total
			metrics.PointsAwarded.Add(pts.Total)
		}
	}
	return nil
}
