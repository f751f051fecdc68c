package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/model"
	"pulseboard/internal/scoring"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestProject(t *testing.T, s *Store) model.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), "sol tracker", []string{"solana", "sol"}, 6)
	require.NoError(t, err)
	return p
}

func newTestUser(t *testing.T, s *Store, externalID string) string {
	t.Helper()
	id, err := s.UpsertUser(context.Background(), model.RawAuthor{
		ExternalID: externalID, Handle: "h_" + externalID, Name: "User " + externalID,
	}, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := newTestProject(t, s)
	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "sol tracker", got.Name)
	assert.Equal(t, []string{"solana", "sol"}, got.Keywords)
	assert.Equal(t, 6, got.CooldownHours)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.True(t, got.LastRunAt.IsZero())

	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetProjectStatus(ctx, p.ID, model.StatusPaused))
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, got.Status)

	assert.ErrorIs(t, s.SetProjectStatus(ctx, "missing", model.StatusPaused), ErrNotFound)
	assert.Error(t, s.SetProjectStatus(ctx, p.ID, "stopped"))

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateProjectValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateProject(ctx, "", []string{"k"}, 1)
	assert.Error(t, err)
	_, err = s.CreateProject(ctx, "x", nil, 1)
	assert.Error(t, err)
}

func TestDueProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := newTestProject(t, s)             // never ran: due
	cooled := newTestProject(t, s)            // next run in the past: due
	hot := newTestProject(t, s)               // next run in the future: not due
	paused := newTestProject(t, s)            // paused: never due
	require.NoError(t, s.StampProjectRun(ctx, cooled.ID, now.Add(-7*time.Hour), now.Add(-time.Hour)))
	require.NoError(t, s.StampProjectRun(ctx, hot.ID, now, now.Add(6*time.Hour)))
	require.NoError(t, s.StampProjectRun(ctx, paused.ID, now.Add(-7*time.Hour), now.Add(-time.Hour)))
	require.NoError(t, s.SetProjectStatus(ctx, paused.ID, model.StatusPaused))

	due, err := s.DueProjects(ctx, now)
	require.NoError(t, err)
	ids := make([]string, 0, len(due))
	for _, p := range due {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{fresh.ID, cooled.ID}, ids)
}

func TestUpsertUserStableIDRefreshedProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id1, err := s.UpsertUser(ctx, model.RawAuthor{ExternalID: "x1", Handle: "old", Followers: 10}, now)
	require.NoError(t, err)
	id2, err := s.UpsertUser(ctx, model.RawAuthor{ExternalID: "x1", Handle: "new", Followers: 99, BlueVerified: true}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	u, err := s.GetUser(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "new", u.Handle)
	assert.Equal(t, 99, u.Followers)
	assert.True(t, u.BlueVerified)
}

func TestUpsertUserRejectsEmptyExternalID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertUser(context.Background(), model.RawAuthor{Handle: "ghost"}, time.Now())
	assert.Error(t, err)
}

func TestCreatePostScoredZeroEngagementStillLedgered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	proj := newTestProject(t, s)
	user := newTestUser(t, s, "a1")

	post := model.Post{
		ExternalID: "p1", ProjectID: proj.ID, UserID: user,
		URL: "https://x.com/h_a1/status/p1", PostedAt: now.Add(-time.Hour), Active: true,
	}
	delta := post.Current
	pts := scoring.Points(delta)
	postID, err := s.CreatePostScored(ctx, post, delta, pts, "run-1", now)
	require.NoError(t, err)

	n, err := s.CountLedgerForPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sc, err := s.UserScore(ctx, user, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sc.TotalScore)
	assert.Equal(t, 1, sc.PostCount)
}

func TestAwardSequenceKeepsAggregateConsistent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	proj := newTestProject(t, s)
	user := newTestUser(t, s, "a1")

	// first sighting: likes=10 reposts=2 replies=1 -> 18 points
	cur := model.Engagement{Likes: 10, Reposts: 2, Replies: 1}
	post := model.Post{
		ExternalID: "p1", ProjectID: proj.ID, UserID: user, Current: cur,
		URL: "u1", PostedAt: now.Add(-time.Hour), Active: true,
	}
	postID, err := s.CreatePostScored(ctx, post, cur, scoring.Points(cur), "run-1", now)
	require.NoError(t, err)

	sc, err := s.UserScore(ctx, user, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 18.0, sc.TotalScore)
	assert.Equal(t, 1, sc.PostCount)
	assert.Equal(t, 18.0, sc.LastPointsEarned)

	// growth: likes 10 -> 15 earns 5 more, post count unchanged
	got, err := s.GetPost(ctx, "p1", proj.ID)
	require.NoError(t, err)
	assert.Equal(t, cur, got.Current)
	assert.Equal(t, model.Engagement{}, got.Previous)

	next := model.Engagement{Likes: 15, Reposts: 2, Replies: 1}
	delta := scoring.Delta(next, got.Current)
	got.Previous = got.Current
	got.Current = next
	require.NoError(t, s.ApplyPostUpdate(ctx, got, delta, scoring.Points(delta), "run-2", now.Add(time.Hour), true))

	sc, err = s.UserScore(ctx, user, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, 23.0, sc.TotalScore)
	assert.Equal(t, 1, sc.PostCount)
	assert.Equal(t, 5.0, sc.LastPointsEarned)

	// zero growth: snapshot only, no ledger or aggregate movement
	got, err = s.GetPost(ctx, "p1", proj.ID)
	require.NoError(t, err)
	got.Previous = got.Current
	require.NoError(t, s.ApplyPostUpdate(ctx, got, model.Engagement{}, scoring.Points(model.Engagement{}), "run-3", now.Add(2*time.Hour), false))

	n, err := s.CountLedgerForPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := s.LedgerTotal(ctx, user, proj.ID)
	require.NoError(t, err)
	sc, err = s.UserScore(ctx, user, proj.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.TotalScore, total)
}

func TestRefetchCandidatesFiltersAgeAndActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	proj := newTestProject(t, s)
	user := newTestUser(t, s, "a1")

	mk := func(ext string, age time.Duration) {
		p := model.Post{
			ExternalID: ext, ProjectID: proj.ID, UserID: user,
			URL: "https://x.com/s/" + ext, PostedAt: now.Add(-age), Active: true,
		}
		_, err := s.CreatePostScored(ctx, p, model.Engagement{}, scoring.Breakdown{}, "r", now)
		require.NoError(t, err)
	}
	mk("young", 2*time.Hour)
	mk("older", 13*time.Hour) // beyond the refresh cutoff
	mk("frozen", time.Hour)
	require.NoError(t, s.MarkPostInactive(ctx, "frozen", proj.ID, now))

	cands, err := s.RefetchCandidates(ctx, proj.ID, now.Add(-scoring.RefreshWindow))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "young", cands[0].ExternalID)
}

func TestLeaderboardOrderingAndRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	proj := newTestProject(t, s)

	add := func(ext string, likes int) {
		user := newTestUser(t, s, ext)
		cur := model.Engagement{Likes: likes}
		p := model.Post{ExternalID: "p_" + ext, ProjectID: proj.ID, UserID: user, Current: cur, URL: "u" + ext, PostedAt: now, Active: true}
		_, err := s.CreatePostScored(ctx, p, cur, scoring.Points(cur), "r", now)
		require.NoError(t, err)
	}
	add("low", 5)
	add("high", 50)
	add("mid", 20)

	rows, err := s.Leaderboard(ctx, proj.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "h_high", rows[0].Handle)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "h_mid", rows[1].Handle)
	assert.Equal(t, "h_low", rows[2].Handle)
	assert.Equal(t, 3, rows[2].Rank)
}
