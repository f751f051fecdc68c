package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/model"
)

func TestValidCooldown(t *testing.T) {
	for _, h := range []int{1, 6, 12, 24} {
		assert.True(t, ValidCooldown(h), "hours=%d", h)
	}
	for _, h := range []int{0, 2, 3, 48, -1} {
		assert.False(t, ValidCooldown(h), "hours=%d", h)
	}
}

func TestNextRun(t *testing.T) {
	last := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, last.Add(6*time.Hour), NextRun(last, 6))
}

type staticSource struct {
	due  []model.Project
	err  error
	seen int
}

func (s *staticSource) DueProjects(ctx context.Context, now time.Time) ([]model.Project, error) {
	s.seen++
	return s.due, s.err
}

func TestLoopRunsDueProjectsAndStopsOnCancel(t *testing.T) {
	src := &staticSource{due: []model.Project{{ID: "p1"}, {ID: "p2"}}}
	var mu sync.Mutex
	var ran []string
	run := func(ctx context.Context, id string) (model.RunSummary, error) {
		mu.Lock()
		ran = append(ran, id)
		mu.Unlock()
		if id == "p2" {
			return model.RunSummary{}, errors.New("boom") // logged, loop continues
		}
		return model.RunSummary{ProjectID: id}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Loop(ctx, src, run, time.Hour, zerolog.Nop()) }()

	// the immediate poll fires before any tick
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"p1", "p2"}, ran[:2])
}
