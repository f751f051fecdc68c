package recon

import "sync"

// runGuard enforces at most one in-flight run per project. The new-vs-existing
// branch and the aggregate upsert are not safe under interleaving for the
// same project, so a second trigger is rejected rather than queued.
type runGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{inFlight: make(map[string]struct{})}
}

// acquire reports whether the caller now holds the project. False means a run
// is already in flight.
func (g *runGuard) acquire(projectID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inFlight[projectID]; held {
		return false
	}
	g.inFlight[projectID] = struct{}{}
	return true
}

func (g *runGuard) release(projectID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, projectID)
}
