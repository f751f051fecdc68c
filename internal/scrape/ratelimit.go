package scrape

import (
	"context"
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// waiter is the slice of rate.Limiter the client needs; tests substitute a
// no-op implementation.
type waiter interface {
	Wait(ctx context.Context) error
}

// newDefaultLimiter creates a rate limiter using env overrides if present.
// Actor runs are slow and billed per item, so the defaults are conservative.
func newDefaultLimiter() *rate.Limiter {
	rps := 0.5
	burst := 2
	if v := os.Getenv("APIFY_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("APIFY_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
