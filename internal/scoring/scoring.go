// Package scoring converts pairs of engagement snapshots into clamped deltas
// and weighted points. Pure functions, no I/O.
package scoring

import (
	"time"

	"pulseboard/internal/model"
)

// Point weights per engagement counter.
const (
	WeightLikes     = 1.0
	WeightReposts   = 3.0
	WeightReplies   = 2.0
	WeightQuotes    = 3.0
	WeightBookmarks = 1.5
)

// TrackingWindow is how long after publication a post keeps accruing points.
// RefreshWindow bounds which tracked posts are worth re-fetching by URL when
// the keyword search misses them; posts nearing expiry are left alone.
const (
	TrackingWindow = 24 * time.Hour
	RefreshWindow  = 12 * time.Hour
)

// Breakdown is the per-counter point contribution of one delta.
type Breakdown struct {
	FromLikes     float64
	FromReposts   float64
	FromReplies   float64
	FromQuotes    float64
	FromBookmarks float64
	Total         float64
}

// Delta returns per-counter growth between two snapshots. Negative raw
// differences (a provider-reported counter went down) clamp to zero; the
// scoring model never subtracts points.
func Delta(current, previous model.Engagement) model.Engagement {
	return model.Engagement{
		Likes:     clampNonNegative(current.Likes - previous.Likes),
		Reposts:   clampNonNegative(current.Reposts - previous.Reposts),
		Replies:   clampNonNegative(current.Replies - previous.Replies),
		Quotes:    clampNonNegative(current.Quotes - previous.Quotes),
		Bookmarks: clampNonNegative(current.Bookmarks - previous.Bookmarks),
	}
}

// Points applies the weight table to a delta.
func Points(d model.Engagement) Breakdown {
	b := Breakdown{
		FromLikes:     float64(d.Likes) * WeightLikes,
		FromReposts:   float64(d.Reposts) * WeightReposts,
		FromReplies:   float64(d.Replies) * WeightReplies,
		FromQuotes:    float64(d.Quotes) * WeightQuotes,
		FromBookmarks: float64(d.Bookmarks) * WeightBookmarks,
	}
	b.Total = b.FromLikes + b.FromReposts + b.FromReplies + b.FromQuotes + b.FromBookmarks
	return b
}

// WithinTrackingWindow reports whether a post published at postedAt is still
// accruing points at now. Exactly TrackingWindow old is still active.
func WithinTrackingWindow(postedAt, now time.Time) bool {
	return now.Sub(postedAt) <= TrackingWindow
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
