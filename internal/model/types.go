package model

import "time"

// Project statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Project is a tracked keyword set. Engagement growth on posts matching the
// keywords earns their authors points on this project's leaderboard.
type Project struct {
	ID            string
	Name          string
	Keywords      []string
	CooldownHours int
	Status        string
	LastRunAt     time.Time // zero until the first run
	NextRunAt     time.Time // zero until the first run
	CreatedAt     time.Time
}

// Engagement is one snapshot of a post's five public counters.
type Engagement struct {
	Likes     int
	Reposts   int
	Replies   int
	Quotes    int
	Bookmarks int
}

// User is an internal identity for a post author, keyed by the provider's
// immutable external id. Profile fields are refreshed on every sighting.
type User struct {
	ID           string
	ExternalID   string
	Handle       string
	Name         string
	AvatarURL    string
	Followers    int
	Verified     bool
	BlueVerified bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RawAuthor is author metadata as returned by the content provider.
type RawAuthor struct {
	ExternalID   string
	Handle       string
	Name         string
	AvatarURL    string
	Followers    int
	Verified     bool
	BlueVerified bool
}

// RawPost is one post as returned by the content provider.
type RawPost struct {
	ID         string
	URL        string
	Text       string
	Author     RawAuthor
	Engagement Engagement
	PostedAt   time.Time
}

// Post is a tracked content item, scoped to a project. The same external post
// can be tracked independently by several projects.
type Post struct {
	ID            string // internal row id
	ExternalID    string
	ProjectID     string
	UserID        string
	Text          string
	URL           string
	PostedAt      time.Time
	Current       Engagement
	Previous      Engagement // Current as of the preceding persisted update
	Active        bool
	LastUpdatedAt time.Time
}

// UserProjectScore is the materialized running total for one (user, project).
type UserProjectScore struct {
	UserID           string
	ProjectID        string
	TotalScore       float64
	PostCount        int
	LastPointsEarned float64
	LastEarnedAt     time.Time
	UpdatedAt        time.Time
}

// LeaderboardRow joins a score aggregate with its user's profile.
type LeaderboardRow struct {
	Rank         int
	UserID       string
	Handle       string
	Name         string
	AvatarURL    string
	Followers    int
	Verified     bool
	BlueVerified bool
	TotalScore   float64
	PostCount    int
	LastEarnedAt time.Time
}

// RunSummary reports one reconciliation run.
type RunSummary struct {
	ProjectID     string
	RunID         string
	Scraped       int // candidates processed, both fetch sources combined
	NewPosts      int
	UpdatedPosts  int
	Failed        int // candidates skipped due to per-item errors
	PointsAwarded float64
}
