// Package scrape talks to the content-retrieval provider. The reconciliation
// engine only depends on the Fetcher interface; the live Apify-backed client
// and the replay generator are chosen once at startup and injected.
package scrape

import (
	"context"

	"pulseboard/internal/model"
)

// Fetcher retrieves raw posts from the content provider.
type Fetcher interface {
	// SearchByKeywords returns up to maxItems recent posts matching any of
	// the keywords.
	SearchByKeywords(ctx context.Context, keywords []string, maxItems int) ([]model.RawPost, error)
	// FetchByURLs looks up specific posts by their canonical URLs.
	FetchByURLs(ctx context.Context, urls []string) ([]model.RawPost, error)
}
