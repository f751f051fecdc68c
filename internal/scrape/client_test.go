package scrape

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noWait struct{}

func (noWait) Wait(ctx context.Context) error { return nil }

func newTestClient(ts *httptest.Server) *LiveClient {
	c := NewLiveClient("test-token", "actor-1")
	c.httpClient = ts.Client()
	c.baseURL = ts.URL
	c.limiter = noWait{}
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, err := c.SearchByKeywords(context.Background(), []string{"golang"}, 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestSearchByKeywordsMapsItems(t *testing.T) {
	var gotInput actorInput
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotInput)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "t1",
				"url": "https://twitter.com/dev/status/t1",
				"text": "shipping pulseboard",
				"likeCount": 10,
				"retweetCount": 2,
				"replyCount": 1,
				"quoteCount": 0,
				"bookmarkCount": 3,
				"createdAt": "2025-06-01T10:00:00Z",
				"author": {
					"id": "u1",
					"userName": "dev",
					"name": "Dev",
					"profilePicture": "https://example.com/p.png",
					"followers": 1200,
					"isVerified": false,
					"isBlueVerified": true
				}
			},
			{"id": "", "text": "malformed, dropped"}
		]`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	posts, err := c.SearchByKeywords(context.Background(), []string{"golang", "raft"}, 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"golang lang:en", "raft lang:en"}, gotInput.SearchTerms)
	assert.Equal(t, 50, gotInput.MaxItems)
	assert.Equal(t, "Latest", gotInput.Sort)

	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "t1", p.ID)
	assert.Equal(t, "u1", p.Author.ExternalID)
	assert.Equal(t, "dev", p.Author.Handle)
	assert.True(t, p.Author.BlueVerified)
	assert.Equal(t, 10, p.Engagement.Likes)
	assert.Equal(t, 3, p.Engagement.Bookmarks)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), p.PostedAt)
}

func TestFetchByURLsEmptyInput(t *testing.T) {
	c := NewLiveClient("tok", "actor-1")
	posts, err := c.FetchByURLs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSearchByKeywordsNoKeywords(t *testing.T) {
	c := NewLiveClient("tok", "actor-1")
	_, err := c.SearchByKeywords(context.Background(), nil, 10)
	assert.Error(t, err)
}

func TestParsePostedAtFormats(t *testing.T) {
	iso := parsePostedAt("2025-06-01T10:00:00Z")
	assert.Equal(t, 2025, iso.Year())

	legacy := parsePostedAt("Sun Jun 01 10:00:00 +0000 2025")
	assert.Equal(t, time.Month(6), legacy.Month())

	assert.True(t, parsePostedAt("garbage").IsZero())
}
