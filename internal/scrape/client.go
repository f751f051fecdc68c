package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"pulseboard/internal/model"
)

// LiveClient runs the tweet-scraper actor through the Apify API and maps its
// dataset items to RawPost.
type LiveClient struct {
	baseURL     string
	token       string
	actorID     string
	httpClient  *http.Client
	limiter     waiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewLiveClient(token, actorID string) *LiveClient {
	return &LiveClient{
		baseURL:     "https://api.apify.com/v2",
		token:       token,
		actorID:     actorID,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("APIFY_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("APIFY_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// actorInput mirrors the Tweet Scraper V2 input schema. Keyword search and
// URL lookup use disjoint field sets.
type actorInput struct {
	SearchTerms   []string `json:"searchTerms,omitempty"`
	URLs          []string `json:"urls,omitempty"`
	MaxItems      int      `json:"maxItems"`
	Sort          string   `json:"sort,omitempty"`
	TweetLanguage string   `json:"tweetLanguage,omitempty"`
}

type actorTweet struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	RetweetCount  int    `json:"retweetCount"`
	ReplyCount    int    `json:"replyCount"`
	LikeCount     int    `json:"likeCount"`
	QuoteCount    int    `json:"quoteCount"`
	BookmarkCount int    `json:"bookmarkCount"`
	CreatedAt     string `json:"createdAt"`
	Author        struct {
		ID             string `json:"id"`
		UserName       string `json:"userName"`
		Name           string `json:"name"`
		ProfilePicture string `json:"profilePicture"`
		Followers      int    `json:"followers"`
		IsVerified     bool   `json:"isVerified"`
		IsBlueVerified bool   `json:"isBlueVerified"`
	} `json:"author"`
}

func (c *LiveClient) SearchByKeywords(ctx context.Context, keywords []string, maxItems int) ([]model.RawPost, error) {
	if len(keywords) == 0 {
		return nil, errors.New("no keywords")
	}
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		terms = append(terms, kw+" lang:en")
	}
	in := actorInput{
		SearchTerms:   terms,
		MaxItems:      clamp(maxItems, 1, 100),
		Sort:          "Latest",
		TweetLanguage: "en",
	}
	return c.runActor(ctx, in)
}

func (c *LiveClient) FetchByURLs(ctx context.Context, urls []string) ([]model.RawPost, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	in := actorInput{URLs: urls, MaxItems: len(urls)}
	return c.runActor(ctx, in)
}

// runActor invokes the actor synchronously and returns its dataset items.
func (c *LiveClient) runActor(ctx context.Context, in actorInput) ([]model.RawPost, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(c.actorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("apify status %d", resp.StatusCode)
	}
	var items []actorTweet
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	out := make([]model.RawPost, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		out = append(out, model.RawPost{
			ID:   it.ID,
			URL:  it.URL,
			Text: it.Text,
			Author: model.RawAuthor{
				ExternalID:   it.Author.ID,
				Handle:       it.Author.UserName,
				Name:         it.Author.Name,
				AvatarURL:    it.Author.ProfilePicture,
				Followers:    it.Author.Followers,
				Verified:     it.Author.IsVerified,
				BlueVerified: it.Author.IsBlueVerified,
			},
			Engagement: model.Engagement{
				Likes:     it.LikeCount,
				Reposts:   it.RetweetCount,
				Replies:   it.ReplyCount,
				Quotes:    it.QuoteCount,
				Bookmarks: it.BookmarkCount,
			},
			PostedAt: parsePostedAt(it.CreatedAt),
		})
	}
	return out, nil
}

// parsePostedAt accepts both ISO-8601 and the legacy Twitter timestamp the
// actor emits for some runs.
func parsePostedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, time.RubyDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (c *LiveClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				// jitter +/-20%
				jitter := time.Duration(float64(wait) * 0.2)
				if jitter > 0 {
					wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
