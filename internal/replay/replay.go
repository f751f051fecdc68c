// Package replay is a synthetic content provider for development and tests.
// It generates plausible posts for keyword searches and, unlike a one-shot
// fixture, remembers what it served so URL re-fetches return grown counters
// and exercise the update path end to end.
package replay

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"pulseboard/internal/model"
)

var sampleAuthors = []model.RawAuthor{
	{ExternalID: "1234567890", Handle: "crypto_whale", Name: "Crypto Whale", AvatarURL: "https://ui-avatars.com/api/?name=Crypto+Whale", Followers: 15000, BlueVerified: true},
	{ExternalID: "2345678901", Handle: "blockchain_dev", Name: "BlockchainDev", AvatarURL: "https://ui-avatars.com/api/?name=BlockchainDev", Followers: 8500, Verified: true},
	{ExternalID: "3456789012", Handle: "defi_trader", Name: "DeFi Trader", AvatarURL: "https://ui-avatars.com/api/?name=DeFi+Trader", Followers: 25000},
	{ExternalID: "4567890123", Handle: "web3_builder", Name: "Web3 Builder", AvatarURL: "https://ui-avatars.com/api/?name=Web3+Builder", Followers: 12000, BlueVerified: true},
	{ExternalID: "5678901234", Handle: "nft_collector", Name: "NFT Collector", AvatarURL: "https://ui-avatars.com/api/?name=NFT+Collector", Followers: 5000},
}

var sampleTemplates = []string{
	"Just discovered %s! This is going to be huge",
	"%s is absolutely crushing it today, the momentum is real",
	"Why is nobody talking about %s?",
	"Been researching %s all week, here is what I found",
	"The %s community is the most supportive one out there",
	"Just bought more %s, DCA is the way",
	"The %s ecosystem is growing faster than I expected",
	"Hot take: %s will 10x from here",
	"The %s roadmap is insane, next quarter will be wild",
}

// growthMultiplier approximates organic counter growth between two scrape
// runs of the same post.
const growthMultiplier = 1.2

// Client implements scrape.Fetcher with generated data.
type Client struct {
	mu     sync.Mutex
	rng    *rand.Rand
	served map[string]model.RawPost // by URL
	now    func() time.Time
	seq    int
}

func New(seed int64) *Client {
	return &Client{
		rng:    rand.New(rand.NewSource(seed)),
		served: make(map[string]model.RawPost),
		now:    time.Now,
	}
}

func (c *Client) SearchByKeywords(ctx context.Context, keywords []string, maxItems int) ([]model.RawPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 20
	if maxItems > 0 && maxItems < n {
		n = maxItems
	}
	out := make([]model.RawPost, 0, n)
	now := c.now().UTC()
	for i := 0; i < n; i++ {
		author := sampleAuthors[c.rng.Intn(len(sampleAuthors))]
		c.seq++
		id := fmt.Sprintf("%d%04d", now.UnixNano()/1e6, c.seq)
		kw := "crypto"
		if len(keywords) > 0 {
			kw = keywords[c.rng.Intn(len(keywords))]
		}
		likes := 5 + c.rng.Intn(496)
		p := model.RawPost{
			ID:     id,
			URL:    fmt.Sprintf("https://twitter.com/%s/status/%s", author.Handle, id),
			Text:   fmt.Sprintf(sampleTemplates[c.rng.Intn(len(sampleTemplates))], kw),
			Author: author,
			Engagement: model.Engagement{
				Likes:     likes,
				Reposts:   likes * 3 / 10,
				Replies:   likes / 5,
				Quotes:    likes / 10,
				Bookmarks: likes * 3 / 20,
			},
			// posted some time within the last 24h
			PostedAt: now.Add(-time.Duration(c.rng.Int63n(int64(24 * time.Hour)))),
		}
		c.served[p.URL] = p
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) FetchByURLs(ctx context.Context, urls []string) ([]model.RawPost, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.RawPost, 0, len(urls))
	for _, u := range urls {
		p, ok := c.served[strings.TrimSpace(u)]
		if !ok {
			continue
		}
		p.Engagement = c.grow(p.Engagement)
		c.served[p.URL] = p
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) grow(e model.Engagement) model.Engagement {
	f := func(v int) int {
		// multiplier with a little jitter, never shrinking
		m := growthMultiplier + c.rng.Float64()*0.2
		g := int(float64(v) * m)
		if g < v {
			g = v
		}
		return g
	}
	return model.Engagement{
		Likes:     f(e.Likes),
		Reposts:   f(e.Reposts),
		Replies:   f(e.Replies),
		Quotes:    f(e.Quotes),
		Bookmarks: f(e.Bookmarks),
	}
}
