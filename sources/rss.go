package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"emarknews/types"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// feedState is what the adapter remembers about one feed between cycles.
type feedState struct {
	etag         string
	lastModified string
	bodyHash     [sha256.Size]byte
	articles     []types.Article
}

// RSSAdapter fetches RSS/Atom feeds and skips parsing when the feed has
// not changed, either by upstream validators or by identical body.
type RSSAdapter struct {
	fetcher *Fetcher
	logger  *zap.Logger

	mu    sync.Mutex
	feeds map[string]*feedState

	parses atomic.Int64
}

func NewRSSAdapter(fetcher *Fetcher, logger *zap.Logger) *RSSAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RSSAdapter{fetcher: fetcher, logger: logger, feeds: make(map[string]*feedState)}
}

func (a *RSSAdapter) Fetch(ctx context.Context, d types.Descriptor) []types.Article {
	state := a.state(d.URL)

	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if state != nil {
		if state.etag != "" {
			header.Set("If-None-Match", state.etag)
		}
		if state.lastModified != "" {
			header.Set("If-Modified-Since", state.lastModified)
		}
	}

	resp, err := a.fetcher.Get(ctx, d.URL, header)
	if err != nil {
		a.logger.Warn("failed to fetch feed", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}

	if resp.NotModified() {
		if state != nil {
			return types.CloneAll(state.articles)
		}
		return []types.Article{}
	}

	hash := sha256.Sum256(resp.Body)
	if state != nil && state.bodyHash == hash {
		a.remember(d.URL, resp, hash, state.articles)
		return types.CloneAll(state.articles)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	a.parses.Add(1)
	if err != nil {
		a.logger.Warn("failed to parse feed", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}

	articles := make([]types.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" || item.Title == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		articles = append(articles, newArticle(d, item.Title, item.Link, summary, publishedAt))
	}

	a.remember(d.URL, resp, hash, articles)
	return types.CloneAll(articles)
}

func (a *RSSAdapter) state(feedURL string) *feedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feeds[feedURL]
}

func (a *RSSAdapter) remember(feedURL string, resp *Response, hash [sha256.Size]byte, articles []types.Article) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feeds[feedURL] = &feedState{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		bodyHash:     hash,
		articles:     articles,
	}
}
