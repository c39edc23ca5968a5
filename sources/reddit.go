package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"emarknews/types"

	"go.uber.org/zap"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title                string  `json:"title"`
				URL                  string  `json:"url"`
				Permalink            string  `json:"permalink"`
				Selftext             string  `json:"selftext"`
				IsSelf               bool    `json:"is_self"`
				Stickied             bool    `json:"stickied"`
				Over18               bool    `json:"over_18"`
				CreatedUTC           float64 `json:"created_utc"`
				Score                int64   `json:"score"`
				NumComments          int64   `json:"num_comments"`
				SubredditSubscribers int64   `json:"subreddit_subscribers"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditAdapter reads subreddit listings. It is the main source of
// engagement and follower counts.
type RedditAdapter struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

func NewRedditAdapter(fetcher *Fetcher, logger *zap.Logger) *RedditAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedditAdapter{fetcher: fetcher, logger: logger}
}

func (a *RedditAdapter) Fetch(ctx context.Context, d types.Descriptor) []types.Article {
	header := http.Header{}
	header.Set("Accept", "application/json")

	resp, err := a.fetcher.Get(ctx, d.URL, header)
	if err != nil {
		a.logger.Warn("failed to fetch reddit source", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}

	articles, err := parseReddit(d, resp.Body)
	if err != nil {
		a.logger.Warn("failed to decode reddit listing", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}
	return articles
}

func parseReddit(d types.Descriptor, body []byte) ([]types.Article, error) {
	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}

	out := make([]types.Article, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || post.Over18 || post.Title == "" {
			continue
		}
		link := post.URL
		if post.IsSelf || link == "" {
			link = "https://www.reddit.com" + post.Permalink
		}

		var published time.Time
		if post.CreatedUTC > 0 {
			published = time.Unix(int64(post.CreatedUTC), 0)
		}

		a := newArticle(d, post.Title, link, post.Selftext, published)
		a.EngagementCount = post.Score + post.NumComments
		a.FollowerCount = post.SubredditSubscribers
		out = append(out, a)
	}
	return out, nil
}
