package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"emarknews/types"

	"go.uber.org/zap"
)

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// NewsAPIAdapter reads NewsAPI-style JSON headline endpoints.
type NewsAPIAdapter struct {
	fetcher *Fetcher
	apiKey  string
	logger  *zap.Logger
}

func NewNewsAPIAdapter(fetcher *Fetcher, apiKey string, logger *zap.Logger) *NewsAPIAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsAPIAdapter{fetcher: fetcher, apiKey: apiKey, logger: logger}
}

func (a *NewsAPIAdapter) Fetch(ctx context.Context, d types.Descriptor) []types.Article {
	if a.apiKey == "" {
		a.logger.Debug("skipping newsapi source without key", zap.String("source", d.Name))
		return []types.Article{}
	}

	endpoint := d.URL
	if d.Query != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + d.Query
	}

	header := http.Header{}
	header.Set("X-Api-Key", a.apiKey)
	header.Set("Accept", "application/json")

	resp, err := a.fetcher.Get(ctx, endpoint, header)
	if err != nil {
		a.logger.Warn("failed to fetch newsapi source", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}

	articles, err := parseNewsAPI(d, resp.Body)
	if err != nil {
		a.logger.Warn("failed to decode newsapi response", zap.String("source", d.Name), zap.Error(err))
		return []types.Article{}
	}
	return articles
}

func parseNewsAPI(d types.Descriptor, body []byte) ([]types.Article, error) {
	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %s: %s %s", payload.Status, payload.Code, payload.Message)
	}

	out := make([]types.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.URL == "" || item.Title == "" || item.Title == "[Removed]" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, item.PublishedAt)
		a := newArticle(d, item.Title, item.URL, item.Description, published)
		if item.Source.Name != "" {
			a.SourceName = item.Source.Name
		}
		out = append(out, a)
	}
	return out, nil
}
