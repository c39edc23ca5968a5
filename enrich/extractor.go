package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	extractorTimeout = 6 * time.Second
	maxExtractRunes  = 2000
)

// Extractor pulls readable body text for articles whose feed carried
// no description.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type ReadabilityExtractor struct {
	timeout time.Duration
}

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{timeout: extractorTimeout}
}

// Extract fetches url and returns the article text, preferring the page
// excerpt when the body is empty.
func (r *ReadabilityExtractor) Extract(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", errors.New("article URL is empty")
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		article, err := readability.FromURL(url, r.timeout)
		if err != nil {
			done <- result{err: fmt.Errorf("readability extraction failed: %w", err)}
			return
		}
		text := strings.TrimSpace(article.TextContent)
		if text == "" {
			text = strings.TrimSpace(article.Excerpt)
		}
		done <- result{text: text}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			return "", res.err
		}
		return truncate(res.text, maxExtractRunes), nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
