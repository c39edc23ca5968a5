package enrich

import "context"

// TextService is the external translation and summarization boundary.
// Implementations never return errors; failures come back as
// Success=false so callers can keep the original content.
type TextService interface {
	Translate(ctx context.Context, text, locale string) TranslateResult
	Summarize(ctx context.Context, text string, opts SummaryOptions) SummaryResult
}

type TranslateResult struct {
	Success bool
	Text    string
}

type SummaryOptions struct {
	Detailed  bool
	MaxPoints int
}

type SummaryResult struct {
	Success bool
	Points  []string
}
