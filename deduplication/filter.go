package deduplication

import (
	"time"

	"emarknews/config"
	"emarknews/types"
)

// maxFutureSkew tolerates publishers whose clocks run slightly ahead.
const maxFutureSkew = 10 * time.Minute

// Filter drops duplicate and out-of-window articles from a batch.
// It holds no state between calls.
type Filter struct {
	Window time.Duration
	Now    func() time.Time
}

// NewFilter returns a filter using the canonical recency window.
func NewFilter() *Filter {
	return &Filter{Window: config.RecencyWindow, Now: time.Now}
}

// Apply returns the surviving articles in input order. Survivors are copies
// carrying ageMinutes and, when missing, a title-signature cluster id.
func (f *Filter) Apply(batch []types.Article) []types.Article {
	now := f.Now()
	oldest := now.Add(-f.Window)
	newest := now.Add(maxFutureSkew)

	seen := make(map[string]struct{}, len(batch))
	out := make([]types.Article, 0, len(batch))
	for i := range batch {
		a := &batch[i]
		if !a.HasTimestamp() || a.PublishedAt.Before(oldest) || a.PublishedAt.After(newest) {
			continue
		}

		hash := ContentHash(a)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		kept := a.Clone()
		kept.AgeMinutes = ageMinutes(now, kept.PublishedAt)
		if kept.ClusterID == "" {
			kept.ClusterID = TitleSignature(kept.Title)
		}
		out = append(out, kept)
	}
	return out
}

func ageMinutes(now, published time.Time) float64 {
	age := now.Sub(published).Minutes()
	if age < 0 {
		return 0
	}
	return age
}
