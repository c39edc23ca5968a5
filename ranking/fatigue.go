package ranking

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fatigue remembers when each content cluster was last surfaced.
type Fatigue struct {
	cache *lru.Cache[string, time.Time]
}

func NewFatigue(capacity int) (*Fatigue, error) {
	c, err := lru.New[string, time.Time](capacity)
	if err != nil {
		return nil, err
	}
	return &Fatigue{cache: c}, nil
}

// Stamp records that cluster was shown at t.
func (f *Fatigue) Stamp(cluster string, t time.Time) {
	if cluster != "" {
		f.cache.Add(cluster, t)
	}
}

// LastSurfaced returns when cluster was last stamped. It does not count
// as a use for eviction purposes.
func (f *Fatigue) LastSurfaced(cluster string) (time.Time, bool) {
	if cluster == "" {
		return time.Time{}, false
	}
	return f.cache.Peek(cluster)
}

func (f *Fatigue) Resize(capacity int) {
	f.cache.Resize(capacity)
}

func (f *Fatigue) Len() int { return f.cache.Len() }

func (c *Config) fatiguePenalty(f *Fatigue, cluster string, now time.Time) float64 {
	last, ok := f.LastSurfaced(cluster)
	if !ok {
		return 0
	}
	switch since := now.Sub(last); {
	case since < c.FatigueShort:
		return c.FatigueHigh
	case since < c.FatigueMedium:
		return c.FatigueLow
	}
	return 0
}
