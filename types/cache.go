package types

import (
	"fmt"
	"time"
)

// Tier names one of the two cache slots kept per category.
type Tier string

const (
	TierFast Tier = "fast"
	TierFull Tier = "full"
)

// CacheKey builds the storage key for a category tier.
func CacheKey(category string, tier Tier) string {
	return fmt.Sprintf("news:%s:%s", category, tier)
}

// CacheEntry is the persisted category document and also the result
// shape every public entrypoint returns.
type CacheEntry struct {
	Success   bool      `json:"success"`
	Data      []Article `json:"data"`
	Category  string    `json:"category"`
	Total     int       `json:"total"`
	Partial   bool      `json:"partial"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`
	Stale     bool      `json:"stale,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewEntry wraps a ranked batch. A nil batch is stored as an empty list.
func NewEntry(category string, data []Article, partial bool, seq uint64, now time.Time) CacheEntry {
	if data == nil {
		data = []Article{}
	}
	return CacheEntry{
		Success:   true,
		Data:      data,
		Category:  category,
		Total:     len(data),
		Partial:   partial,
		Timestamp: now.UTC(),
		Sequence:  seq,
	}
}

// Failure builds an unsuccessful result.
func Failure(category string, err string) CacheEntry {
	return CacheEntry{
		Success:  false,
		Data:     []Article{},
		Category: category,
		Error:    err,
	}
}
