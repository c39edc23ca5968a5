package config

import "time"

// Phase timing
const (
	// Phase1Deadline bounds how long a caller can wait on a cache miss
	Phase1Deadline = 600 * time.Millisecond

	// Phase2Deadline bounds the background race
	Phase2Deadline = 1500 * time.Millisecond

	// MaxInFlight caps concurrent source fetches across all cycles
	MaxInFlight = 32
)

// Cache policy
const (
	// FastTTL is how long a phase-1 partial result stays fresh
	FastTTL = 60 * time.Second

	// FullTTL is how long a full result stays fresh
	FullTTL = 10 * time.Minute

	// StaleWindow extends a full entry past FullTTL for stale-while-revalidate
	StaleWindow = 30 * time.Minute

	// MemoryCacheEntries caps the in-process fallback map
	MemoryCacheEntries = 512

	// CacheKeyPrefix scopes every key this service writes
	CacheKeyPrefix = "news:"

	// CacheWriteTimeout bounds a background partial-result write
	CacheWriteTimeout = 2 * time.Second
)

// Filtering
const (
	// RecencyWindow is the single canonical age limit for articles
	RecencyWindow = 14 * 24 * time.Hour
)

// Source fetching
const (
	SourceRequestTimeout = 4 * time.Second
	SourceMaxRetries     = 2
	SourceCooldown       = 15 * time.Minute
	SourceUserAgent      = "emarknews/2.0 (+https://emarknews.com)"
)

// Enrichment
const (
	EnrichConcurrency = 4
	EnrichCallTimeout = 8 * time.Second
	EnrichMaxAttempts = 3
	SummaryMaxPoints  = 3
)
