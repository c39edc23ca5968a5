package tui

import (
	"time"

	"emarknews/types"
)

// StatusUpdateMsg carries a polled status report.
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// NewsLoadedMsg carries the articles of one category.
type NewsLoadedMsg struct {
	Category string
	Entry    *types.CacheEntry
	Err      error
}

// TickMsg triggers the next poll.
type TickMsg struct {
	Time time.Time
}
