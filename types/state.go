package types

import "time"

// Phase represents the per-category refresh state machine
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhasePhase1Race   Phase = "phase1_race"
	PhasePartialReady Phase = "partial_ready"
	PhasePhase2Race   Phase = "phase2_race"
	PhaseFullReady    Phase = "full_ready"
)

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// CategoryStatus is one row of the status report.
type CategoryStatus struct {
	Category     string     `json:"category"`
	Phase        Phase      `json:"phase"`
	CycleID      string     `json:"cycle_id,omitempty"`
	Sequence     uint64     `json:"sequence"`
	StartedAt    time.Time  `json:"started_at,omitempty"`
	ArticleCount int        `json:"article_count"`
	LateCount    int        `json:"late_count"`
	Logs         []LogEntry `json:"logs"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	Categories []CategoryStatus `json:"categories"`
}

// RefreshEvent is published after a full cache write.
type RefreshEvent struct {
	CycleID   string    `json:"cycle_id"`
	Category  string    `json:"category"`
	Sequence  uint64    `json:"sequence"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
