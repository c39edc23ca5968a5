package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"emarknews/types"
)

const maxLogs = 50

type categoryState struct {
	phase        types.Phase
	cycleID      string
	sequence     uint64
	startedAt    time.Time
	articleCount int
	logs         []types.LogEntry
}

// Manager tracks the phase and recent log lines of every category.
type Manager struct {
	mu         sync.RWMutex
	categories map[string]*categoryState
	now        func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		categories: make(map[string]*categoryState),
		now:        time.Now,
	}
}

// must hold lock
func (m *Manager) get(category string) *categoryState {
	st, ok := m.categories[category]
	if !ok {
		st = &categoryState{phase: types.PhaseIdle, logs: make([]types.LogEntry, 0)}
		m.categories[category] = st
	}
	return st
}

// must hold lock
func (st *categoryState) addLog(at time.Time, message string) {
	st.logs = append(st.logs, types.LogEntry{Timestamp: at, Message: message})
	if len(st.logs) > maxLogs {
		st.logs = st.logs[len(st.logs)-maxLogs:]
	}
}

// Begin records the start of a cycle.
func (m *Manager) Begin(category, cycleID string, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.get(category)
	st.phase = types.PhasePhase1Race
	st.cycleID = cycleID
	st.sequence = seq
	st.startedAt = m.now()
	st.addLog(st.startedAt, fmt.Sprintf("cycle %s started (seq %d)", cycleID, seq))
}

// Advance moves category to phase if cycleID is still its current cycle.
// A newer cycle owns the state once it has begun.
func (m *Manager) Advance(category, cycleID string, phase types.Phase, articles int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.get(category)
	if st.cycleID != cycleID {
		return
	}
	st.phase = phase
	st.articleCount = articles
	st.addLog(m.now(), fmt.Sprintf("%s with %d articles", phase, articles))
}

func (m *Manager) AddLog(category, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.get(category).addLog(m.now(), message)
}

// Reset returns category to idle, keeping its logs.
func (m *Manager) Reset(category, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.get(category)
	st.phase = types.PhaseIdle
	st.addLog(m.now(), reason)
}

// Phase returns the current phase of category.
func (m *Manager) Phase(category string) types.Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.categories[category]; ok {
		return st.phase
	}
	return types.PhaseIdle
}

// Status returns a snapshot of every known category. lateCount reports
// the late-pool size per category.
func (m *Manager) Status(categories []string, lateCount func(string) int) types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := append([]string(nil), categories...)
	for name := range m.categories {
		if !contains(names, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	resp := types.StatusResponse{Categories: make([]types.CategoryStatus, 0, len(names))}
	for _, name := range names {
		row := types.CategoryStatus{Category: name, Phase: types.PhaseIdle, Logs: []types.LogEntry{}}
		if st, ok := m.categories[name]; ok {
			row.Phase = st.phase
			row.CycleID = st.cycleID
			row.Sequence = st.sequence
			row.StartedAt = st.startedAt
			row.ArticleCount = st.articleCount
			row.Logs = append([]types.LogEntry{}, st.logs...)
		}
		if lateCount != nil {
			row.LateCount = lateCount(name)
		}
		resp.Categories = append(resp.Categories, row)
	}
	return resp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
