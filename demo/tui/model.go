package tui

import (
	"fmt"

	"emarknews/types"

	tea "github.com/charmbracelet/bubbletea"
)

// Model is the viewer state. All data is polled from the server.
type Model struct {
	Client *NewsClient

	Categories []string
	Selected   int
	Cursor     int
	Fast       bool

	Status  *types.StatusResponse
	Entry   *types.CacheEntry
	Loading bool
	Err     error

	Connected bool
}

func NewModel(baseURL string) Model {
	return Model{Client: NewNewsClient(baseURL)}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(pollStatus(m.Client), tickCmd())
}

// Category returns the selected category, or "" before the first status.
func (m Model) Category() string {
	if m.Selected < 0 || m.Selected >= len(m.Categories) {
		return ""
	}
	return m.Categories[m.Selected]
}

// categoryStatus returns the status row of the selected category.
func (m Model) categoryStatus() (types.CategoryStatus, bool) {
	if m.Status == nil {
		return types.CategoryStatus{}, false
	}
	for _, cs := range m.Status.Categories {
		if cs.Category == m.Category() {
			return cs, true
		}
	}
	return types.CategoryStatus{}, false
}

// Run starts the viewer against the server at baseURL.
func Run(baseURL string) error {
	if _, err := tea.NewProgram(NewModel(baseURL), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}
