package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case NewsLoadedMsg:
		return m.handleNews(msg)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "right", "l", "tab":
		return m.selectCategory(m.Selected + 1)
	case "left", "h", "shift+tab":
		return m.selectCategory(m.Selected - 1)
	case "down", "j":
		if m.Entry != nil && m.Cursor < len(m.Entry.Data)-1 {
			m.Cursor++
		}
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "f":
		m.Fast = !m.Fast
		return m.reload()
	case "r":
		if cat := m.Category(); cat != "" {
			m.Loading = true
			return m, refreshNews(m.Client, cat)
		}
	}
	return m, nil
}

func (m Model) selectCategory(i int) (tea.Model, tea.Cmd) {
	n := len(m.Categories)
	if n == 0 {
		return m, nil
	}
	m.Selected = ((i % n) + n) % n
	m.Cursor = 0
	m.Entry = nil
	return m.reload()
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	cat := m.Category()
	if cat == "" {
		return m, nil
	}
	m.Loading = true
	return m, loadNews(m.Client, cat, m.Fast)
}

func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	m.Status = msg.Status

	first := len(m.Categories) == 0
	cats := make([]string, 0, len(msg.Status.Categories))
	for _, cs := range msg.Status.Categories {
		cats = append(cats, cs.Category)
	}
	m.Categories = cats
	if m.Selected >= len(m.Categories) {
		m.Selected = 0
	}
	if first && len(m.Categories) > 0 {
		return m.reload()
	}
	return m, nil
}

func (m Model) handleNews(msg NewsLoadedMsg) (tea.Model, tea.Cmd) {
	// A response for a category the user already left.
	if msg.Category != m.Category() {
		return m, nil
	}
	m.Loading = false
	if msg.Err != nil {
		m.Err = msg.Err
		return m, nil
	}
	m.Err = nil
	m.Entry = msg.Entry
	if m.Cursor >= len(msg.Entry.Data) {
		m.Cursor = 0
	}
	return m, nil
}
