package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const pollInterval = 2 * time.Second

func pollStatus(client *NewsClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

func loadNews(client *NewsClient, category string, fast bool) tea.Cmd {
	return func() tea.Msg {
		entry, err := client.GetNews(category, fast)
		return NewsLoadedMsg{Category: category, Entry: entry, Err: err}
	}
}

func refreshNews(client *NewsClient, category string) tea.Cmd {
	return func() tea.Msg {
		entry, err := client.Refresh(category)
		return NewsLoadedMsg{Category: category, Entry: entry, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
