package tui

import (
	"fmt"
	"strings"

	"emarknews/types"
)

const maxLogLines = 5

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(TextTitle))
	b.WriteString("\n")

	if !m.Connected {
		b.WriteString(ErrorStyle.Render(TextDisconnected))
		if m.Err != nil {
			b.WriteString("\n" + InfoStyle.Render(m.Err.Error()))
		}
		b.WriteString("\n\n" + InfoStyle.Render(TextFooter))
		return b.String()
	}

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.renderPhase())
	b.WriteString("\n\n")
	b.WriteString(m.renderArticles())
	b.WriteString("\n")

	if cs, ok := m.categoryStatus(); ok && len(cs.Logs) > 0 {
		b.WriteString(InfoStyle.Render("Recent activity:"))
		b.WriteString("\n")
		logs := cs.Logs
		if len(logs) > maxLogLines {
			logs = logs[len(logs)-maxLogLines:]
		}
		for _, l := range logs {
			b.WriteString(InfoStyle.Render(fmt.Sprintf("  %s %s", l.Timestamp.Format("15:04:05"), l.Message)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString(ErrorStyle.Render(m.Err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render(TextFooter))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.Categories))
	for i, name := range m.Categories {
		if i == m.Selected {
			tabs[i] = ActiveTabStyle.Render(name)
		} else {
			tabs[i] = TabStyle.Render(name)
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) renderPhase() string {
	cs, ok := m.categoryStatus()
	if !ok {
		return InfoStyle.Render(TextLoading)
	}
	mode := "full"
	if m.Fast {
		mode = "fast"
	}
	line := fmt.Sprintf("phase %s | seq %d | late %d | view %s", cs.Phase, cs.Sequence, cs.LateCount, mode)
	switch cs.Phase {
	case types.PhaseFullReady:
		return StatusStyle.Render(line)
	case types.PhaseIdle:
		return InfoStyle.Render(line)
	default:
		return WarningStyle.Render(line)
	}
}

func (m Model) renderArticles() string {
	if m.Entry == nil {
		return InfoStyle.Render(TextLoading)
	}
	if !m.Entry.Success {
		return ErrorStyle.Render(m.Entry.Error)
	}
	if len(m.Entry.Data) == 0 {
		return InfoStyle.Render(TextEmpty)
	}

	var b strings.Builder
	header := fmt.Sprintf("%d articles", m.Entry.Total)
	if m.Entry.Partial {
		header += " (partial)"
	}
	if m.Entry.Stale {
		header += " (stale)"
	}
	b.WriteString(InfoStyle.Render(header))
	b.WriteString("\n")

	for i, a := range m.Entry.Data {
		line := fmt.Sprintf("%s %s  %s", stars(a.Rating), displayTitle(a), InfoStyle.Render(a.Domain))
		if len(a.Tags) > 0 {
			line += " " + WarningStyle.Render("["+strings.Join(a.Tags, ",")+"]")
		}
		if i == m.Cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	sel := m.Entry.Data[min(m.Cursor, len(m.Entry.Data)-1)]
	return b.String() + "\n" + BoxStyle.Render(renderDetail(sel))
}

func renderDetail(a types.Article) string {
	var b strings.Builder
	b.WriteString(SelectedStyle.Render(displayTitle(a)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(a.Link))
	b.WriteString("\n")
	if desc := displayDescription(a); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}
	for _, p := range a.SummaryPoints {
		b.WriteString("• " + p + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayTitle(a types.Article) string {
	if a.TranslatedTitle != "" {
		return a.TranslatedTitle
	}
	return a.Title
}

func displayDescription(a types.Article) string {
	if a.TranslatedDescription != "" {
		return a.TranslatedDescription
	}
	return a.Description
}

// stars renders a 1 to 5 rating in half steps.
func stars(rating float64) string {
	full := int(rating)
	half := rating-float64(full) >= 0.5
	s := strings.Repeat("★", full)
	if half {
		s += "½"
	}
	return fmt.Sprintf("%-6s", s)
}
