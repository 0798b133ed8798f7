package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Motphys/phys-bench/internal/results"
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	timeoutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" phys-bench │ %d runs │ %d passed │ refreshed %s ",
		m.summary.Overall.Total, m.summary.Overall.Passed,
		humanize.Time(m.lastRefresh))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if m.loadErr != nil {
		b.WriteString(failStyle.Render("error: " + m.loadErr.Error()))
		b.WriteString("\n")
	}

	var content string
	switch m.activeTab {
	case TabMatrix:
		content = m.renderMatrix()
	case TabRuns:
		content = m.renderRuns()
	case TabSummary:
		content = m.renderSummary()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(content))
	b.WriteString("\n")

	b.WriteString(statusBarStyle.Width(m.width).Render(" q quit │ tab switch │ j/k move │ r refresh "))
	return b.String()
}

func (m Model) renderTabs() string {
	names := []string{"Matrix", "Runs", "Summary"}
	parts := make([]string, len(names))
	for i, name := range names {
		if Tab(i) == m.activeTab {
			parts[i] = tabActiveStyle.Render(name)
		} else {
			parts[i] = tabInactiveStyle.Render(name)
		}
	}
	return " " + strings.Join(parts, "  ")
}

func (m Model) renderMatrix() string {
	if len(m.cells) == 0 {
		return dimmedStyle.Render("no results yet")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-22s", "object / dt"))
	for _, engine := range m.engines {
		b.WriteString(fmt.Sprintf("%-14s", engine))
	}
	b.WriteString("\n")

	visible := m.visibleRows()
	end := m.scroll + visible
	if end > len(m.cells) {
		end = len(m.cells)
	}
	for i := m.scroll; i < end; i++ {
		cell := m.cells[i]
		byEngine := make(map[string]results.Entry)
		for _, e := range m.groups[cell] {
			byEngine[e.Engine] = e
		}

		line := fmt.Sprintf("%-22s", fmt.Sprintf("%s / dt=%s", cell.Object, results.FormatDt(cell.Dt)))
		for _, engine := range m.engines {
			e, ok := byEngine[engine]
			if !ok {
				line += dimmedStyle.Render(fmt.Sprintf("%-14s", "-"))
				continue
			}
			line += verdictText(e)
		}
		if i == m.selectedRow {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func verdictText(e results.Entry) string {
	switch {
	case e.Passed():
		return passStyle.Render(fmt.Sprintf("%-14s", "pass"))
	case e.Status == "timeout":
		return timeoutStyle.Render(fmt.Sprintf("%-14s", "timeout"))
	case e.DropTime != nil:
		return failStyle.Render(fmt.Sprintf("%-14s", fmt.Sprintf("drop @ %.1fs", *e.DropTime)))
	default:
		return failStyle.Render(fmt.Sprintf("%-14s", e.Status))
	}
}

func (m Model) renderRuns() string {
	if len(m.entries) == 0 {
		return dimmedStyle.Render("no results yet")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-12s %-8s %-6s %-6s %-8s %-10s %s\n",
		"engine", "object", "task", "mjx", "dt", "status", "when"))

	visible := m.visibleRows()
	end := m.scroll + visible
	if end > len(m.entries) {
		end = len(m.entries)
	}
	for i := m.scroll; i < end; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("%-12s %-8s %-6s %-6t %-8s %-10s %s",
			e.Engine, e.Object, e.Task, e.MJX, results.FormatDt(e.Dt), e.Status, e.Timestamp)
		if i == m.selectedRow {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSummary() string {
	var b strings.Builder
	for _, dim := range []struct {
		title string
		stats map[string]results.Stats
	}{
		{"by engine", m.summary.ByEngine},
		{"by object", m.summary.ByObject},
		{"by timestep", m.summary.ByDt},
	} {
		b.WriteString(dim.title)
		b.WriteString("\n")
		keys := make([]string, 0, len(dim.stats))
		for key := range dim.stats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			s := dim.stats[key]
			style := passStyle
			if s.Passed < s.Total {
				style = timeoutStyle
			}
			b.WriteString(fmt.Sprintf("  %-14s %s\n", key,
				style.Render(fmt.Sprintf("%d/%d (%.0f%%)", s.Passed, s.Total, 100*s.Rate()))))
		}
	}
	return b.String()
}
