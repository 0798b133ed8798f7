package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.reload()
			return m, nil
		case "j", "down":
			if m.selectedRow < m.rowCount()-1 {
				m.selectedRow++
			}
			m.clampScroll()
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
			m.clampScroll()
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.selectedRow = 0
			m.scroll = 0
		case "m":
			m.activeTab = TabMatrix
			m.selectedRow = 0
			m.scroll = 0
		case "s":
			m.activeTab = TabSummary
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.reload()
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) rowCount() int {
	switch m.activeTab {
	case TabMatrix:
		return len(m.cells)
	case TabRuns:
		return len(m.entries)
	default:
		return 0
	}
}

func (m *Model) clampScroll() {
	visible := m.visibleRows()
	if m.selectedRow >= m.scroll+visible {
		m.scroll = m.selectedRow - visible + 1
	}
	if m.selectedRow < m.scroll {
		m.scroll = m.selectedRow
	}
}

func (m Model) visibleRows() int {
	// Header, tab bar, table header and status bar eat a few lines.
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	return rows
}
