// Package tui renders the results matrix in the terminal, refreshing
// as new sweep artifacts land in the output directory.
package tui

import (
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Motphys/phys-bench/internal/results"
)

// Tab selects the visible pane
type Tab int

const (
	TabMatrix Tab = iota
	TabRuns
	TabSummary
	tabCount
)

// Model is the TUI application model
type Model struct {
	// Data
	outputDir string
	entries   []results.Entry
	summary   results.Summary
	cells     []results.Cell
	groups    map[results.Cell][]results.Entry
	engines   []string
	loadErr   error

	// UI state
	width       int
	height      int
	activeTab   Tab
	selectedRow int
	scroll      int

	lastRefresh time.Time
}

// NewModel creates a TUI model reading from the output directory
func NewModel(outputDir string) Model {
	m := Model{outputDir: outputDir}
	m.reload()
	return m
}

func (m *Model) reload() {
	entries, err := results.Load(m.outputDir)
	m.loadErr = err
	m.entries = entries
	m.summary = results.Summarize(entries)
	m.groups = results.GroupByObjectAndDt(entries)
	m.cells = results.Cells(m.groups)
	m.engines = engineColumns(entries)
	m.lastRefresh = time.Now()
	if m.selectedRow >= len(m.cells) {
		m.selectedRow = 0
	}
}

func engineColumns(entries []results.Entry) []string {
	seen := make(map[string]bool)
	var engines []string
	for _, e := range entries {
		if !seen[e.Engine] {
			seen[e.Engine] = true
			engines = append(engines, e.Engine)
		}
	}
	// Stable column order across refreshes.
	sort.Strings(engines)
	return engines
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
