package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func writeResult(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func testModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	writeResult(t, dir, "mujoco_grasp_shake_cube_mjxfalse_dt0_002.json",
		`{"engine":"mujoco","object":"cube","task":"shake","mjx":false,"dt":0.002,"status":"success","timestamp":"2026-08-30T10:00:00Z"}`)
	writeResult(t, dir, "genesis_grasp_shake_cube_mjxfalse_dt0_002.json",
		`{"engine":"genesis","object":"cube","task":"shake","mjx":false,"dt":0.002,"status":"failure","drop_time":6.2,"timestamp":"2026-08-30T10:05:00Z"}`)

	m := NewModel(dir)
	m.width = 120
	m.height = 40
	return m
}

func TestModelLoadsResults(t *testing.T) {
	m := testModel(t)
	if len(m.entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(m.entries))
	}
	if len(m.cells) != 1 {
		t.Errorf("cells = %d, want 1", len(m.cells))
	}
	if len(m.engines) != 2 || m.engines[0] != "genesis" {
		t.Errorf("engines = %v", m.engines)
	}
}

func TestViewMatrix(t *testing.T) {
	m := testModel(t)
	out := m.View()

	for _, want := range []string{"phys-bench", "2 runs", "1 passed", "cube / dt=0.002", "pass", "drop @ 6.2s"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewEmptyDir(t *testing.T) {
	m := NewModel(t.TempDir())
	m.width = 80
	m.height = 24
	if !strings.Contains(m.View(), "no results yet") {
		t.Error("empty view missing placeholder")
	}
}

func TestTabSwitching(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.activeTab != TabRuns {
		t.Errorf("activeTab = %v, want TabRuns", m.activeTab)
	}
	if !strings.Contains(m.View(), "engine") {
		t.Error("runs tab missing table header")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = next.(Model)
	if m.activeTab != TabSummary {
		t.Errorf("activeTab = %v, want TabSummary", m.activeTab)
	}
	if !strings.Contains(m.View(), "by engine") {
		t.Error("summary tab missing sections")
	}
}

func TestNavigationBounds(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m = next.(Model)
	if m.selectedRow != 0 {
		t.Errorf("selectedRow = %d, want 0 at top", m.selectedRow)
	}

	for i := 0; i < 10; i++ {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
		m = next.(Model)
	}
	if m.selectedRow >= m.rowCount() {
		t.Errorf("selectedRow = %d past end", m.selectedRow)
	}
}

func TestQuitKey(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
}
