package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loveeagles/planner/internal/app"
	"github.com/loveeagles/planner/internal/config"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/session"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:  dir,
		Autosave: config.AutosaveConfig{Delay: time.Second},
		AI:       config.AIConfig{Provider: "none"},
		Mirror:   config.MirrorConfig{MaxBytes: mirror.DefaultMaxBytes},
	}
	creds := &session.FileStore{Path: filepath.Join(dir, "identity.json")}
	ctx := context.Background()
	c, err := app.NewContext(ctx, cfg, app.WithLogger(logger.Discard()), app.WithCredentials(creds))
	if err != nil {
		t.Fatalf("NewContext() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if _, err := c.Session.SignIn(ctx, "Ada"); err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	m := NewModel(ctx, c)
	t.Cleanup(m.Close)
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// selectTab opens tab i and waits for the module to load.
func selectTab(t *testing.T, m Model, i int) Model {
	t.Helper()
	m, cmd := send(t, m, m.selectTab(i)())
	if m.err != nil {
		t.Fatalf("selectTab(%d) failed: %v", i, m.err)
	}
	if cmd != nil {
		m, _ = send(t, m, cmd())
	}
	return m
}

func TestModel_TabSwitching(t *testing.T) {
	m := selectTab(t, newTestModel(t), 0)
	if _, ok := m.current().(*modules.Planner); !ok {
		t.Fatalf("current() = %T, want planner", m.current())
	}

	m, cmd := send(t, m, keyMsg("tab"))
	if cmd == nil {
		t.Fatal("tab returned no command")
	}
	m, _ = send(t, m, cmd())
	if got := m.switcher.Tabs()[m.switcher.Index()]; got != modules.NameNotes {
		t.Errorf("tab after planner = %q, want notes", got)
	}
	if !strings.Contains(m.View(), "Notes") {
		t.Error("View() does not show the notes tab")
	}
}

func TestModel_ToggleAssignment(t *testing.T) {
	m := selectTab(t, newTestModel(t), 0)
	p := m.current().(*modules.Planner)
	a, err := p.AddAssignment(records.Assignment{Title: "Lab report", Subject: "Science", DueDate: "2026-03-12", Priority: "medium", Type: "assignment"})
	if err != nil {
		t.Fatalf("AddAssignment() failed: %v", err)
	}

	m, _ = send(t, m, keyMsg("down"))
	if m.cursor != 0 {
		t.Fatalf("cursor moved past the last assignment: %d", m.cursor)
	}
	m, _ = send(t, m, keyMsg("enter"))
	as := p.Assignments()
	if len(as) != 1 || as[0].ID != a.ID || !as[0].Completed {
		t.Errorf("Assignments() = %+v, want %s completed", as, a.ID)
	}
	if !strings.Contains(m.View(), "Lab report") {
		t.Error("View() is missing the assignment")
	}
}

func TestModel_LogMood(t *testing.T) {
	m := newTestModel(t)
	idx := -1
	for i, name := range m.switcher.Tabs() {
		if name == modules.NameMood {
			idx = i
		}
	}
	m = selectTab(t, m, idx)

	m, _ = send(t, m, keyMsg("2"))
	e, ok := m.current().(*modules.Mood).Today()
	if !ok || e.Mood != "calm" || e.Energy != modules.DefaultEnergy {
		t.Errorf("Today() = %+v, %v; want calm", e, ok)
	}
	if m.status != "Logged calm" {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_Quit(t *testing.T) {
	m := selectTab(t, newTestModel(t), 0)
	m, cmd := send(t, m, keyMsg("q"))
	if !m.quitting || cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command did not return tea.QuitMsg")
	}
	if m.View() != "" {
		t.Error("View() after quit is not empty")
	}
}
