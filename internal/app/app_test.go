package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/config"
	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:  t.TempDir(),
		Autosave: config.AutosaveConfig{Delay: time.Second},
		AI:       config.AIConfig{Provider: "none"},
		Mirror:   config.MirrorConfig{MaxBytes: mirror.DefaultMaxBytes},
	}
}

func newTestContext(t *testing.T, cfg *config.Config) *Context {
	t.Helper()
	creds := &session.FileStore{Path: filepath.Join(cfg.DataDir, "identity.json")}
	c, err := NewContext(context.Background(), cfg, WithLogger(logger.Discard()), WithCredentials(creds))
	if err != nil {
		t.Fatalf("NewContext() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewContext(t *testing.T) {
	c := newTestContext(t, testConfig(t))

	if c.Local == nil || c.Store == nil {
		t.Fatal("local store not opened")
	}
	if _, ok := c.AI.(ai.Disabled); !ok {
		t.Errorf("AI = %T, want ai.Disabled", c.AI)
	}
	if c.Session.Status() != session.StatusSignedOut {
		t.Errorf("Status() = %v, want signed-out", c.Session.Status())
	}
	if env := c.Env(); env.UserID != "" {
		t.Errorf("Env().UserID = %q while signed out", env.UserID)
	}
}

func TestNewContext_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Provider = "oracle"
	if _, err := NewContext(context.Background(), cfg, WithLogger(logger.Discard())); err == nil {
		t.Error("NewContext() accepted an unknown ai provider")
	}
}

func TestNewContext_MissingAPIKeyDisablesAI(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Provider = "anthropic"
	c := newTestContext(t, cfg)
	if _, ok := c.AI.(ai.Disabled); !ok {
		t.Errorf("AI = %T, want ai.Disabled without an api key", c.AI)
	}
}

func TestEnv_FollowsSession(t *testing.T) {
	cfg := testConfig(t)
	c := newTestContext(t, cfg)

	u, err := c.Session.SignIn(context.Background(), "Uche Nora")
	if err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	env := c.Env()
	if env.UserID != u.ID || env.UserName != "Uche Nora" {
		t.Errorf("Env() user = %q %q", env.UserID, env.UserName)
	}
	if env.AutosaveDelay != time.Second {
		t.Errorf("Env().AutosaveDelay = %v", env.AutosaveDelay)
	}

	if _, err := c.Session.SignInAnonymously(context.Background()); err != nil {
		t.Fatalf("SignInAnonymously() failed: %v", err)
	}
	if env := c.Env(); env.UserName != "Guest" {
		t.Errorf("anonymous Env().UserName = %q, want Guest", env.UserName)
	}
	c.Close()

	// The identity survives a restart.
	again := newTestContext(t, cfg)
	if again.Session.UserID() == "" {
		t.Error("identity not restored")
	}
}

func TestTrackActivity(t *testing.T) {
	c := newTestContext(t, testConfig(t))
	ctx := context.Background()
	if _, err := c.Session.SignIn(ctx, "Chikamso Chidebe"); err != nil {
		t.Fatalf("SignIn() failed: %v", err)
	}
	env := c.Env()
	p := modules.OpenPlanner(ctx, env)
	defer p.Close()
	tm := modules.OpenTimer(ctx, env)
	defer tm.Close()
	s := modules.OpenStreak(ctx, env)

	detach := c.TrackActivity(ctx, p, tm, s)
	defer detach()

	a, err := p.AddAssignment(records.Assignment{Title: "Essay", Subject: "Literature", DueDate: "2030-01-01"})
	if err != nil {
		t.Fatalf("AddAssignment() failed: %v", err)
	}
	if _, err := p.ToggleAssignment(a.ID); err != nil {
		t.Fatalf("ToggleAssignment() failed: %v", err)
	}

	if err := tm.Start("Physics", ""); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	tm.Tick(30 * time.Minute)
	if _, _, err := tm.End(); err != nil {
		t.Fatalf("End() failed: %v", err)
	}

	st := s.State()
	if st.TasksCompleted != 1 || st.TotalTimeSpent != 30 {
		t.Errorf("streak counters = %+v", st)
	}

	rec, err := c.Store.Get(ctx, docstore.TopLevel(docstore.CollectionStreaks), env.UserID)
	if err != nil {
		t.Fatalf("Get(streak) failed: %v", err)
	}
	if rec["totalTimeSpent"] != float64(30) {
		t.Errorf("stored totalTimeSpent = %v", rec["totalTimeSpent"])
	}
}

func TestSwitcher(t *testing.T) {
	c := newTestContext(t, testConfig(t))
	ctx := context.Background()
	s := NewSwitcher(c, modules.NamePlanner, modules.NameNotes, modules.NameTimer)
	defer s.Close()

	if s.Current() != nil || s.Index() != -1 {
		t.Fatal("switcher opened a module before Select")
	}
	m, err := s.Next(ctx)
	if err != nil || m.Name() != modules.NamePlanner {
		t.Fatalf("Next() = %v, %v", m, err)
	}
	m, _ = s.Prev(ctx)
	if m.Name() != modules.NameTimer || s.Index() != 2 {
		t.Errorf("Prev() from first tab = %s at %d", m.Name(), s.Index())
	}

	// The timer's unfinished session is discarded when switching away.
	timer := m.(*modules.Timer)
	_ = timer.Start("History", "")
	m, _ = s.Next(ctx)
	if m.Name() != modules.NamePlanner {
		t.Errorf("Next() wrapped to %s", m.Name())
	}
	if _, ok := timer.Active(); ok {
		t.Error("closed timer kept its session")
	}

	if _, err := s.Open(ctx, modules.NameQuiz); !errors.Is(err, modules.ErrNotFound) {
		t.Errorf("Open(quiz) error = %v", err)
	}
	if _, err := s.Select(ctx, 7); err == nil {
		t.Error("Select(7) succeeded")
	}

	m, err = s.Open(ctx, modules.NameNotes)
	if err != nil || m.Name() != modules.NameNotes {
		t.Fatalf("Open(notes) = %v, %v", m, err)
	}
	if m2, _ := s.Reload(ctx); m2 == m || m2.Name() != modules.NameNotes {
		t.Error("Reload() did not reopen the current tab")
	}
}
