package modules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
)

func TestSuggestions_List(t *testing.T) {
	f := newFixture(t, "")
	f.env.Mirror.Write(mirror.KeyAssignments, []records.Assignment{
		{ID: "a1", Title: "Lab report", Subject: "Chemistry", DueDate: "2026-03-11"},
	})
	f.env.Mirror.Write(mirror.KeyGoals, []records.Goal{{ID: "g1", Text: "Learn Go", Progress: 30}})

	s := OpenSuggestions(context.Background(), f.env)
	defer s.Close()

	var ids []string
	for _, sg := range s.List() {
		ids = append(ids, sg.ID)
	}
	want := []string{"time-afternoon", "urgent-a1", "goal-g1", "pomodoro"}
	if len(ids) != len(want) {
		t.Fatalf("List() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSuggestions_Patterns(t *testing.T) {
	f := newFixture(t, "")
	s := OpenSuggestions(context.Background(), f.env)

	if got := s.Patterns(); got != DefaultStudyPatterns {
		t.Errorf("Patterns() = %+v, want defaults", got)
	}
	if err := s.SetPatterns(StudyPatterns{FocusMinutes: 90, BreakMinutes: 5}); !errors.Is(err, records.ErrValidation) {
		t.Errorf("SetPatterns(90) error = %v", err)
	}
	if err := s.SetPatterns(StudyPatterns{FocusMinutes: 50, BreakMinutes: 10}); err != nil {
		t.Fatalf("SetPatterns() failed: %v", err)
	}
	s.Pomodoro(func(p *Pomodoro) {
		if p.Remaining() != 50*time.Minute {
			t.Errorf("Remaining() = %v, want 50m", p.Remaining())
		}
	})
	s.Close()

	reopened := OpenSuggestions(context.Background(), f.env)
	if got := reopened.Patterns(); got.FocusMinutes != 50 || got.BreakMinutes != 10 {
		t.Errorf("Patterns() after reopen = %+v", got)
	}

	f.env.Mirror.Write(mirror.KeyStudyPatterns, StudyPatterns{FocusMinutes: 0, BreakMinutes: 99})
	if got := OpenSuggestions(context.Background(), f.env).Patterns(); got != DefaultStudyPatterns {
		t.Errorf("Patterns() with invalid stored settings = %+v", got)
	}
}

func TestSuggestions_PomodoroStateIsQuiet(t *testing.T) {
	f := newFixture(t, "")
	s := OpenSuggestions(context.Background(), f.env)
	defer s.Close()

	notified := 0
	defer s.OnChange(func() { notified++ })()

	s.Pomodoro(func(p *Pomodoro) { p.Start() })
	phase, remaining, running := s.PomodoroState()
	if phase != PhaseFocus || remaining != DefaultFocusMinutes*time.Minute || !running {
		t.Errorf("PomodoroState() = %v, %v, %v", phase, remaining, running)
	}
	if notified != 1 {
		t.Errorf("listeners notified %d times, want 1", notified)
	}
}
