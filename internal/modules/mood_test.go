package modules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loveeagles/planner/internal/records"
)

func TestMood_LogReplacesSameDay(t *testing.T) {
	f := newFixture(t, "")
	m := OpenMood(context.Background(), f.env)
	defer m.Close()

	if _, ok := m.Recommendation(); ok {
		t.Error("Recommendation() before any entry reported ok")
	}
	if _, err := m.Log("stressed", 3); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	f.clock.Add(2 * time.Hour)
	e, err := m.Log("calm", 7)
	if err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if e.ID != "2026-03-10" {
		t.Errorf("ID = %q, want the date", e.ID)
	}
	if h := m.History(); len(h) != 1 || h[0].Mood != "calm" {
		t.Errorf("History() = %+v", h)
	}
	today, ok := m.Today()
	if !ok || today.Energy != 7 {
		t.Errorf("Today() = %+v, %v", today, ok)
	}
	if _, ok := m.Recommendation(); !ok {
		t.Error("Recommendation() for calm reported no advice")
	}

	f.clock.Add(24 * time.Hour)
	if _, err := m.Log("happy", 9); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if r := m.Recent(1); len(r) != 1 || r[0].Mood != "happy" {
		t.Errorf("Recent(1) = %+v", r)
	}
	if m.Quote() == "" {
		t.Error("Quote() is empty")
	}
}

func TestMood_LogValidation(t *testing.T) {
	f := newFixture(t, "")
	m := OpenMood(context.Background(), f.env)
	defer m.Close()

	tests := []struct {
		mood   string
		energy int
	}{
		{"elated", 5},
		{"happy", 0},
		{"happy", 11},
	}
	for _, tt := range tests {
		if _, err := m.Log(tt.mood, tt.energy); !errors.Is(err, records.ErrValidation) {
			t.Errorf("Log(%q, %d) error = %v", tt.mood, tt.energy, err)
		}
	}
	if len(m.History()) != 0 {
		t.Error("invalid entries were recorded")
	}
}
