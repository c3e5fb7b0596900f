package modules

import (
	"context"
	"sync"
	"time"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// StudyPatterns holds the user's pomodoro preferences. It is stored in the
// mirror only.
type StudyPatterns struct {
	FocusMinutes int `json:"focusMinutes"`
	BreakMinutes int `json:"breakMinutes"`
}

// DefaultStudyPatterns is the classic 25/5 pomodoro.
var DefaultStudyPatterns = StudyPatterns{FocusMinutes: DefaultFocusMinutes, BreakMinutes: DefaultBreakMinutes}

// Suggestions is the smart-task view: suggestions derived from the
// planner's local state plus a pomodoro timer.
type Suggestions struct {
	env Env

	mu       sync.Mutex
	patterns StudyPatterns
	pomodoro *Pomodoro
	changed  listeners
}

// OpenSuggestions opens the suggestions module.
func OpenSuggestions(_ context.Context, env Env) *Suggestions {
	patterns := mirror.Read(env.Mirror, mirror.KeyStudyPatterns, DefaultStudyPatterns)
	p, err := NewPomodoro(patterns.FocusMinutes, patterns.BreakMinutes)
	if err != nil {
		patterns = DefaultStudyPatterns
		p, _ = NewPomodoro(patterns.FocusMinutes, patterns.BreakMinutes)
	}
	return &Suggestions{env: env, patterns: patterns, pomodoro: p}
}

func (s *Suggestions) Name() string { return NameSuggest }

// WaitLoaded returns at once; suggestions read only local state.
func (s *Suggestions) WaitLoaded(context.Context) error { return nil }

func (s *Suggestions) OnChange(fn func()) (unsubscribe func()) { return s.changed.add(fn) }

func (s *Suggestions) Close() {
	s.mu.Lock()
	s.pomodoro.Reset()
	s.mu.Unlock()
}

// List returns today's suggestions from the mirrored assignments and goals.
func (s *Suggestions) List() []stats.Suggestion {
	as := mirror.Read[[]records.Assignment](s.env.Mirror, mirror.KeyAssignments, nil)
	goals := mirror.Read[[]records.Goal](s.env.Mirror, mirror.KeyGoals, nil)
	return stats.Suggestions(as, goals, s.env.now())
}

// Patterns returns the pomodoro preferences.
func (s *Suggestions) Patterns() StudyPatterns {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patterns
}

// SetPatterns validates and stores new pomodoro lengths.
func (s *Suggestions) SetPatterns(p StudyPatterns) error {
	s.mu.Lock()
	if err := s.pomodoro.SetDurations(p.FocusMinutes, p.BreakMinutes); err != nil {
		s.mu.Unlock()
		return err
	}
	s.patterns = p
	if !s.pomodoro.Running() {
		s.pomodoro.Reset()
	}
	s.env.Mirror.Write(mirror.KeyStudyPatterns, p)
	s.mu.Unlock()
	s.changed.notify()
	return nil
}

// Pomodoro runs fn with the pomodoro timer locked.
func (s *Suggestions) Pomodoro(fn func(p *Pomodoro)) {
	s.mu.Lock()
	fn(s.pomodoro)
	s.mu.Unlock()
	s.changed.notify()
}

// PomodoroState reads the pomodoro timer without notifying listeners.
func (s *Suggestions) PomodoroState() (phase Phase, remaining time.Duration, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pomodoro.Phase(), s.pomodoro.Remaining(), s.pomodoro.Running()
}
