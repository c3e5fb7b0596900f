package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// BreakReminderInterval is how often a running study session asks for a
// break.
const BreakReminderInterval = 25 * time.Minute

// Pomodoro defaults and limits, in minutes.
const (
	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5
	MaxFocusMinutes     = 60
	MaxBreakMinutes     = 30
)

// Phase is the pomodoro phase.
type Phase int

const (
	PhaseFocus Phase = iota
	PhaseBreak
)

func (p Phase) String() string {
	if p == PhaseBreak {
		return "break"
	}
	return "focus"
}

// Pomodoro is a focus/break countdown advanced by Tick. It is not safe for
// concurrent use.
type Pomodoro struct {
	focus     time.Duration
	brk       time.Duration
	phase     Phase
	remaining time.Duration
	running   bool
}

// NewPomodoro returns a stopped timer at the start of a focus phase.
func NewPomodoro(focusMinutes, breakMinutes int) (*Pomodoro, error) {
	p := &Pomodoro{}
	if err := p.SetDurations(focusMinutes, breakMinutes); err != nil {
		return nil, err
	}
	p.Reset()
	return p, nil
}

// SetDurations changes the phase lengths. The current countdown is kept.
func (p *Pomodoro) SetDurations(focusMinutes, breakMinutes int) error {
	if focusMinutes < 1 || focusMinutes > MaxFocusMinutes {
		return &records.ValidationError{Field: "focus", Message: fmt.Sprintf("must be between 1 and %d minutes", MaxFocusMinutes)}
	}
	if breakMinutes < 1 || breakMinutes > MaxBreakMinutes {
		return &records.ValidationError{Field: "break", Message: fmt.Sprintf("must be between 1 and %d minutes", MaxBreakMinutes)}
	}
	p.focus = time.Duration(focusMinutes) * time.Minute
	p.brk = time.Duration(breakMinutes) * time.Minute
	return nil
}

func (p *Pomodoro) Start() { p.running = true }
func (p *Pomodoro) Pause() { p.running = false }
func (p *Pomodoro) Running() bool { return p.running }
func (p *Pomodoro) Phase() Phase { return p.phase }
func (p *Pomodoro) Remaining() time.Duration { return p.remaining }

// Reset stops the timer and rewinds to a full focus phase.
func (p *Pomodoro) Reset() {
	p.running = false
	p.phase = PhaseFocus
	p.remaining = p.focus
}

// Tick advances a running timer by d. When the countdown reaches zero the
// timer stops, switches phase and reports the phase that just finished.
func (p *Pomodoro) Tick(d time.Duration) (finished Phase, done bool) {
	if !p.running {
		return 0, false
	}
	p.remaining -= d
	if p.remaining > 0 {
		return 0, false
	}
	p.running = false
	finished = p.phase
	if p.phase == PhaseFocus {
		p.phase = PhaseBreak
		p.remaining = p.brk
	} else {
		p.phase = PhaseFocus
		p.remaining = p.focus
	}
	return finished, true
}

// FormatClock renders seconds as M:SS, or H:MM:SS from one hour up.
func FormatClock(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ActiveSession is the study session being timed.
type ActiveSession struct {
	Subject   string
	Task      string
	Elapsed   time.Duration
	StartTime time.Time
	Running   bool
}

// Timer tracks study sessions.
type Timer struct {
	group
	env      Env
	sessions *list[records.StudySession]

	mu             sync.Mutex
	active         *ActiveSession
	lastEnded      records.StudySession
	breakReminders bool

	ended listeners
}

// OpenTimer opens the study timer.
func OpenTimer(ctx context.Context, env Env) *Timer {
	t := &Timer{
		env:            env,
		sessions:       openList(ctx, env, records.CollectionStudySessions, mirror.KeyStudySessions, func(s records.StudySession) string { return s.ID }),
		breakReminders: true,
	}
	t.group = group{t.sessions}
	return t
}

func (t *Timer) Name() string { return NameTimer }

// OnSessionEnded registers fn to run with each recorded session.
func (t *Timer) OnSessionEnded(fn func(records.StudySession)) (unsubscribe func()) {
	return t.ended.add(func() {
		t.mu.Lock()
		s := t.lastEnded
		t.mu.Unlock()
		fn(s)
	})
}

// SetBreakReminders enables or disables break reminders.
func (t *Timer) SetBreakReminders(on bool) {
	t.mu.Lock()
	t.breakReminders = on
	t.mu.Unlock()
}

// Start begins timing a session. subject is required.
func (t *Timer) Start(subject, task string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return &records.ValidationError{Field: "subject", Message: "is required"}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = &ActiveSession{
		Subject:   subject,
		Task:      strings.TrimSpace(task),
		StartTime: t.env.now(),
		Running:   true,
	}
	return nil
}

// Pause stops the clock without ending the session.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		t.active.Running = false
	}
}

// Resume restarts a paused session.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		t.active.Running = true
	}
}

// Active returns a copy of the running session.
func (t *Timer) Active() (ActiveSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return ActiveSession{}, false
	}
	return *t.active, true
}

// Tick adds d to a running session. It reports true when the elapsed time
// crosses a multiple of BreakReminderInterval and reminders are on.
func (t *Timer) Tick(d time.Duration) (breakDue bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil || !t.active.Running {
		return false
	}
	before := t.active.Elapsed / BreakReminderInterval
	t.active.Elapsed += d
	return t.breakReminders && t.active.Elapsed/BreakReminderInterval > before
}

// End finishes the active session. A session with any elapsed time is
// recorded and returned; an empty one is dropped.
func (t *Timer) End() (records.StudySession, bool, error) {
	t.mu.Lock()
	a := t.active
	t.active = nil
	t.mu.Unlock()

	if a == nil || a.Elapsed < time.Second {
		return records.StudySession{}, false, nil
	}
	now := t.env.now()
	s := records.StudySession{
		ID:        records.NewID(now),
		Subject:   a.Subject,
		Task:      a.Task,
		Duration:  int(a.Elapsed / time.Second),
		Date:      records.DateKey(a.StartTime),
		StartTime: a.StartTime,
		EndTime:   now,
	}
	if err := s.Validate(); err != nil {
		return records.StudySession{}, false, err
	}
	t.sessions.put(s)
	t.mu.Lock()
	t.lastEnded = s
	t.mu.Unlock()
	t.ended.notify()
	return s, true, nil
}

// Sessions returns every recorded session in arrival order.
func (t *Timer) Sessions() []records.StudySession {
	return t.sessions.Items()
}

// Streak is the number of consecutive days with a session, ending today.
func (t *Timer) Streak() int {
	return stats.StudyStreak(t.Sessions(), t.env.now())
}

// Today sums today's sessions.
func (t *Timer) Today() stats.SessionTotals {
	return stats.TodayStats(t.Sessions(), t.env.now())
}

// Week sums the last seven days.
func (t *Timer) Week() stats.SessionTotals {
	return stats.WeeklyStats(t.Sessions(), t.env.now())
}

// Breakdown totals study time per subject.
func (t *Timer) Breakdown() []stats.SubjectTime {
	return stats.SubjectBreakdown(t.Sessions())
}

// Close discards an unfinished session and releases the subscription.
func (t *Timer) Close() {
	t.mu.Lock()
	t.active = nil
	t.mu.Unlock()
	t.group.Close()
}
