package modules

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

var streaksPath = docstore.TopLevel(docstore.CollectionStreaks)

// Streak keeps the login streak and activity counters at streaks/<userID>.
// The document is created on the first check-in and never deleted.
type Streak struct {
	env Env

	// mu serializes read-modify-write cycles within this process.
	mu      sync.Mutex
	state   records.StreakState
	changed listeners
}

// OpenStreak opens the streak tracker. Nothing is read until CheckIn.
func OpenStreak(_ context.Context, env Env) *Streak {
	return &Streak{env: env}
}

func (s *Streak) Name() string { return NameStreak }

// WaitLoaded returns at once; the streak document is read on demand.
func (s *Streak) WaitLoaded(context.Context) error { return nil }

func (s *Streak) OnChange(fn func()) (unsubscribe func()) { return s.changed.add(fn) }

func (s *Streak) Close() {}

// State returns the last loaded state.
func (s *Streak) State() records.StreakState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// load reads the stored state, creating it on first use. Callers hold mu.
func (s *Streak) load(ctx context.Context) (records.StreakState, error) {
	if s.env.UserID == "" || s.env.Binder == nil {
		return records.StreakState{}, ErrSignedOut
	}
	rec, err := s.env.Binder.Store().Get(ctx, streaksPath, s.env.UserID)
	if errors.Is(err, docstore.ErrNotFound) {
		st := records.NewStreak(s.env.now())
		return st, s.save(ctx, st)
	}
	if err != nil {
		return records.StreakState{}, fmt.Errorf("failed to load streak: %w", err)
	}
	return records.FromRecord[records.StreakState](rec)
}

func (s *Streak) save(ctx context.Context, st records.StreakState) error {
	st.ID = s.env.UserID
	rec, err := records.ToRecord(st)
	if err != nil {
		return err
	}
	if err := s.env.Binder.WritePath(ctx, streaksPath, s.env.UserID, rec); err != nil {
		return err
	}
	s.state = st
	return nil
}

func (s *Streak) modify(ctx context.Context, fn func(records.StreakState) (records.StreakState, bool)) (records.StreakState, bool, error) {
	s.mu.Lock()
	st, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return records.StreakState{}, false, err
	}
	st, changed := fn(st)
	if changed {
		err = s.save(ctx, st)
	} else {
		s.state = st
	}
	s.mu.Unlock()
	if err != nil {
		return records.StreakState{}, false, err
	}
	s.changed.notify()
	return st, changed, nil
}

// CheckIn applies today's login. It reports whether the state changed.
func (s *Streak) CheckIn(ctx context.Context) (records.StreakState, bool, error) {
	return s.modify(ctx, func(st records.StreakState) (records.StreakState, bool) {
		return stats.DailyLogin(st, s.env.now())
	})
}

// TaskCompleted increments the completed-task counter.
func (s *Streak) TaskCompleted(ctx context.Context) (records.StreakState, error) {
	st, _, err := s.modify(ctx, func(st records.StreakState) (records.StreakState, bool) {
		st.TasksCompleted++
		return st, true
	})
	return st, err
}

// AddTime adds minutes of study time.
func (s *Streak) AddTime(ctx context.Context, minutes int) (records.StreakState, error) {
	if minutes <= 0 {
		return s.State(), nil
	}
	st, _, err := s.modify(ctx, func(st records.StreakState) (records.StreakState, bool) {
		st.TotalTimeSpent += minutes
		return st, true
	})
	return st, err
}
