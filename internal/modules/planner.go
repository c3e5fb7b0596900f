package modules

import (
	"context"
	"strings"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// Planner tracks assignments and semester goals.
type Planner struct {
	group
	env         Env
	assignments *list[records.Assignment]
	goals       *list[records.Goal]

	completed listeners
}

// OpenPlanner opens the planner for env's user.
func OpenPlanner(ctx context.Context, env Env) *Planner {
	p := &Planner{
		env:         env,
		assignments: openList(ctx, env, records.CollectionAssignments, mirror.KeyAssignments, func(a records.Assignment) string { return a.ID }),
		goals:       openList(ctx, env, records.CollectionGoals, mirror.KeyGoals, func(g records.Goal) string { return g.ID }),
	}
	p.group = group{p.assignments, p.goals}
	return p
}

func (p *Planner) Name() string { return NamePlanner }

// Assignments returns every assignment in arrival order.
func (p *Planner) Assignments() []records.Assignment {
	return p.assignments.Items()
}

// Goals returns every goal in arrival order.
func (p *Planner) Goals() []records.Goal {
	return p.goals.Items()
}

// OnAssignmentCompleted registers fn to run when an assignment is marked
// complete.
func (p *Planner) OnAssignmentCompleted(fn func()) (unsubscribe func()) {
	return p.completed.add(fn)
}

// AddAssignment validates and stores a new assignment. ID and CreatedAt are
// assigned when empty.
func (p *Planner) AddAssignment(a records.Assignment) (records.Assignment, error) {
	now := p.env.now()
	if a.ID == "" {
		a.ID = records.NewID(now)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.Completed = false
	a.Normalize()
	if err := a.Validate(); err != nil {
		return records.Assignment{}, err
	}
	p.assignments.put(a)
	return a, nil
}

// ToggleAssignment flips an assignment's completed flag.
func (p *Planner) ToggleAssignment(id string) (records.Assignment, error) {
	a, err := p.assignments.update(id, func(a *records.Assignment) error {
		a.Completed = !a.Completed
		return nil
	})
	if err == nil && a.Completed {
		p.completed.notify()
	}
	return a, err
}

// DeleteAssignment removes an assignment.
func (p *Planner) DeleteAssignment(id string) error {
	return p.assignments.remove(id)
}

// AddGoal stores a new goal with zero progress.
func (p *Planner) AddGoal(text string) (records.Goal, error) {
	now := p.env.now()
	g := records.Goal{
		ID:        records.NewID(now),
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
	}
	if err := g.Validate(); err != nil {
		return records.Goal{}, err
	}
	p.goals.put(g)
	return g, nil
}

// SetGoalProgress sets a goal's progress percentage (0-100).
func (p *Planner) SetGoalProgress(id string, progress int) (records.Goal, error) {
	return p.goals.update(id, func(g *records.Goal) error {
		g.Progress = progress
		return g.Validate()
	})
}

// ToggleGoal flips a goal's completed flag.
func (p *Planner) ToggleGoal(id string) (records.Goal, error) {
	return p.goals.update(id, func(g *records.Goal) error {
		g.Completed = !g.Completed
		return nil
	})
}

// DeleteGoal removes a goal.
func (p *Planner) DeleteGoal(id string) error {
	return p.goals.remove(id)
}

// UpcomingDeadlines returns open assignments due within a week, soonest
// first.
func (p *Planner) UpcomingDeadlines() []records.Assignment {
	return stats.UpcomingDeadlines(p.Assignments(), p.env.now())
}

// CompletionRate is the percentage of completed assignments.
func (p *Planner) CompletionRate() float64 {
	return stats.CompletionRate(p.Assignments())
}

// AverageGoalProgress is the mean goal progress.
func (p *Planner) AverageGoalProgress() float64 {
	return stats.AverageGoalProgress(p.Goals())
}
