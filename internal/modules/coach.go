package modules

import (
	"context"
	"strings"
	"sync"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// coachContext is the summary of local data sent with each question.
type coachContext struct {
	Assignments          int     `json:"assignments"`
	CompletedAssignments int     `json:"completedAssignments"`
	UpcomingDeadlines    int     `json:"upcomingDeadlines"`
	Goals                int     `json:"goals"`
	AvgGoalProgress      float64 `json:"avgGoalProgress"`
	RecentMood           string  `json:"recentMood,omitempty"`
	StudyHoursThisWeek   float64 `json:"studyHoursThisWeek"`
}

// Coach is the AI study coach. Its inputs come from the mirror, where the
// other modules keep their latest state; the chat history is mirror-only.
type Coach struct {
	env   Env
	coach *ai.Coach
	gate  ai.Gate

	mu      sync.Mutex
	history []records.ChatMessage
	changed listeners
}

// OpenCoach opens the coach.
func OpenCoach(_ context.Context, env Env) *Coach {
	return &Coach{
		env:     env,
		coach:   ai.NewCoach(env.completer(), env.Logger),
		history: mirror.Read[[]records.ChatMessage](env.Mirror, mirror.KeyCoachChat, nil),
	}
}

func (c *Coach) Name() string { return NameCoach }

// WaitLoaded returns at once; the coach reads only local state.
func (c *Coach) WaitLoaded(context.Context) error { return nil }

func (c *Coach) OnChange(fn func()) (unsubscribe func()) { return c.changed.add(fn) }

func (c *Coach) Close() {}

func (c *Coach) data() stats.Data {
	m := c.env.Mirror
	return stats.Data{
		Assignments: mirror.Read[[]records.Assignment](m, mirror.KeyAssignments, nil),
		Goals:       mirror.Read[[]records.Goal](m, mirror.KeyGoals, nil),
		Moods:       mirror.Read[[]records.MoodEntry](m, mirror.KeyMoodHistory, nil),
		Sessions:    mirror.Read[[]records.StudySession](m, mirror.KeyStudySessions, nil),
	}
}

func (c *Coach) userContext() coachContext {
	d := c.data()
	now := c.env.now()
	uc := coachContext{
		Assignments:        len(d.Assignments),
		UpcomingDeadlines:  len(stats.UpcomingDeadlines(d.Assignments, now)),
		Goals:              len(d.Goals),
		AvgGoalProgress:    stats.AverageGoalProgress(d.Goals),
		StudyHoursThisWeek: float64(stats.WeeklyStats(d.Sessions, now).TotalSeconds) / 3600,
	}
	for _, a := range d.Assignments {
		if a.Completed {
			uc.CompletedAssignments++
		}
	}
	if n := len(d.Moods); n > 0 {
		uc.RecentMood = d.Moods[n-1].Mood
	}
	return uc
}

// Advice returns today's advice cards.
func (c *Coach) Advice() []stats.Advice {
	return stats.DailyAdvice(c.data(), c.env.now())
}

// Insights reports performance over tf.
func (c *Coach) Insights(tf stats.Timeframe) stats.InsightReport {
	return stats.Insights(c.data(), tf, c.env.now())
}

// History returns the chat history, oldest first.
func (c *Coach) History() []records.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]records.ChatMessage(nil), c.history...)
}

// Ask answers question and appends the exchange to the history. Only one
// question is answered at a time; a concurrent call returns ai.ErrBusy.
func (c *Coach) Ask(ctx context.Context, question string) (records.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return records.ChatMessage{}, &records.ValidationError{Field: "question", Message: "is required"}
	}
	var msg records.ChatMessage
	err := c.gate.Do(func() error {
		answer, _ := c.coach.Ask(ctx, question, c.userContext())
		now := c.env.now()
		msg = records.ChatMessage{
			ID:        records.NewID(now),
			Question:  question,
			Response:  answer,
			Timestamp: now,
		}
		c.mu.Lock()
		c.history = append(c.history, msg)
		c.env.Mirror.Write(mirror.KeyCoachChat, c.history)
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		return records.ChatMessage{}, err
	}
	c.changed.notify()
	return msg, nil
}

// Tips asks for personalized study tips.
func (c *Coach) Tips(ctx context.Context) (string, error) {
	var tips string
	err := c.gate.Do(func() error {
		tips, _ = c.coach.StudyTips(ctx, c.userContext())
		return nil
	})
	return tips, err
}

// ClearHistory forgets the chat history.
func (c *Coach) ClearHistory() {
	c.mu.Lock()
	c.history = nil
	c.env.Mirror.Remove(mirror.KeyCoachChat)
	c.mu.Unlock()
	c.changed.notify()
}
