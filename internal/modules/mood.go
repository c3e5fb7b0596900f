package modules

import (
	"context"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// DefaultEnergy is the energy level preselected in the mood form.
const DefaultEnergy = 5

// Mood is the daily mood tracker.
type Mood struct {
	group
	env     Env
	entries *list[records.MoodEntry]
}

// OpenMood opens the mood tracker.
func OpenMood(ctx context.Context, env Env) *Mood {
	m := &Mood{
		env:     env,
		entries: openList(ctx, env, records.CollectionMoods, mirror.KeyMoodHistory, func(e records.MoodEntry) string { return e.ID }),
	}
	m.group = group{m.entries}
	return m
}

func (m *Mood) Name() string { return NameMood }

// History returns every entry in arrival order.
func (m *Mood) History() []records.MoodEntry {
	return m.entries.Items()
}

// Log records today's mood, replacing an earlier entry from the same day.
func (m *Mood) Log(mood string, energy int) (records.MoodEntry, error) {
	now := m.env.now()
	date := records.DateKey(now)
	e := records.MoodEntry{
		ID:        date,
		Date:      date,
		Mood:      mood,
		Energy:    energy,
		Timestamp: now,
	}
	if err := e.Validate(); err != nil {
		return records.MoodEntry{}, err
	}
	m.entries.put(e)
	return e, nil
}

// Today returns today's entry.
func (m *Mood) Today() (records.MoodEntry, bool) {
	return m.entries.find(records.DateKey(m.env.now()))
}

// Recommendation returns the advice for today's mood.
func (m *Mood) Recommendation() (stats.Recommendation, bool) {
	e, ok := m.Today()
	if !ok {
		return stats.Recommendation{}, false
	}
	return stats.MoodRecommendation(e.Mood)
}

// Quote returns the quote of the day.
func (m *Mood) Quote() string {
	return stats.DailyQuote(m.env.now())
}

// Recent returns up to n entries, newest last.
func (m *Mood) Recent(n int) []records.MoodEntry {
	h := m.History()
	if len(h) > n {
		h = h[len(h)-n:]
	}
	return h
}
