package modules

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// DraftJournal is the autosave kind of today's unsaved journal entry.
const DraftJournal = "journal"

// DefaultJournalMood preselects the journal mood.
const DefaultJournalMood = "good"

// Journal prompt categories.
const (
	PromptAccomplishments = "accomplishments"
	PromptGratitude       = "gratitude"
	PromptChallenges      = "challenges"
	PromptTomorrow        = "tomorrow"
)

var prompts = map[string][]string{
	PromptAccomplishments: {
		"What did I complete today that I'm proud of?",
		"What progress did I make on my goals?",
		"What new skill or knowledge did I gain?",
		"How did I help someone today?",
		"What challenge did I overcome?",
	},
	PromptGratitude: {
		"What am I most grateful for today?",
		"Who made my day better?",
		"What opportunity am I thankful for?",
		"What simple pleasure did I enjoy?",
		"What blessing did I notice today?",
	},
	PromptChallenges: {
		"What was difficult about today?",
		"What would I do differently?",
		"What did I learn from my mistakes?",
		"How can I improve tomorrow?",
		"What support do I need?",
	},
	PromptTomorrow: {
		"What's my main priority for tomorrow?",
		"How do I want to feel tomorrow?",
		"What will make tomorrow successful?",
		"What am I looking forward to?",
		"How will I take care of myself tomorrow?",
	},
}

// Prompts returns the prompts of category.
func Prompts(category string) ([]string, error) {
	p, ok := prompts[category]
	if !ok {
		return nil, fmt.Errorf("unknown prompt category %q", category)
	}
	return append([]string(nil), p...), nil
}

// RandomPrompt picks one prompt of category.
func RandomPrompt(category string) (string, error) {
	p, err := Prompts(category)
	if err != nil {
		return "", err
	}
	return p[rand.IntN(len(p))], nil
}

// Journal is the daily reflection journal.
type Journal struct {
	group
	env     Env
	entries *list[records.JournalEntry]
}

// OpenJournal opens the journal.
func OpenJournal(ctx context.Context, env Env) *Journal {
	j := &Journal{
		env:     env,
		entries: openList(ctx, env, records.CollectionJournalEntries, mirror.KeyJournalEntries, func(e records.JournalEntry) string { return e.ID }),
	}
	j.group = group{j.entries}
	return j
}

func (j *Journal) Name() string { return NameJournal }

// Close cancels a pending draft save and releases the subscription.
func (j *Journal) Close() {
	cancelDraft(j.env, DraftJournal)
	j.group.Close()
}

// Entries returns every entry in arrival order.
func (j *Journal) Entries() []records.JournalEntry {
	return j.entries.Items()
}

// Today returns today's saved entry.
func (j *Journal) Today() (records.JournalEntry, bool) {
	return j.entries.find(records.DateKey(j.env.now()))
}

// Save stores e as today's entry, replacing an earlier one, and finalizes
// the journal draft.
func (j *Journal) Save(ctx context.Context, e records.JournalEntry) (records.JournalEntry, error) {
	now := j.env.now()
	date := records.DateKey(now)
	e.ID = date
	e.Date = date
	e.Timestamp = now
	e.Mood = strings.TrimSpace(e.Mood)
	if e.Mood == "" {
		e.Mood = DefaultJournalMood
	}
	if err := e.Validate(); err != nil {
		return records.JournalEntry{}, err
	}
	j.entries.put(e)
	discardDraft(ctx, j.env, DraftJournal)
	return e, nil
}

// SaveDraft schedules e as the unsaved journal draft.
func (j *Journal) SaveDraft(e records.JournalEntry) {
	scheduleDraft(j.env, DraftJournal, e)
}

// LoadDraft returns the stored journal draft.
func (j *Journal) LoadDraft(ctx context.Context) (records.JournalEntry, bool, error) {
	return loadDraft[records.JournalEntry](ctx, j.env, DraftJournal)
}

// Streak counts consecutive journal days.
func (j *Journal) Streak() int {
	return stats.JournalStreak(j.Entries(), j.env.now())
}

// Insights summarizes recent entries once there are enough of them.
func (j *Journal) Insights() (stats.JournalSummary, bool) {
	return stats.JournalInsights(j.Entries())
}
