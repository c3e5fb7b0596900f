package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/loveeagles/planner/internal/records"
)

// Recommendation is the task and wellbeing advice for a mood.
type Recommendation struct {
	Tasks string
	Tip   string
}

var moodRecommendations = map[string]Recommendation{
	"happy": {
		Tasks: "Perfect time for challenging tasks! Your positive mood will help you tackle complex problems.",
		Tip:   "Channel this energy into your most important goals today!",
	},
	"calm": {
		Tasks: "Great for focused study sessions and detailed work. Your calm state is perfect for concentration.",
		Tip:   "This is an ideal time for deep learning and reflection.",
	},
	"neutral": {
		Tasks: "Good for routine tasks and review work. Maintain steady progress.",
		Tip:   "A balanced day - perfect for maintaining your study routine.",
	},
	"sad": {
		Tasks: "Consider lighter tasks today. Maybe review notes or organize your study materials.",
		Tip:   "Be gentle with yourself. Small progress is still progress.",
	},
	"stressed": {
		Tasks: "Take breaks frequently. Focus on one task at a time to avoid overwhelm.",
		Tip:   "Try some breathing exercises or a short walk. You've got this!",
	},
	"tired": {
		Tasks: "Light review work or planning for tomorrow. Don't push too hard today.",
		Tip:   "Rest is productive too. Consider an early night tonight.",
	},
}

// MoodRecommendation returns the advice for mood.
func MoodRecommendation(mood string) (Recommendation, bool) {
	r, ok := moodRecommendations[mood]
	return r, ok
}

var quotes = []string{
	"Success is not final, failure is not fatal: it is the courage to continue that counts. - Winston Churchill",
	"The only way to do great work is to love what you do. - Steve Jobs",
	"Believe you can and you're halfway there. - Theodore Roosevelt",
	"In God we trust, in ourselves we believe. - Love Eagles",
	"Every expert was once a beginner. Keep going!",
	"Your future self will thank you for the work you do today.",
}

// DailyQuote returns the quote of the day. It changes at local midnight.
func DailyQuote(now time.Time) string {
	return quotes[dayIndex(now)%len(quotes)]
}

// Period is a coarse time of day.
type Period int

const (
	Morning Period = iota
	Afternoon
	Evening
)

func (p Period) String() string {
	switch p {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	default:
		return "evening"
	}
}

// PeriodOf classifies the local hour of t: 06-12 morning, 12-17 afternoon,
// anything else evening.
func PeriodOf(t time.Time) Period {
	h := t.Local().Hour()
	switch {
	case h >= 6 && h < 12:
		return Morning
	case h >= 12 && h < 17:
		return Afternoon
	default:
		return Evening
	}
}

// Advice is one coaching card.
type Advice struct {
	Type     string // time, progress, wellness, study
	Title    string
	Message  string
	Priority string
}

// DailyAdvice builds the coach's cards from current data. The last mood
// entry and the last seven sessions drive the wellness and study cards.
func DailyAdvice(d Data, now time.Time) []Advice {
	var advice []Advice

	switch PeriodOf(now) {
	case Morning:
		advice = append(advice, Advice{"time", "Good Morning, Love Eagles!",
			"Your brain is at peak performance in the morning. This is the perfect time to tackle your most challenging subjects. In God we trust, and with focus, you can achieve anything!",
			records.PriorityHigh})
	case Afternoon:
		advice = append(advice, Advice{"time", "Afternoon Focus Time",
			"Great time for active learning and group study. Your energy is stable - perfect for collaborative work with your study partner!",
			records.PriorityMedium})
	default:
		advice = append(advice, Advice{"time", "Evening Reflection",
			"Wind down with light review and planning for tomorrow. Reflect on today's achievements and set intentions for tomorrow.",
			records.PriorityLow})
	}

	rate := CompletionRate(d.Assignments)
	switch {
	case rate >= 80:
		advice = append(advice, Advice{"progress", "Outstanding Progress!",
			"You're crushing your goals! Your dedication is inspiring. Keep this momentum going and remember to celebrate your wins.",
			records.PriorityHigh})
	case rate >= 60:
		advice = append(advice, Advice{"progress", "Steady Progress",
			"You're making good progress! Consider breaking larger tasks into smaller chunks to boost your completion rate.",
			records.PriorityMedium})
	default:
		advice = append(advice, Advice{"progress", "Let's Boost Your Progress",
			"Every journey starts with a single step. Focus on completing one small task today. You've got this, Love Eagles!",
			records.PriorityHigh})
	}

	if n := len(d.Moods); n > 0 {
		switch e := d.Moods[n-1].Energy; {
		case e < 5:
			advice = append(advice, Advice{"wellness", "Self-Care Reminder",
				"Your energy seems low. Remember that rest is productive too. Take breaks, stay hydrated, and be kind to yourself.",
				records.PriorityHigh})
		case e >= 8:
			advice = append(advice, Advice{"wellness", "High Energy Alert!",
				"You're feeling great! This is perfect timing for tackling challenging projects or learning new concepts.",
				records.PriorityMedium})
		}
	}

	recent := d.Sessions
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	if len(recent) > 0 {
		total := 0
		for _, s := range recent {
			total += s.Duration
		}
		switch avg := total / len(recent); {
		case avg < 30*60:
			advice = append(advice, Advice{"study", "Extend Your Focus Time",
				"Try gradually increasing your study sessions. Aim for 25-45 minute focused blocks with short breaks.",
				records.PriorityMedium})
		case avg > 2*60*60:
			advice = append(advice, Advice{"study", "Break It Up!",
				"Long study sessions are great, but remember to take regular breaks to maintain focus and prevent burnout.",
				records.PriorityMedium})
		}
	}
	return advice
}

// Suggestion is one smart-task card.
type Suggestion struct {
	ID          string
	Type        string // time, urgent, goal, pattern
	Title       string
	Description string
	Priority    string
}

// Suggestions builds the smart-task list: a time-of-day card, one card per
// urgent assignment, one incomplete goal and a pomodoro card. The goal is
// picked by day so the list is stable within a day.
func Suggestions(assignments []records.Assignment, goals []records.Goal, now time.Time) []Suggestion {
	var out []Suggestion

	switch PeriodOf(now) {
	case Morning:
		out = append(out, Suggestion{"time-morning", "time", "Morning Focus Session",
			"Your brain is fresh! Perfect time for complex problem-solving tasks.", records.PriorityHigh})
	case Afternoon:
		out = append(out, Suggestion{"time-afternoon", "time", "Afternoon Review",
			"Great time to review notes and consolidate learning.", records.PriorityMedium})
	default:
		out = append(out, Suggestion{"time-evening", "time", "Evening Planning",
			"Plan tomorrow's tasks and do light reading.", records.PriorityLow})
	}

	for _, a := range UrgentAssignments(assignments, now) {
		out = append(out, Suggestion{"urgent-" + a.ID, "urgent", "Focus on: " + a.Title,
			"Due soon! Break this into smaller tasks.", records.PriorityUrgent})
	}

	var open []records.Goal
	for _, g := range goals {
		if !g.Completed && g.Progress < 100 {
			open = append(open, g)
		}
	}
	if len(open) > 0 {
		g := open[dayIndex(now)%len(open)]
		out = append(out, Suggestion{"goal-" + g.ID, "goal", "Work on Goal Progress",
			"Continue working on: " + g.Text, records.PriorityMedium})
	}

	out = append(out, Suggestion{"pomodoro", "pattern", "Pomodoro Session",
		"Start a focused 25-minute study session with breaks.", records.PriorityHigh})
	return out
}

// JournalSummary describes recent journal entries.
type JournalSummary struct {
	DominantMood string
	TopWords     []string
	EntryCount   int
}

// JournalInsights summarizes the seven newest entries. It needs at least
// three entries overall.
func JournalInsights(entries []records.JournalEntry) (JournalSummary, bool) {
	if len(entries) < 3 {
		return JournalSummary{}, false
	}
	recent := make([]records.JournalEntry, len(entries))
	copy(recent, entries)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Timestamp.After(recent[j].Timestamp) })
	if len(recent) > 7 {
		recent = recent[:7]
	}

	moods := newCounter()
	words := newCounter()
	for _, e := range recent {
		moods.add(e.Mood)
		text := strings.ToLower(e.Accomplishments + " " + e.Gratitude)
		for _, w := range strings.FieldsFunc(text, notWordChar) {
			if len(w) > 3 {
				words.add(w)
			}
		}
	}

	return JournalSummary{
		DominantMood: firstOrEmpty(moods.top(1)),
		TopWords:     words.top(3),
		EntryCount:   len(recent),
	}, true
}

func notWordChar(r rune) bool {
	return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// counter counts keys and remembers first-seen order for ties.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(k string) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

func (c *counter) top(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
