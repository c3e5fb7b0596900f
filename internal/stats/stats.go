// Package stats derives planner statistics from record lists.
//
// Every function is pure: results depend only on the arguments (including
// the caller's notion of now) and inputs are never modified.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/loveeagles/planner/internal/records"
)

const day = 24 * time.Hour

// Deadline windows, in days.
const (
	UpcomingWindow = 7
	UrgentWindow   = 3
)

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Rate returns completed/total as a percentage with one decimal, or 0 when
// total is 0.
func Rate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(completed) / float64(total) * 100)
}

// CompletionRate is the share of completed assignments, in percent.
func CompletionRate(assignments []records.Assignment) float64 {
	done := 0
	for _, a := range assignments {
		if a.Completed {
			done++
		}
	}
	return Rate(done, len(assignments))
}

// AverageGoalProgress is the mean goal progress, or 0 with no goals.
func AverageGoalProgress(goals []records.Goal) float64 {
	if len(goals) == 0 {
		return 0
	}
	sum := 0
	for _, g := range goals {
		sum += g.Progress
	}
	return round1(float64(sum) / float64(len(goals)))
}

// startOfDay returns local midnight of t's day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// ConsecutiveDays counts the run of calendar days ending today that appear
// in days (DateLayout keys). A missing today yields 0.
func ConsecutiveDays(days []string, now time.Time) int {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	streak := 0
	for d := startOfDay(now); set[records.DateKey(d)]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// StudyStreak is ConsecutiveDays over the session dates.
func StudyStreak(sessions []records.StudySession, now time.Time) int {
	days := make([]string, len(sessions))
	for i, s := range sessions {
		days[i] = s.Date
	}
	return ConsecutiveDays(days, now)
}

// JournalStreakLimit caps how far back JournalStreak looks.
const JournalStreakLimit = 30

// JournalStreak counts consecutive journal days. Unlike ConsecutiveDays a
// missing entry for today does not break the run, so a streak that ended
// yesterday still counts until the day is over.
func JournalStreak(entries []records.JournalEntry, now time.Time) int {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.Date] = true
	}
	streak := 0
	d := startOfDay(now)
	for i := 0; i < JournalStreakLimit; i++ {
		if set[records.DateKey(d)] {
			streak++
		} else if i > 0 {
			break
		}
		d = d.AddDate(0, 0, -1)
	}
	return streak
}

// DaysUntil returns ceil((due-now)/24h).
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// Deadlines returns the incomplete assignments due within window days
// (0 <= DaysUntil <= window), sorted by due date. Ties keep input order and
// assignments with an unparseable due date are skipped.
func Deadlines(assignments []records.Assignment, now time.Time, window int) []records.Assignment {
	type dated struct {
		a   records.Assignment
		due time.Time
	}
	var hits []dated
	for _, a := range assignments {
		if a.Completed {
			continue
		}
		due, err := a.Due()
		if err != nil {
			continue
		}
		if n := DaysUntil(due, now); n >= 0 && n <= window {
			hits = append(hits, dated{a: a, due: due})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].due.Before(hits[j].due) })

	out := make([]records.Assignment, len(hits))
	for i, h := range hits {
		out[i] = h.a
	}
	return out
}

// UpcomingDeadlines is Deadlines with the 7-day window.
func UpcomingDeadlines(assignments []records.Assignment, now time.Time) []records.Assignment {
	return Deadlines(assignments, now, UpcomingWindow)
}

// UrgentAssignments is Deadlines with the 3-day window.
func UrgentAssignments(assignments []records.Assignment, now time.Time) []records.Assignment {
	return Deadlines(assignments, now, UrgentWindow)
}

// SubjectTime is the study time spent on one subject.
type SubjectTime struct {
	Subject string
	Seconds int
}

// SubjectBreakdown totals session time per subject, largest first. Ties keep
// first-seen order.
func SubjectBreakdown(sessions []records.StudySession) []SubjectTime {
	idx := make(map[string]int)
	var out []SubjectTime
	for _, s := range sessions {
		i, ok := idx[s.Subject]
		if !ok {
			i = len(out)
			idx[s.Subject] = i
			out = append(out, SubjectTime{Subject: s.Subject})
		}
		out[i].Seconds += s.Duration
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seconds > out[j].Seconds })
	return out
}

// SessionTotals summarizes a set of study sessions.
type SessionTotals struct {
	TotalSeconds int
	SessionCount int
	// AvgDailySeconds is TotalSeconds spread over the period's days.
	AvgDailySeconds int
}

// TodayStats sums today's sessions.
func TodayStats(sessions []records.StudySession, now time.Time) SessionTotals {
	today := records.DateKey(now)
	var t SessionTotals
	for _, s := range sessions {
		if s.Date == today {
			t.TotalSeconds += s.Duration
			t.SessionCount++
		}
	}
	t.AvgDailySeconds = t.TotalSeconds
	return t
}

// WeeklyStats sums sessions dated within the last 7 days.
func WeeklyStats(sessions []records.StudySession, now time.Time) SessionTotals {
	start := now.Add(-7 * day)
	var t SessionTotals
	for _, s := range sessions {
		d, err := records.ParseDate(s.Date)
		if err != nil || d.Before(startOfDay(start)) {
			continue
		}
		t.TotalSeconds += s.Duration
		t.SessionCount++
	}
	t.AvgDailySeconds = t.TotalSeconds / 7
	return t
}

// dayIndex numbers calendar days so rotating picks change once a day.
func dayIndex(now time.Time) int {
	y, m, d := now.Local().Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(day/time.Second))
}
