package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/loveeagles/planner/internal/records"
)

// Timeframe selects the look-back window of Insights.
type Timeframe string

const (
	Week  Timeframe = "week"
	Month Timeframe = "month"
	Year  Timeframe = "year"
)

// Days returns the window length. Unknown values count as a week.
func (t Timeframe) Days() int {
	switch t {
	case Month:
		return 30
	case Year:
		return 365
	default:
		return 7
	}
}

// ParseTimeframe accepts week, month or year.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(strings.ToLower(s)); tf {
	case Week, Month, Year:
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe %q (want week, month or year)", s)
}

// SubjectStat counts assignments per subject.
type SubjectStat struct {
	Subject   string
	Total     int
	Completed int
}

// Ratio is Completed/Total.
func (s SubjectStat) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Data is the input to Insights.
type Data struct {
	Assignments []records.Assignment
	Goals       []records.Goal
	Moods       []records.MoodEntry
	Sessions    []records.StudySession
}

// InsightReport is the performance summary for one timeframe.
type InsightReport struct {
	Timeframe            Timeframe
	CompletionRate       float64
	AvgGoalProgress      float64
	TotalStudyHours      float64
	AvgDailyHours        float64
	AvgMood              float64 // mean energy of recent mood entries
	Subjects             []SubjectStat
	TotalAssignments     int
	CompletedAssignments int
	TotalGoals           int
	RecentSessions       int
}

// Insights computes the report. Assignment and goal figures cover every
// record; study and mood figures cover only the timeframe.
func Insights(d Data, tf Timeframe, now time.Time) InsightReport {
	days := tf.Days()
	start := now.Add(-time.Duration(days) * day)

	r := InsightReport{
		Timeframe:        tf,
		CompletionRate:   CompletionRate(d.Assignments),
		AvgGoalProgress:  AverageGoalProgress(d.Goals),
		TotalAssignments: len(d.Assignments),
		TotalGoals:       len(d.Goals),
	}

	idx := make(map[string]int)
	for _, a := range d.Assignments {
		if a.Completed {
			r.CompletedAssignments++
		}
		if a.Subject == "" {
			continue
		}
		i, ok := idx[a.Subject]
		if !ok {
			i = len(r.Subjects)
			idx[a.Subject] = i
			r.Subjects = append(r.Subjects, SubjectStat{Subject: a.Subject})
		}
		r.Subjects[i].Total++
		if a.Completed {
			r.Subjects[i].Completed++
		}
	}

	seconds := 0
	for _, s := range d.Sessions {
		date, err := records.ParseDate(s.Date)
		if err != nil || date.Before(start) {
			continue
		}
		seconds += s.Duration
		r.RecentSessions++
	}
	hours := float64(seconds) / 3600
	r.TotalStudyHours = round1(hours)
	r.AvgDailyHours = round1(hours / float64(days))

	energy, n := 0, 0
	for _, m := range d.Moods {
		if m.Timestamp.Before(start) {
			continue
		}
		energy += m.Energy
		n++
	}
	if n > 0 {
		r.AvgMood = round1(float64(energy) / float64(n))
	}
	return r
}

// WeakestSubject returns the subject with the lowest completion ratio.
// Ties go to the subject seen first.
func (r InsightReport) WeakestSubject() (SubjectStat, bool) {
	if len(r.Subjects) == 0 {
		return SubjectStat{}, false
	}
	weakest := r.Subjects[0]
	for _, s := range r.Subjects[1:] {
		if s.Ratio() < weakest.Ratio() {
			weakest = s
		}
	}
	return weakest, true
}

// PerformanceLevel labels a completion rate.
func PerformanceLevel(rate float64) string {
	switch {
	case rate >= 90:
		return "Excellent"
	case rate >= 75:
		return "Good"
	case rate >= 60:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// MotivationalMessage matches PerformanceLevel.
func MotivationalMessage(rate float64) string {
	switch {
	case rate >= 90:
		return "Outstanding work! You're crushing your goals!"
	case rate >= 75:
		return "Great progress! Keep up the excellent work!"
	case rate >= 60:
		return "Good effort! A little more focus and you'll excel!"
	default:
		return "Every step counts! You're building great habits!"
	}
}

// StudyTips returns targeted tips for a report, or a single encouragement
// when nothing needs attention.
func StudyTips(r InsightReport) []string {
	var tips []string
	if r.AvgDailyHours < 2 {
		tips = append(tips, "Try to increase your daily study time gradually")
	}
	if r.AvgMood < 6 {
		tips = append(tips, "Consider taking more breaks and practicing self-care")
	}
	if r.CompletionRate < 70 {
		tips = append(tips, "Break large tasks into smaller, manageable chunks")
	}
	if w, ok := r.WeakestSubject(); ok && w.Ratio() < 0.7 {
		tips = append(tips, "Focus more attention on "+w.Subject)
	}
	if len(tips) == 0 {
		return []string{"You're doing great! Keep maintaining your excellent habits!"}
	}
	return tips
}
