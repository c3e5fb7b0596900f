package stats

import (
	"time"

	"github.com/loveeagles/planner/internal/records"
)

// DailyLogin applies a login at now to s. A login on the same day leaves s
// unchanged and reports false. A login exactly one calendar day after the
// last extends the streak; any other gap restarts it at 1.
func DailyLogin(s records.StreakState, now time.Time) (records.StreakState, bool) {
	today := records.DateKey(now)
	if s.LastLoginDate == today {
		return s, false
	}

	yesterday := records.DateKey(startOfDay(now).AddDate(0, 0, -1))
	if s.LastLoginDate == yesterday {
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastLoginDate = today
	s.TotalLogins++
	return s, true
}
