package stats

import (
	"math"
	"sort"
	"time"

	"github.com/loveeagles/planner/internal/records"
)

// QuizScore grades answers (question index to option index) against
// questions and returns the rounded percentage and the number correct.
// Unanswered questions count as wrong.
func QuizScore(questions []records.Question, answers map[int]int) (score, correct int) {
	if len(questions) == 0 {
		return 0, 0
	}
	for i, q := range questions {
		if a, ok := answers[i]; ok && a == q.Correct {
			correct++
		}
	}
	score = int(math.Round(float64(correct) / float64(len(questions)) * 100))
	return score, correct
}

// ScoreBadge labels a quiz score.
func ScoreBadge(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Average"
	default:
		return "Needs Work"
	}
}

// QuizSummary aggregates one user's quiz scores.
type QuizSummary struct {
	TotalQuizzes int
	AverageScore int
	HighestScore int
	RecentTests  int // completed within the last 7 days
}

// SplitScores separates userID's scores from everyone else's, both newest
// first. At most partnerLimit partner scores are returned; 0 means no limit.
func SplitScores(scores []records.QuizScore, userID string, partnerLimit int) (mine, partners []records.QuizScore) {
	for _, s := range scores {
		if s.UserID == userID {
			mine = append(mine, s)
		} else {
			partners = append(partners, s)
		}
	}
	newestFirst := func(list []records.QuizScore) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].CompletedAt.After(list[j].CompletedAt) })
	}
	newestFirst(mine)
	newestFirst(partners)
	if partnerLimit > 0 && len(partners) > partnerLimit {
		partners = partners[:partnerLimit]
	}
	return mine, partners
}

// QuizStats summarizes scores, which should all belong to one user.
func QuizStats(scores []records.QuizScore, now time.Time) QuizSummary {
	if len(scores) == 0 {
		return QuizSummary{}
	}
	weekAgo := now.AddDate(0, 0, -7)
	sum := 0
	s := QuizSummary{TotalQuizzes: len(scores), HighestScore: scores[0].Score}
	for _, sc := range scores {
		sum += sc.Score
		if sc.Score > s.HighestScore {
			s.HighestScore = sc.Score
		}
		if !sc.CompletedAt.Before(weekAgo) {
			s.RecentTests++
		}
	}
	s.AverageScore = int(math.Round(float64(sum) / float64(len(scores))))
	return s
}
