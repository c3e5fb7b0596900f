package records

import (
	"strings"
	"time"
)

// Assignment priorities, most pressing first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Priorities lists the accepted assignment priorities.
var Priorities = []string{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// AssignmentTypes lists the accepted assignment kinds.
var AssignmentTypes = []string{"assignment", "exam", "project", "quiz"}

// Subjects offered by the notes module.
var Subjects = []string{
	"Mathematics", "Physics", "Chemistry", "Biology",
	"Computer Science", "Literature", "History",
}

// DefaultCollaborators are attached to every new note.
var DefaultCollaborators = []string{"Uche Nora", "Chikamso Chidebe"}

// Moods accepted by the mood tracker.
var Moods = []string{"happy", "calm", "neutral", "sad", "stressed", "tired"}

// JournalMoods accepted by the reflection journal.
var JournalMoods = []string{"excellent", "good", "okay", "challenging", "difficult"}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "must be one of %s (got %q)", strings.Join(allowed, ", "), value)
}

// Assignment is a dated piece of coursework.
type Assignment struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	DueDate   string    `json:"dueDate"` // DateLayout or RFC 3339
	Priority  string    `json:"priority"`
	Type      string    `json:"type"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Due parses DueDate. Date-only values are local midnight.
func (a *Assignment) Due() (time.Time, error) {
	return ParseDate(a.DueDate)
}

// Normalize fills defaulted fields.
func (a *Assignment) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Subject = strings.TrimSpace(a.Subject)
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	if a.Type == "" {
		a.Type = "assignment"
	}
}

// Validate checks the assignment before it is written.
func (a *Assignment) Validate() error {
	if a.ID == "" {
		return invalid("id", "is required")
	}
	if err := required("title", a.Title); err != nil {
		return err
	}
	if err := required("subject", a.Subject); err != nil {
		return err
	}
	if err := required("dueDate", a.DueDate); err != nil {
		return err
	}
	if _, err := a.Due(); err != nil {
		return invalid("dueDate", "%v", err)
	}
	if err := oneOf("priority", a.Priority, Priorities); err != nil {
		return err
	}
	return oneOf("type", a.Type, AssignmentTypes)
}

// Goal is a semester goal with percentage progress.
type Goal struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the goal before it is written.
func (g *Goal) Validate() error {
	if g.ID == "" {
		return invalid("id", "is required")
	}
	if err := required("text", g.Text); err != nil {
		return err
	}
	if g.Progress < 0 || g.Progress > 100 {
		return invalid("progress", "must be between 0 and 100 (got %d)", g.Progress)
	}
	return nil
}

// Note is a shared study note.
type Note struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Subject       string    `json:"subject"`
	Tags          []string  `json:"tags"`
	Attachments   []string  `json:"attachments"`
	Collaborators []string  `json:"collaborators"`
	LastModified  time.Time `json:"lastModified"`
}

// Validate checks the note before it is written.
func (n *Note) Validate() error {
	if n.ID == "" {
		return invalid("id", "is required")
	}
	if err := required("title", n.Title); err != nil {
		return err
	}
	return required("content", n.Content)
}

// MoodEntry is one day's mood. The id is the date, so a second entry on the
// same day replaces the first.
type MoodEntry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Mood      string    `json:"mood"`
	Energy    int       `json:"energy"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the entry before it is written.
func (m *MoodEntry) Validate() error {
	if err := required("date", m.Date); err != nil {
		return err
	}
	if err := oneOf("mood", m.Mood, Moods); err != nil {
		return err
	}
	if m.Energy < 1 || m.Energy > 10 {
		return invalid("energy", "must be between 1 and 10 (got %d)", m.Energy)
	}
	return nil
}

// StudySession is one finished timer session. Duration is in seconds.
type StudySession struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Task      string    `json:"task,omitempty"`
	Duration  int       `json:"duration"`
	Date      string    `json:"date"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Validate checks the session before it is written.
func (s *StudySession) Validate() error {
	if s.ID == "" {
		return invalid("id", "is required")
	}
	if err := required("subject", s.Subject); err != nil {
		return err
	}
	if s.Duration < 0 {
		return invalid("duration", "must not be negative (got %d)", s.Duration)
	}
	return required("date", s.Date)
}

// JournalEntry is one day's reflection. The id is the date.
type JournalEntry struct {
	ID              string    `json:"id"`
	Accomplishments string    `json:"accomplishments"`
	Gratitude       string    `json:"gratitude"`
	Challenges      string    `json:"challenges"`
	Tomorrow        string    `json:"tomorrow"`
	Mood            string    `json:"mood"`
	Date            string    `json:"date"`
	Timestamp       time.Time `json:"timestamp"`
}

// Empty reports whether every text field is blank.
func (j *JournalEntry) Empty() bool {
	return strings.TrimSpace(j.Accomplishments+j.Gratitude+j.Challenges+j.Tomorrow) == ""
}

// Validate checks the entry before it is written.
func (j *JournalEntry) Validate() error {
	if err := required("date", j.Date); err != nil {
		return err
	}
	if j.Empty() {
		return invalid("entry", "at least one section must be filled in")
	}
	if j.Mood == "" {
		return nil
	}
	return oneOf("mood", j.Mood, JournalMoods)
}

// Question is one multiple-choice question. Correct indexes Options.
type Question struct {
	ID          int      `json:"id,omitempty"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
	Type        string   `json:"type,omitempty"`
	Context     string   `json:"context,omitempty"`
}

// Complete reports whether the question and all four options are filled in
// and Correct is in range.
func (q *Question) Complete() bool {
	if strings.TrimSpace(q.Question) == "" || len(q.Options) != 4 {
		return false
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return false
		}
	}
	return q.Correct >= 0 && q.Correct < len(q.Options)
}

// MinQuizQuestions is the fewest complete questions a saved quiz may have.
const MinQuizQuestions = 5

// Attempt is one user's result stored inside the quiz document.
type Attempt struct {
	Score       int            `json:"score"`
	Answers     map[string]int `json:"answers,omitempty"`
	CompletedAt time.Time      `json:"completedAt"`
	UserName    string         `json:"userName,omitempty"`
}

// Quiz is a shared quiz in the top-level quizzes collection.
type Quiz struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Questions []Question         `json:"questions"`
	CreatedBy string             `json:"createdBy"`
	CreatedAt time.Time          `json:"createdAt"`
	Source    string             `json:"source,omitempty"` // manual, topic, text
	Scores    map[string]Attempt `json:"scores"`
}

// Validate checks the quiz before it is written.
func (q *Quiz) Validate() error {
	if q.ID == "" {
		return invalid("id", "is required")
	}
	if err := required("title", q.Title); err != nil {
		return err
	}
	complete := 0
	for i := range q.Questions {
		if q.Questions[i].Complete() {
			complete++
		}
	}
	if complete < MinQuizQuestions {
		return invalid("questions", "at least %d complete questions are required (got %d)", MinQuizQuestions, complete)
	}
	return nil
}

// QuizScore is one finished attempt in the top-level quiz-scores collection.
type QuizScore struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	Score       int       `json:"score"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completedAt"`
}

// StreakState is the login streak stored at streaks/<userID>.
// TotalTimeSpent is in minutes.
type StreakState struct {
	ID             string `json:"id,omitempty"`
	CurrentStreak  int    `json:"currentStreak"`
	LongestStreak  int    `json:"longestStreak"`
	LastLoginDate  string `json:"lastLoginDate"`
	TotalLogins    int    `json:"totalLogins"`
	TasksCompleted int    `json:"tasksCompleted"`
	TotalTimeSpent int    `json:"totalTimeSpent"`
}

// NewStreak returns the state of a user's first login.
func NewStreak(now time.Time) StreakState {
	return StreakState{
		CurrentStreak: 1,
		LongestStreak: 1,
		LastLoginDate: DateKey(now),
		TotalLogins:   1,
	}
}

// Hours returns TotalTimeSpent in hours.
func (s StreakState) Hours() float64 {
	return float64(s.TotalTimeSpent) / 60
}

// ChatMessage is one exchange with the study coach.
type ChatMessage struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
