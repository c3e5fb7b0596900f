package modules

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/binder"
	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
)

// BlankQuestions is the number of empty questions offered by the quiz
// editor.
const BlankQuestions = 16

// PartnerScoreLimit bounds the partner scores shown on the dashboard.
const PartnerScoreLimit = 5

// ResultsThreshold is how many users must finish a quiz before everyone's
// results are shown.
const ResultsThreshold = 2

// Quiz sources.
const (
	SourceManual = "manual"
	SourceTopic  = "topic"
	SourceText   = "text"
)

var (
	quizzesPath = docstore.TopLevel(docstore.CollectionQuizzes)
	scoresPath  = docstore.TopLevel(docstore.CollectionQuizScores)
)

// BlankQuiz returns n empty questions with four empty options each.
func BlankQuiz(n int) []records.Question {
	qs := make([]records.Question, n)
	for i := range qs {
		qs[i] = records.Question{ID: i + 1, Options: make([]string, 4)}
	}
	return qs
}

// view adapts a top-level subscription to the module lifecycle.
type view struct {
	sub *binder.Subscription
}

func (v view) WaitLoaded(ctx context.Context) error {
	if v.sub == nil {
		return nil
	}
	return v.sub.WaitLoaded(ctx)
}

func (v view) OnChange(fn func()) func() {
	if v.sub == nil {
		return func() {}
	}
	return v.sub.OnChange(func([]docstore.Record) { fn() })
}

func (v view) Close() {
	if v.sub != nil {
		v.sub.Close()
	}
}

func (v view) records() []docstore.Record {
	if v.sub == nil {
		return nil
	}
	return v.sub.Records()
}

// QuizResult is the outcome of one submission.
type QuizResult struct {
	Score   int
	Correct int
	Total   int
	Badge   string
	// Finished counts users who have completed the quiz.
	Finished int
	// ShowResults is true once ResultsThreshold users have finished.
	ShowResults bool
}

// Quizzes manages shared quizzes and their scores. Quizzes live in
// top-level collections so study partners see each other's.
type Quizzes struct {
	group
	env    Env
	logger *log.Logger
	gate   ai.Gate

	quizzes view
	scores  view
}

// OpenQuiz opens the quiz module. Without a signed-in user nothing is
// loaded.
func OpenQuiz(ctx context.Context, env Env) *Quizzes {
	q := &Quizzes{env: env, logger: logger.Named(env.Logger, "modules.quiz")}
	if env.UserID != "" && env.Binder != nil {
		q.quizzes = view{env.Binder.SubscribePath(ctx, quizzesPath)}
		q.scores = view{env.Binder.SubscribePath(ctx, scoresPath)}
	}
	q.group = group{q.quizzes, q.scores}
	return q
}

func (q *Quizzes) Name() string { return NameQuiz }

// List returns every quiz, newest first.
func (q *Quizzes) List() []records.Quiz {
	list, skipped := records.Decode[records.Quiz](q.quizzes.records())
	if skipped > 0 {
		q.logger.Warn("skipping undecodable quizzes", "count", skipped)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// Get fetches one quiz from the store.
func (q *Quizzes) Get(ctx context.Context, id string) (records.Quiz, error) {
	if q.env.UserID == "" {
		return records.Quiz{}, ErrSignedOut
	}
	rec, err := q.env.Binder.Store().Get(ctx, quizzesPath, id)
	if err != nil {
		return records.Quiz{}, fmt.Errorf("failed to load quiz %s: %w", id, err)
	}
	return records.FromRecord[records.Quiz](rec)
}

// Create saves a quiz built from the complete questions in questions.
// At least records.MinQuizQuestions must be complete.
func (q *Quizzes) Create(ctx context.Context, title string, questions []records.Question, source string) (records.Quiz, error) {
	if q.env.UserID == "" {
		return records.Quiz{}, ErrSignedOut
	}
	var complete []records.Question
	for _, qu := range questions {
		if qu.Complete() {
			qu.ID = len(complete) + 1
			complete = append(complete, qu)
		}
	}
	if source == "" {
		source = SourceManual
	}
	quiz := records.Quiz{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Questions: complete,
		CreatedBy: q.env.UserID,
		CreatedAt: q.env.now(),
		Source:    source,
		Scores:    map[string]records.Attempt{},
	}
	if err := quiz.Validate(); err != nil {
		return records.Quiz{}, err
	}
	rec, err := records.ToRecord(quiz)
	if err != nil {
		return records.Quiz{}, err
	}
	if err := q.env.Binder.WritePath(ctx, quizzesPath, quiz.ID, rec); err != nil {
		return records.Quiz{}, err
	}
	return quiz, nil
}

// Delete removes a quiz created by the current user.
func (q *Quizzes) Delete(ctx context.Context, id string) error {
	quiz, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if quiz.CreatedBy != q.env.UserID {
		return fmt.Errorf("quiz %s belongs to another user", id)
	}
	return q.env.Binder.DeletePath(ctx, quizzesPath, id)
}

// Submit grades answers (question index to option index), records the
// attempt in the quiz document and appends a quiz-scores entry.
func (q *Quizzes) Submit(ctx context.Context, quizID string, answers map[int]int) (QuizResult, error) {
	quiz, err := q.Get(ctx, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	score, correct := stats.QuizScore(quiz.Questions, answers)
	now := q.env.now()

	stored := make(map[string]int, len(answers))
	for i, a := range answers {
		stored[strconv.Itoa(i)] = a
	}
	if quiz.Scores == nil {
		quiz.Scores = map[string]records.Attempt{}
	}
	quiz.Scores[q.env.UserID] = records.Attempt{
		Score:       score,
		Answers:     stored,
		CompletedAt: now,
		UserName:    q.env.UserName,
	}
	rec, err := records.ToRecord(quiz)
	if err != nil {
		return QuizResult{}, err
	}
	if err := q.env.Binder.WritePath(ctx, quizzesPath, quiz.ID, rec); err != nil {
		return QuizResult{}, err
	}

	entry := records.QuizScore{
		ID:          uuid.NewString(),
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		UserID:      q.env.UserID,
		UserName:    q.env.UserName,
		Score:       score,
		Correct:     correct,
		Total:       len(quiz.Questions),
		CompletedAt: now,
	}
	if rec, err := records.ToRecord(entry); err == nil {
		q.env.Binder.PersistPath(scoresPath, entry.ID, rec)
	}

	return QuizResult{
		Score:       score,
		Correct:     correct,
		Total:       len(quiz.Questions),
		Badge:       stats.ScoreBadge(score),
		Finished:    len(quiz.Scores),
		ShowResults: len(quiz.Scores) >= ResultsThreshold,
	}, nil
}

// Scores returns the user's scores and the latest partner scores, both
// newest first.
func (q *Quizzes) Scores() (mine, partners []records.QuizScore) {
	all, skipped := records.Decode[records.QuizScore](q.scores.records())
	if skipped > 0 {
		q.logger.Warn("skipping undecodable quiz scores", "count", skipped)
	}
	return stats.SplitScores(all, q.env.UserID, PartnerScoreLimit)
}

// Stats summarizes the user's scores.
func (q *Quizzes) Stats() stats.QuizSummary {
	mine, _ := q.Scores()
	return stats.QuizStats(mine, q.env.now())
}

// GenerateFromTopic asks the AI service for n questions about topic. Only
// one generation runs at a time; a second call returns ai.ErrBusy.
func (q *Quizzes) GenerateFromTopic(ctx context.Context, topic string, n int) ([]records.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &records.ValidationError{Field: "topic", Message: "is required"}
	}
	var out []records.Question
	err := q.gate.Do(func() error {
		out = ai.GenerateQuizFromTopic(ctx, q.env.completer(), topic, n)
		return nil
	})
	return out, err
}

// GenerateFromText asks the AI service for n questions about text.
func (q *Quizzes) GenerateFromText(ctx context.Context, text string, n int) ([]records.Question, error) {
	var out []records.Question
	err := q.gate.Do(func() error {
		out = ai.GenerateQuizFromText(ctx, q.env.completer(), text, n)
		return nil
	})
	return out, err
}

// Generating reports whether a generation is running.
func (q *Quizzes) Generating() bool {
	return q.gate.Busy()
}
