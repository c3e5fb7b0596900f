package modules

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/records"
)

func sampleQuestions(n int) []records.Question {
	qs := make([]records.Question, n)
	for i := range qs {
		qs[i] = records.Question{
			Question: fmt.Sprintf("What is %d + %d?", i, i),
			Options:  []string{"0", fmt.Sprint(2 * i), "7", "9"},
			Correct:  1,
		}
	}
	return qs
}

func TestQuiz_SignedOut(t *testing.T) {
	f := newFixture(t, "")
	q := OpenQuiz(context.Background(), f.env)
	defer q.Close()
	loaded(t, q)

	if _, err := q.Create(context.Background(), "Sums", sampleQuestions(5), ""); !errors.Is(err, ErrSignedOut) {
		t.Errorf("Create() error = %v, want ErrSignedOut", err)
	}
	if _, err := q.Submit(context.Background(), "x", nil); !errors.Is(err, ErrSignedOut) {
		t.Errorf("Submit() error = %v, want ErrSignedOut", err)
	}
	if len(q.List()) != 0 {
		t.Error("List() not empty while signed out")
	}
}

func TestQuiz_CreateNeedsCompleteQuestions(t *testing.T) {
	f := newFixture(t, "u1")
	q := OpenQuiz(context.Background(), f.env)
	defer q.Close()

	qs := append(sampleQuestions(4), BlankQuiz(BlankQuestions)...)
	if _, err := q.Create(context.Background(), "Sums", qs, ""); !errors.Is(err, records.ErrValidation) {
		t.Errorf("Create(4 complete) error = %v", err)
	}

	qs = append(BlankQuiz(3), sampleQuestions(5)...)
	quiz, err := q.Create(context.Background(), "Sums", qs, "")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(quiz.Questions) != 5 || quiz.Questions[0].ID != 1 || quiz.Questions[4].ID != 5 {
		t.Errorf("Create() questions = %+v", quiz.Questions)
	}
	if quiz.Source != SourceManual || quiz.CreatedBy != "u1" {
		t.Errorf("Create() = %+v", quiz)
	}
}

func TestQuiz_SubmitAndResults(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()
	q := OpenQuiz(ctx, f.env)
	defer q.Close()
	loaded(t, q)

	quiz, err := q.Create(ctx, "Sums", sampleQuestions(5), SourceTopic)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	waitFor(t, "quiz list", func() bool { return len(q.List()) == 1 })

	res, err := q.Submit(ctx, quiz.ID, map[int]int{0: 1, 1: 1, 2: 1, 3: 0})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if res.Score != 60 || res.Correct != 3 || res.Total != 5 || res.Badge != "Average" {
		t.Errorf("Submit() = %+v", res)
	}
	if res.Finished != 1 || res.ShowResults {
		t.Errorf("results shown after one finisher: %+v", res)
	}

	partner := OpenQuiz(ctx, f.as("u2", "Chikamso Chidebe"))
	defer partner.Close()
	res, err = partner.Submit(ctx, quiz.ID, map[int]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 1})
	if err != nil {
		t.Fatalf("partner Submit() failed: %v", err)
	}
	if res.Score != 100 || res.Finished != 2 || !res.ShowResults {
		t.Errorf("partner Submit() = %+v", res)
	}

	stored, err := q.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if a := stored.Scores["u1"]; a.Score != 60 || a.Answers["3"] != 0 {
		t.Errorf("stored attempt = %+v", a)
	}

	f.env.Binder.Wait()
	waitFor(t, "both scores", func() bool {
		mine, partners := q.Scores()
		return len(mine) == 1 && len(partners) == 1
	})
	if s := q.Stats(); s.TotalQuizzes != 1 || s.AverageScore != 60 {
		t.Errorf("Stats() = %+v", s)
	}

	if err := partner.Delete(ctx, quiz.ID); err == nil {
		t.Error("partner deleted someone else's quiz")
	}
	if err := q.Delete(ctx, quiz.ID); err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
}

// blockingCompleter holds every request until release is closed.
type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, _ ai.Request) (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return "", errors.New("no answer")
}

func TestQuiz_GenerateIsExclusive(t *testing.T) {
	f := newFixture(t, "u1")
	bc := &blockingCompleter{started: make(chan struct{}, 1), release: make(chan struct{})}
	f.env.AI = bc
	q := OpenQuiz(context.Background(), f.env)
	defer q.Close()

	if _, err := q.GenerateFromTopic(context.Background(), "  ", 5); !errors.Is(err, records.ErrValidation) {
		t.Errorf("GenerateFromTopic(blank) error = %v", err)
	}

	done := make(chan []records.Question)
	go func() {
		qs, _ := q.GenerateFromTopic(context.Background(), "Cells", 1)
		done <- qs
	}()
	<-bc.started
	if !q.Generating() {
		t.Error("Generating() = false during generation")
	}
	if _, err := q.GenerateFromText(context.Background(), "some text", 1); !errors.Is(err, ai.ErrBusy) {
		t.Errorf("concurrent generation error = %v, want ErrBusy", err)
	}
	close(bc.release)

	if qs := <-done; len(qs) != 1 || !qs[0].Complete() {
		t.Errorf("GenerateFromTopic() = %+v", qs)
	}
	if q.Generating() {
		t.Error("Generating() = true after generation")
	}
}
