package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/loveeagles/planner/internal/records"
)

// MinSourceText is the shortest cleaned text a quiz can be generated from.
const MinSourceText = 50

// maxSourceChunk bounds how much source text is sent per request.
const maxSourceChunk = 2000

const questionFormat = "Respond with: QUESTION: [question text] | A: [option] | B: [option] | C: [option] | D: [option] | CORRECT: [A/B/C/D] | EXPLANATION: [explanation]"

// ErrInsufficientText is returned by ReadSourceFile for files with too
// little readable text.
var ErrInsufficientText = errors.New("could not extract readable text; try a plain text file")

// ParseQuestion parses one question in the pipe-separated format
//
//	QUESTION: ... | A: ... | B: ... | C: ... | D: ... | CORRECT: X | EXPLANATION: ...
//
// It returns false unless the question and all four options are present.
// An unknown CORRECT letter selects option A.
func ParseQuestion(text string) (records.Question, bool) {
	var q records.Question
	options := make([]string, 4)

	for _, part := range strings.Split(text, "|") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "QUESTION:"):
			q.Question = strings.TrimSpace(strings.TrimPrefix(part, "QUESTION:"))
		case strings.HasPrefix(part, "A:"):
			options[0] = strings.TrimSpace(part[2:])
		case strings.HasPrefix(part, "B:"):
			options[1] = strings.TrimSpace(part[2:])
		case strings.HasPrefix(part, "C:"):
			options[2] = strings.TrimSpace(part[2:])
		case strings.HasPrefix(part, "D:"):
			options[3] = strings.TrimSpace(part[2:])
		case strings.HasPrefix(part, "CORRECT:"):
			letter := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(part, "CORRECT:")))
			q.Correct = strings.Index("ABCD", letter)
			if len(letter) != 1 || q.Correct < 0 {
				q.Correct = 0
			}
		case strings.HasPrefix(part, "EXPLANATION:"):
			q.Explanation = strings.TrimSpace(strings.TrimPrefix(part, "EXPLANATION:"))
		}
	}

	if q.Question == "" {
		return records.Question{}, false
	}
	for _, o := range options {
		if o == "" {
			return records.Question{}, false
		}
	}
	q.Options = options
	return q, true
}

// CleanText replaces control and non-ASCII characters with spaces and
// collapses whitespace.
func CleanText(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || r >= 0x7F {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// ReadSourceFile reads a text file for quiz generation.
func ReadSourceFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), " "))
	}
	text := CleanText(string(data))
	if len(text) < MinSourceText {
		return "", ErrInsufficientText
	}
	return text, nil
}

// generator runs the per-question request loop shared by topic and text
// quizzes.
type generator struct {
	c        Completer
	system   string
	prompt   func(i int) string
	onFail   func(i int) records.Question // parse failure
	onError  func(i int) records.Question // request failure
	fill     func(i int) records.Question // padding
	attempts int
}

func (g generator) run(ctx context.Context, n int) []records.Question {
	questions := make([]records.Question, 0, n)
	for attempt := 0; len(questions) < n && attempt < g.attempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		i := len(questions)
		resp, err := g.c.Complete(ctx, Request{
			Messages: []Message{
				{Role: RoleSystem, Content: g.system},
				{Role: RoleUser, Content: g.prompt(i)},
			},
		})
		if errors.Is(err, ErrNotConfigured) {
			break
		}
		if err != nil {
			questions = append(questions, g.onError(i))
			continue
		}
		if q, ok := ParseQuestion(resp); ok {
			questions = append(questions, q)
		} else {
			questions = append(questions, g.onFail(i))
		}
	}
	for len(questions) < n {
		questions = append(questions, g.fill(len(questions)))
	}
	for i := range questions {
		questions[i].ID = i + 1
	}
	return questions[:n]
}

// GenerateQuizFromTopic returns exactly n questions about topic. Questions
// the service fails to produce are replaced with generic topic questions.
func GenerateQuizFromTopic(ctx context.Context, c Completer, topic string, n int) []records.Question {
	if n <= 0 {
		return nil
	}
	g := generator{
		c:        c,
		system:   "Create ONE multiple choice question about the given topic. " + questionFormat,
		prompt:   func(i int) string { return fmt.Sprintf("Create question %d about: %s", i+1, topic) },
		attempts: n * 2,
		onFail: func(int) records.Question {
			return records.Question{
				Question:    fmt.Sprintf("What is an important aspect of %s?", topic),
				Options:     []string{"Key concept of " + topic, "Alternative concept", "Different approach", "Other method"},
				Explanation: fmt.Sprintf("This relates to fundamental concepts in %s.", topic),
			}
		},
		onError: func(int) records.Question {
			return records.Question{
				Question:    fmt.Sprintf("What is a fundamental principle in %s?", topic),
				Options:     []string{"Core principle of " + topic, "Secondary concept", "Related topic", "Alternative view"},
				Explanation: fmt.Sprintf("This question covers basic concepts in %s.", topic),
			}
		},
		fill: func(i int) records.Question {
			return records.Question{
				Question:    fmt.Sprintf("Question %d: What is a key concept in %s?", i+1, topic),
				Options:     []string{fmt.Sprintf("Concept %d about %s", i+1, topic), "Alternative concept", "Different approach", "Other method"},
				Explanation: fmt.Sprintf("This is question %d about %s.", i+1, topic),
			}
		},
	}
	return g.run(ctx, n)
}

// GenerateQuizFromText returns exactly n questions about text. Text that is
// too short after cleaning gets word-based questions without calling the
// service.
func GenerateQuizFromText(ctx context.Context, c Completer, text string, n int) []records.Question {
	if n <= 0 {
		return nil
	}
	clean := CleanText(text)
	if len(clean) < MinSourceText {
		return wordQuestions(text, n)
	}
	chunk := clean
	if len(chunk) > maxSourceChunk {
		chunk = chunk[:maxSourceChunk]
	}
	words := longWords(chunk)

	g := generator{
		c:        c,
		system:   "Create ONE multiple choice question based on the provided text. " + questionFormat,
		prompt:   func(i int) string { return fmt.Sprintf("Create question %d from this text: %s", i+1, chunk) },
		attempts: n * 2,
		onFail: func(i int) records.Question {
			opts := []string{"Concept A", "Concept B", "Concept C", "Concept D"}
			if (i+1)*4 <= len(words) {
				opts = append([]string(nil), words[i*4:(i+1)*4]...)
			}
			return records.Question{
				Question:    "Based on the content, what concept is mentioned?",
				Options:     opts,
				Explanation: "This question is based on your uploaded content.",
			}
		},
		onError: func(i int) records.Question {
			return records.Question{
				Question:    fmt.Sprintf("Question %d based on the uploaded content", i+1),
				Options:     []string{"Option A", "Option B", "Option C", "Option D"},
				Explanation: "This question is based on your uploaded file.",
			}
		},
		fill: func(i int) records.Question {
			return records.Question{
				Question:    fmt.Sprintf("Question %d from uploaded content", i+1),
				Options:     []string{"Answer A", "Answer B", "Answer C", "Answer D"},
				Explanation: "This question is based on your uploaded content.",
			}
		},
	}
	return g.run(ctx, n)
}

func longWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// wordQuestions builds n questions from the distinct long words of text.
func wordQuestions(text string, n int) []records.Question {
	seen := make(map[string]bool)
	var uniq []string
	for _, w := range longWords(text) {
		if !seen[w] && len(uniq) < n*4 {
			seen[w] = true
			uniq = append(uniq, w)
		}
	}
	word := func(i int, def string) string {
		if i < len(uniq) {
			return uniq[i]
		}
		return def
	}

	out := make([]records.Question, n)
	for i := range out {
		start := i * 4
		question := "Based on the content, what concept is mentioned?"
		if start < len(uniq) {
			question = fmt.Sprintf("Based on the content, what concept is mentioned related to %q?", uniq[start])
		}
		out[i] = records.Question{
			ID:       i + 1,
			Question: question,
			Options: []string{
				word(start, "Option A"), word(start+1, "Option B"),
				word(start+2, "Option C"), word(start+3, "Option D"),
			},
			Explanation: "This question is based on your uploaded content.",
		}
	}
	return out
}
