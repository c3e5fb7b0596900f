package ai

import (
	"fmt"
	"strings"
)

// NoSummary is returned by Summarize when no sentence qualifies.
const NoSummary = "No summary available."

func sentences(content string, minLen int) []string {
	var out []string
	for _, s := range strings.Split(content, ".") {
		if len(strings.TrimSpace(s)) > minLen {
			out = append(out, s)
		}
	}
	return out
}

// Summarize returns the first two sentences longer than ten characters.
func Summarize(content string) string {
	s := sentences(content, 10)
	if len(s) == 0 {
		return NoSummary
	}
	if len(s) > 2 {
		s = s[:2]
	}
	return strings.Join(s, ".") + "."
}

// NoteQuestion is a short-answer prompt derived from a note.
type NoteQuestion struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Type     string `json:"type"`
	Context  string `json:"context"`
}

// NoteQuestions builds up to three short-answer prompts from the first
// three sentences longer than twenty characters. Sentences of five words or
// fewer are skipped, so ids can have gaps.
func NoteQuestions(content string) []NoteQuestion {
	s := sentences(content, 20)
	if len(s) > 3 {
		s = s[:3]
	}
	var out []NoteQuestion
	for i, sentence := range s {
		sentence = strings.TrimSpace(sentence)
		words := strings.Split(sentence, " ")
		if len(words) <= 5 {
			continue
		}
		out = append(out, NoteQuestion{
			ID:       i + 1,
			Question: fmt.Sprintf("What is the significance of %q in this context?", words[len(words)/2]),
			Type:     "short-answer",
			Context:  sentence,
		})
	}
	return out
}
