package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/logger"
)

const coachSystemPrompt = `You are an AI study coach for Love Eagles academic planner. Be encouraging, specific, and reference their faith ("In God We Trust"). Keep responses under 150 words.`

const tipsSystemPrompt = `You are an AI study coach for Love Eagles (Uche Nora & Chikamso Chidebe). Provide personalized, encouraging study advice. Keep responses concise and motivational.`

// keywordReplies are checked in order; the first keyword contained in the
// lowercased question wins.
var keywordReplies = []struct {
	keyword string
	reply   string
}{
	{"motivation", "Remember, Uche Nora and Chikamso Chidebe, you are Love Eagles! Every challenge is an opportunity to soar higher. In God we trust, and with determination, you can overcome any obstacle."},
	{"study tips", "Here are my top study tips: 1) Use the Pomodoro technique, 2) Teach concepts to each other, 3) Create visual mind maps, 4) Practice active recall, 5) Take regular breaks. You've got this!"},
	{"time management", "Prioritize your tasks using the Eisenhower Matrix: Urgent & Important first, then Important but not Urgent. Schedule your most challenging work during your peak energy hours."},
	{"stress", "Feeling stressed is normal! Try deep breathing exercises, take a short walk, or chat with your study partner. Remember, progress over perfection. You're doing better than you think!"},
	{"focus", "To improve focus: 1) Remove distractions, 2) Use the Focus Mode in our app, 3) Set specific goals for each session, 4) Reward yourself after completing tasks. Small steps lead to big achievements!"},
	{"goals", "Set SMART goals: Specific, Measurable, Achievable, Relevant, Time-bound. Break big goals into smaller milestones and celebrate each achievement. You're building something amazing!"},
}

const defaultReply = "That's a great question! Based on your study patterns and progress, I recommend focusing on consistent daily habits. Remember, Love Eagles, every small step counts toward your bigger goals. In God we trust!"

// QuickQuestions are offered as one-tap prompts.
var QuickQuestions = []string{
	"How can I stay motivated?",
	"Give me study tips",
	"Help with time management",
	"I'm feeling stressed",
	"How to improve focus?",
	"Help me set better goals",
}

// KeywordReply answers question from the canned replies.
func KeywordReply(question string) string {
	q := strings.ToLower(question)
	for _, kr := range keywordReplies {
		if strings.Contains(q, kr.keyword) {
			return kr.reply
		}
	}
	return defaultReply
}

// Coach answers study questions with a completer, falling back to canned
// replies.
type Coach struct {
	c      Completer
	logger *log.Logger
}

// NewCoach creates a coach. A nil completer always uses canned replies.
func NewCoach(c Completer, l *log.Logger) *Coach {
	if c == nil {
		c = Disabled{}
	}
	return &Coach{c: c, logger: logger.Named(l, "coach")}
}

func contextJSON(v any) string {
	if v == nil {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Ask answers question. userContext is serialized into the prompt. The
// second result reports whether the answer came from the completer.
func (co *Coach) Ask(ctx context.Context, question string, userContext any) (string, bool) {
	resp, err := co.c.Complete(ctx, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: coachSystemPrompt},
			{Role: RoleUser, Content: "Context: " + contextJSON(userContext) + "\nQuestion: " + question},
		},
	})
	if err != nil || strings.TrimSpace(resp) == "" {
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			co.logger.Warn("coach request failed, using canned reply", "err", err)
		}
		return KeywordReply(question), false
	}
	return strings.TrimSpace(resp), true
}

// StudyTips asks for three tips for userContext.
func (co *Coach) StudyTips(ctx context.Context, userContext any) (string, bool) {
	resp, err := co.c.Complete(ctx, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: tipsSystemPrompt},
			{Role: RoleUser, Content: "Based on this context: " + contextJSON(userContext) + ", provide 3 specific study tips."},
		},
	})
	if err != nil || strings.TrimSpace(resp) == "" {
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			co.logger.Warn("study tips request failed, using canned reply", "err", err)
		}
		return KeywordReply("study tips"), false
	}
	return strings.TrimSpace(resp), true
}

// ErrBusy is returned by Gate.Do while another call is running.
var ErrBusy = errors.New("a request is already in progress")

// Gate admits one call at a time and rejects the rest.
type Gate struct {
	busy atomic.Bool
}

// Do runs fn unless another Do is running, in which case it returns ErrBusy
// without calling fn.
func (g *Gate) Do(fn func() error) error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer g.busy.Store(false)
	return fn()
}

// Busy reports whether a call is running.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
