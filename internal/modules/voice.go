package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/loveeagles/planner/internal/records"
)

// DefaultDueDays is the due date offset used when a command names none.
const DefaultDueDays = 7

// VoiceNoteTag marks notes created from a command.
const VoiceNoteTag = "voice-note"

// Command actions.
const (
	ActionAssignment = "assignment"
	ActionNote       = "note"
	ActionTimer      = "timer"
	ActionReminder   = "reminder"
	ActionUnknown    = "unknown"
)

// QuickCommands are example commands shown to the user.
var QuickCommands = []struct {
	Command     string
	Description string
}{
	{"Add assignment for Math due next Friday", "Quickly add assignments with subject and due date"},
	{"Add note about photosynthesis process", "Create notes from a sentence"},
	{"Start timer for Physics study", "Begin a study session"},
	{"Remind me about Chemistry exam", "Set reminders for important events"},
}

var subjectKeywords = []struct {
	keyword string
	subject string
}{
	{"math", "Mathematics"},
	{"physics", "Physics"},
	{"chemistry", "Chemistry"},
	{"biology", "Biology"},
}

// assignmentFiller is dropped from the command text to form the title.
var assignmentFiller = map[string]bool{
	"for": true, "due": true, "next": true, "tomorrow": true, "friday": true,
	"math": true, "physics": true, "chemistry": true, "biology": true,
}

var noteFiller = map[string]bool{"about": true, "for": true}

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// VoiceReply is the outcome of one command.
type VoiceReply struct {
	Action     string
	Message    string
	Assignment *records.Assignment
	Note       *records.Note
}

// Voice turns short natural-language commands into planner actions.
type Voice struct {
	group
	env     Env
	planner *Planner
	notes   *Notes
	dates   *when.Parser
}

// OpenVoice opens the command module. It writes through its own planner
// and notes views.
func OpenVoice(ctx context.Context, env Env) *Voice {
	v := &Voice{
		env:     env,
		planner: OpenPlanner(ctx, env),
		notes:   OpenNotes(ctx, env),
		dates:   newDateParser(),
	}
	v.group = group{v.planner, v.notes}
	return v
}

func (v *Voice) Name() string { return NameVoice }

// Do runs command.
func (v *Voice) Do(ctx context.Context, command string) (VoiceReply, error) {
	cmd := strings.ToLower(strings.TrimSpace(command))
	switch {
	case strings.Contains(cmd, "add assignment") || strings.Contains(cmd, "add task"):
		return v.addAssignment(cmd)
	case strings.Contains(cmd, "add note") || strings.Contains(cmd, "take note"):
		return v.addNote(cmd)
	case strings.Contains(cmd, "start timer") || strings.Contains(cmd, "start study"):
		return VoiceReply{Action: ActionTimer, Message: "Timer ready. Run `planner timer run --subject <subject>` to start a session."}, nil
	case strings.Contains(cmd, "remind me") || strings.Contains(cmd, "set reminder"):
		return VoiceReply{Action: ActionReminder, Message: "Reminder noted! Check your planner for upcoming deadlines."}, nil
	}
	return VoiceReply{
		Action:  ActionUnknown,
		Message: fmt.Sprintf("I heard %q but didn't understand the command. Try \"add assignment\", \"add note\", or \"start timer\".", cmd),
	}, nil
}

// dueDate finds a date phrase in cmd. It returns the due day and the phrase
// that matched, if any.
func (v *Voice) dueDate(cmd string, now time.Time) (time.Time, string) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	r, err := v.dates.Parse(cmd, now)
	if err == nil && r != nil && !r.Time.Before(today) {
		return r.Time, r.Text
	}
	return now.AddDate(0, 0, DefaultDueDays), ""
}

func stripWords(text string, phrases []string, filler map[string]bool) string {
	for _, p := range phrases {
		text = strings.ReplaceAll(text, p, " ")
	}
	var kept []string
	for _, w := range strings.Fields(text) {
		if !filler[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (v *Voice) addAssignment(cmd string) (VoiceReply, error) {
	now := v.env.now()
	subject := "General"
	for _, sk := range subjectKeywords {
		if strings.Contains(cmd, sk.keyword) {
			subject = sk.subject
			break
		}
	}
	due, phrase := v.dueDate(cmd, now)

	phrases := []string{"add assignment", "add task"}
	if phrase != "" {
		phrases = append(phrases, phrase)
	}
	title := stripWords(cmd, phrases, assignmentFiller)
	if title == "" {
		title = subject + " assignment"
	}

	a, err := v.planner.AddAssignment(records.Assignment{
		Title:    title,
		Subject:  subject,
		DueDate:  records.DateKey(due),
		Priority: records.PriorityMedium,
		Type:     "assignment",
	})
	if err != nil {
		return VoiceReply{}, err
	}
	return VoiceReply{
		Action:     ActionAssignment,
		Message:    fmt.Sprintf("Added assignment: %s for %s, due %s", a.Title, a.Subject, a.DueDate),
		Assignment: &a,
	}, nil
}

func (v *Voice) addNote(cmd string) (VoiceReply, error) {
	content := stripWords(cmd, []string{"add note", "take note"}, noteFiller)
	n, err := v.notes.add(records.Note{
		Title:   "Voice Note - " + v.env.now().Format("1/2/2006"),
		Content: content,
		Tags:    []string{VoiceNoteTag},
	})
	if err != nil {
		return VoiceReply{}, err
	}
	return VoiceReply{Action: ActionNote, Message: "Added note: " + content, Note: &n}, nil
}
