package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/ui"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch mod := m.current().(type) {
	case nil:
		content = "Loading..."
	case *modules.Planner:
		content = m.viewPlanner(mod)
	case *modules.Notes:
		content = viewNotes(mod)
	case *modules.Timer:
		content = viewTimer(mod)
	case *modules.Mood:
		content = viewMood(mod)
	case *modules.Journal:
		content = viewJournal(mod)
	case *modules.Quizzes:
		content = viewQuiz(mod)
	case *modules.Coach:
		content = viewCoach(mod)
	case *modules.Suggestions:
		content = viewSuggestions(mod)
	case *modules.Voice:
		content = viewVoice()
	case *modules.Streak:
		content = viewStreak(mod)
	}

	footer := statusStyle.Render(m.status)
	if m.err != nil {
		footer = errorStyle.Render("Error: " + m.err.Error())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		docStyle.Render(content),
		footer,
		m.help.View(m.keys),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, name := range m.switcher.Tabs() {
		if i == m.switcher.Index() {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewPlanner(p *modules.Planner) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Assignments") + "\n")
	as := p.Assignments()
	if len(as) == 0 {
		b.WriteString("No assignments yet.\n")
	}
	for i, a := range as {
		line := fmt.Sprintf("%s %s  %s  due %s  %s", ui.Check(a.Completed), a.Title, a.Subject, a.DueDate, ui.RenderPriority(a.Priority))
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + ui.ProgressBar(p.CompletionRate(), 20) + " complete\n")

	b.WriteString("\n" + headerStyle.Render("Goals") + "\n")
	for _, g := range p.Goals() {
		fmt.Fprintf(&b, "%s %s  %s\n", ui.Check(g.Completed), g.Text, ui.ProgressBar(float64(g.Progress), 10))
	}
	return b.String()
}

func viewNotes(n *modules.Notes) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Notes") + "\n")
	notes := n.All()
	if len(notes) == 0 {
		b.WriteString("No notes yet.\n")
	}
	for _, note := range notes {
		fmt.Fprintf(&b, "• %s  %s  %s\n", note.Title, ui.RenderMuted(note.Subject), ui.RenderMuted(strings.Join(note.Tags, ", ")))
	}
	return b.String()
}

func viewTimer(t *modules.Timer) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Study Timer") + "\n")
	if a, ok := t.Active(); ok {
		state := "paused"
		if a.Running {
			state = "running"
		}
		fmt.Fprintf(&b, "%s  %s (%s)\n", modules.FormatClock(int(a.Elapsed.Seconds())), a.Subject, state)
	} else {
		b.WriteString(modules.FormatClock(0) + "  press s to start\n")
	}
	today := t.Today()
	week := t.Week()
	b.WriteString("\n" + ui.KV("Today", modules.FormatClock(today.TotalSeconds)) + "\n")
	b.WriteString(ui.KV("This week", modules.FormatClock(week.TotalSeconds)) + "\n")
	b.WriteString(ui.KV("Streak", fmt.Sprintf("%d days", t.Streak())) + "\n")
	return b.String()
}

func viewMood(m *modules.Mood) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Mood") + "\n")
	if e, ok := m.Today(); ok {
		fmt.Fprintf(&b, "Today: %s (energy %d)\n", e.Mood, e.Energy)
	} else {
		b.WriteString("How are you feeling? 1 happy  2 calm  3 neutral  4 sad  5 stressed  6 tired\n")
	}
	if r, ok := m.Recommendation(); ok {
		b.WriteString("\n" + ui.KV("Focus on", r.Tasks) + "\n")
		b.WriteString(ui.KV("Tip", r.Tip) + "\n")
	}
	b.WriteString("\n" + ui.RenderMuted(m.Quote()) + "\n")
	return b.String()
}

func viewJournal(j *modules.Journal) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Journal") + "\n")
	if e, ok := j.Today(); ok {
		fmt.Fprintf(&b, "Today's reflection saved (%s)\n", e.Mood)
	} else {
		b.WriteString("No reflection yet today.\n")
	}
	b.WriteString(ui.KV("Streak", fmt.Sprintf("%d days", j.Streak())) + "\n")
	if p, err := modules.RandomPrompt(modules.PromptAccomplishments); err == nil {
		b.WriteString("\n" + ui.RenderMuted(p) + "\n")
	}
	return b.String()
}

func viewQuiz(q *modules.Quizzes) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Quizzes") + "\n")
	quizzes := q.List()
	if len(quizzes) == 0 {
		b.WriteString("No quizzes yet.\n")
	}
	for _, quiz := range quizzes {
		fmt.Fprintf(&b, "• %s  %s\n", quiz.Title, ui.RenderMuted(fmt.Sprintf("%d questions", len(quiz.Questions))))
	}
	s := q.Stats()
	fmt.Fprintf(&b, "\n%s\n%s\n", ui.KV("Taken", s.TotalQuizzes), ui.KV("Average", fmt.Sprintf("%d%%", s.AverageScore)))
	return b.String()
}

func viewCoach(c *modules.Coach) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Study Coach") + "\n")
	for _, a := range c.Advice() {
		fmt.Fprintf(&b, "• %s  %s\n", ui.RenderAccent(a.Title), a.Message)
	}
	return b.String()
}

func viewSuggestions(s *modules.Suggestions) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Suggestions") + "\n")
	for _, sg := range s.List() {
		fmt.Fprintf(&b, "• %s  %s\n", ui.RenderAccent(sg.Title), sg.Description)
	}
	phase, remaining, running := s.PomodoroState()
	state := "paused"
	if running {
		state = "running"
	}
	fmt.Fprintf(&b, "\nPomodoro %s  %s (%s)\n", phase, modules.FormatClock(int(remaining.Seconds())), state)
	return b.String()
}

func viewVoice() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Voice Commands") + "\n")
	b.WriteString("Run `planner do \"<command>\"` with one of:\n\n")
	for _, c := range modules.QuickCommands {
		fmt.Fprintf(&b, "• %s\n  %s\n", c.Command, ui.RenderMuted(c.Description))
	}
	return b.String()
}

func viewStreak(s *modules.Streak) string {
	st := s.State()
	var b strings.Builder
	b.WriteString(headerStyle.Render("Streak") + "\n")
	b.WriteString(ui.KV("Current", fmt.Sprintf("%d days", st.CurrentStreak)) + "\n")
	b.WriteString(ui.KV("Longest", fmt.Sprintf("%d days", st.LongestStreak)) + "\n")
	b.WriteString(ui.KV("Logins", st.TotalLogins) + "\n")
	b.WriteString(ui.KV("Tasks done", st.TasksCompleted) + "\n")
	b.WriteString(ui.KV("Study time", fmt.Sprintf("%.1fh", float64(st.TotalTimeSpent)/60)) + "\n")
	return b.String()
}
