package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/stats"
	"github.com/loveeagles/planner/internal/ui"
)

var suggestCmd = &cobra.Command{
	Use:     "suggest",
	GroupID: "plan",
	Short:   "What to work on now",
	Run: func(cmd *cobra.Command, args []string) {
		s := openModule[*modules.Suggestions](cmd, modules.NameSuggest)
		for _, sg := range s.List() {
			fmt.Printf("%s %s\n  %s\n", ui.RenderPriority(sg.Priority), ui.RenderAccent(sg.Title), sg.Description)
		}
	},
}

var pomodoroCmd = &cobra.Command{
	Use:   "pomodoro",
	Short: "Run pomodoro focus and break rounds until Ctrl+C",
	Long: `Run a pomodoro timer. Focus and break lengths default to your saved study
patterns; --focus and --break change and save them.

Examples:
  planner suggest pomodoro
  planner suggest pomodoro --focus 50 --break 10`,
	Run: func(cmd *cobra.Command, args []string) {
		s := openModule[*modules.Suggestions](cmd, modules.NameSuggest)

		pat := s.Patterns()
		if cmd.Flags().Changed("focus") {
			pat.FocusMinutes, _ = cmd.Flags().GetInt("focus")
		}
		if cmd.Flags().Changed("break") {
			pat.BreakMinutes, _ = cmd.Flags().GetInt("break")
		}
		if pat != s.Patterns() {
			check(s.SetPatterns(pat))
		}

		s.Pomodoro(func(p *modules.Pomodoro) { p.Start() })
		fmt.Printf("%s %d min focus / %d min break. Press Ctrl+C to stop.\n", ui.RenderAccent("🍅"), pat.FocusMinutes, pat.BreakMinutes)

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				fmt.Println()
				return
			case <-ticker.C:
				s.Pomodoro(func(p *modules.Pomodoro) {
					if finished, done := p.Tick(time.Second); done {
						next := "Back to work!"
						if finished == modules.PhaseFocus {
							next = "Take a break!"
						}
						fmt.Printf("\n%s %s phase finished. %s\n", ui.RenderWarn("⏰"), finished, next)
					}
				})
				phase, remaining, _ := s.PomodoroState()
				fmt.Printf("\r%-6s %s", phase, modules.FormatClock(int(remaining.Seconds())))
			}
		}
	},
}

var streakCmd = &cobra.Command{
	Use:     "streak",
	GroupID: "wellness",
	Short:   "Show your login streak and activity counters",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		s := modules.OpenStreak(cmd.Context(), c.Env())
		st, _, err := s.CheckIn(cmd.Context())
		check(err)

		fmt.Println(ui.KV("Current", fmt.Sprintf("%d days", st.CurrentStreak)))
		fmt.Println(ui.KV("Longest", fmt.Sprintf("%d days", st.LongestStreak)))
		fmt.Println(ui.KV("Logins", st.TotalLogins))
		fmt.Println(ui.KV("Tasks done", st.TasksCompleted))
		fmt.Println(ui.KV("Study time", fmt.Sprintf("%.1fh", st.Hours())))
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "plan",
	Short:   "Dashboard: progress, deadlines and study time",
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		t := openModule[*modules.Timer](cmd, modules.NameTimer)
		m := openModule[*modules.Mood](cmd, modules.NameMood)
		now := time.Now()

		fmt.Println(ui.RenderTitle(fmt.Sprintf("Good %s, %s", stats.PeriodOf(now), mustApp(cmd).Env().UserName)))
		fmt.Println(ui.KV("Assignments", ui.ProgressBar(p.CompletionRate(), 20)))
		fmt.Println(ui.KV("Goals", ui.ProgressBar(p.AverageGoalProgress(), 20)))
		fmt.Println(ui.KV("Studied today", modules.FormatClock(t.Today().TotalSeconds)))
		fmt.Println(ui.KV("This week", modules.FormatClock(t.Week().TotalSeconds)))
		fmt.Println(ui.KV("Study streak", fmt.Sprintf("%d days", t.Streak())))
		if e, ok := m.Today(); ok {
			fmt.Println(ui.KV("Mood", e.Mood))
		}

		if up := p.UpcomingDeadlines(); len(up) > 0 {
			fmt.Println("\n" + ui.RenderAccent("Upcoming deadlines"))
			for _, a := range up {
				fmt.Printf("  %s  %-28s %s\n", a.DueDate, ui.Truncate(a.Title, 28), ui.RenderPriority(a.Priority))
			}
		}
		fmt.Println("\n" + ui.RenderMuted(m.Quote()))
	},
}

var doCmd = &cobra.Command{
	Use:     "do <command>",
	GroupID: "plan",
	Short:   "Run a natural-language command",
	Long: `Run a short natural-language command, as you would say it.

Examples:
` + quickCommandExamples(),
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openModule[*modules.Voice](cmd, modules.NameVoice)
		reply, err := v.Do(cmd.Context(), strings.Join(args, " "))
		check(err)
		mark := ui.RenderPass("✓")
		if reply.Action == modules.ActionUnknown {
			mark = ui.RenderWarn("?")
		}
		fmt.Printf("%s %s\n", mark, reply.Message)
	},
}

func quickCommandExamples() string {
	var b strings.Builder
	for _, c := range modules.QuickCommands {
		fmt.Fprintf(&b, "  planner do %q\n      %s\n", c.Command, c.Description)
	}
	return b.String()
}

func init() {
	pomodoroCmd.Flags().Int("focus", modules.DefaultFocusMinutes, "Focus minutes")
	pomodoroCmd.Flags().Int("break", modules.DefaultBreakMinutes, "Break minutes")

	suggestCmd.AddCommand(pomodoroCmd)
	rootCmd.AddCommand(suggestCmd, streakCmd, statsCmd, doCmd)
}
