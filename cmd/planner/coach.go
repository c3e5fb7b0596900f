package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/stats"
	"github.com/loveeagles/planner/internal/ui"
)

var coachCmd = &cobra.Command{
	Use:     "coach",
	GroupID: "study",
	Short:   "Study coach: advice, questions and insights",
	Run: func(cmd *cobra.Command, args []string) {
		c := openModule[*modules.Coach](cmd, modules.NameCoach)
		for _, a := range c.Advice() {
			fmt.Printf("%s %s\n  %s\n", ui.RenderAccent("•"), ui.RenderAccent(a.Title), a.Message)
		}
	},
}

var coachAskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the coach a question",
	Long: `Ask the coach a question. Your assignments, goals, moods and study sessions
are sent along as context. Without an AI service configured a canned answer
matching your question is given.

Examples:
  planner coach ask "How do I stop procrastinating?"
  planner coach ask "Help me plan for my exam next week"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openModule[*modules.Coach](cmd, modules.NameCoach)
		msg, err := c.Ask(cmd.Context(), strings.Join(args, " "))
		if errors.Is(err, ai.ErrBusy) {
			fatalf("the coach is still answering a previous question")
		}
		check(err)
		fmt.Println(ui.RenderBox(msg.Response))
	},
}

var coachTipsCmd = &cobra.Command{
	Use:   "tips",
	Short: "Personalized study tips",
	Run: func(cmd *cobra.Command, args []string) {
		c := openModule[*modules.Coach](cmd, modules.NameCoach)
		tips, err := c.Tips(cmd.Context())
		check(err)
		fmt.Println(tips)
	},
}

var coachHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past questions (--clear to forget them)",
	Run: func(cmd *cobra.Command, args []string) {
		forget, _ := cmd.Flags().GetBool("clear")
		c := openModule[*modules.Coach](cmd, modules.NameCoach)
		if forget {
			c.ClearHistory()
			fmt.Printf("%s History cleared\n", ui.RenderPass("✓"))
			return
		}
		h := c.History()
		if len(h) == 0 {
			fmt.Println(ui.RenderMuted("No questions yet"))
			return
		}
		for _, m := range h {
			fmt.Printf("%s %s\n", ui.RenderMuted(m.Timestamp.Local().Format("Jan 2 15:04")), ui.RenderAccent(m.Question))
			fmt.Printf("%s\n\n", m.Response)
		}
	},
}

var coachInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Performance insights for a week, month or year",
	Run: func(cmd *cobra.Command, args []string) {
		period, _ := cmd.Flags().GetString("period")
		tf, err := stats.ParseTimeframe(period)
		if err != nil {
			fatalf("%v", err)
		}
		c := openModule[*modules.Coach](cmd, modules.NameCoach)
		r := c.Insights(tf)

		fmt.Println(ui.RenderTitle("Insights: last " + string(tf)))
		fmt.Println(ui.KV("Completion", ui.ProgressBar(r.CompletionRate, 20)+"  "+stats.PerformanceLevel(r.CompletionRate)))
		fmt.Println(ui.KV("Assignments", fmt.Sprintf("%d of %d done", r.CompletedAssignments, r.TotalAssignments)))
		fmt.Println(ui.KV("Goals", fmt.Sprintf("%d, %.0f%% average progress", r.TotalGoals, r.AvgGoalProgress)))
		fmt.Println(ui.KV("Study time", fmt.Sprintf("%.1fh (%.1fh/day, %d sessions)", r.TotalStudyHours, r.AvgDailyHours, r.RecentSessions)))
		if r.AvgMood > 0 {
			fmt.Println(ui.KV("Energy", fmt.Sprintf("%.1f/10", r.AvgMood)))
		}
		if len(r.Subjects) > 0 {
			fmt.Println("\n" + ui.RenderAccent("Subjects"))
			for _, s := range r.Subjects {
				fmt.Printf("  %-16s %s\n", s.Subject, ui.ProgressBar(s.Ratio()*100, 10))
			}
		}
		fmt.Println("\n" + ui.RenderAccent("Tips"))
		for _, tip := range stats.StudyTips(r) {
			fmt.Println("  • " + tip)
		}
		fmt.Println("\n" + ui.RenderMuted(stats.MotivationalMessage(r.CompletionRate)))
	},
}

func init() {
	coachHistoryCmd.Flags().Bool("clear", false, "Forget all past questions")
	coachInsightsCmd.Flags().String("period", string(stats.Week), "week, month or year")

	coachCmd.AddCommand(coachAskCmd, coachTipsCmd, coachHistoryCmd, coachInsightsCmd)
	rootCmd.AddCommand(coachCmd)
}
