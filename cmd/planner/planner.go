package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/stats"
	"github.com/loveeagles/planner/internal/ui"
)

// parseDate accepts YYYY-MM-DD or a phrase such as "next friday".
func parseDate(s string, now time.Time) (string, error) {
	if t, err := time.ParseInLocation(records.DateLayout, s, time.Local); err == nil {
		return records.DateKey(t), nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil || r == nil {
		return "", fmt.Errorf("cannot understand date %q", s)
	}
	return records.DateKey(r.Time), nil
}

var assignmentCmd = &cobra.Command{
	Use:     "assignment",
	Aliases: []string{"a"},
	GroupID: "plan",
	Short:   "Manage assignments",
}

var assignmentAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an assignment",
	Long: `Add an assignment.

--due takes a date (2026-03-14) or a phrase ("tomorrow", "next friday").

Examples:
  planner assignment add "Chapter 5 problems" --subject Mathematics --due tomorrow
  planner assignment add "Final project" --type project --priority high --due 2026-05-01`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subject, _ := cmd.Flags().GetString("subject")
		due, _ := cmd.Flags().GetString("due")
		priority, _ := cmd.Flags().GetString("priority")
		kind, _ := cmd.Flags().GetString("type")

		dueDate, err := parseDate(due, time.Now())
		if err != nil {
			fatalf("%v", err)
		}
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		a, err := p.AddAssignment(records.Assignment{
			Title:    args[0],
			Subject:  subject,
			DueDate:  dueDate,
			Priority: priority,
			Type:     kind,
		})
		check(err)
		fmt.Printf("%s Added %s (%s), due %s\n", ui.RenderPass("✓"), ui.RenderAccent(a.Title), a.Subject, a.DueDate)
		fmt.Println(ui.RenderMuted("id: " + a.ID))
	},
}

var assignmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignments",
	Run: func(cmd *cobra.Command, args []string) {
		upcoming, _ := cmd.Flags().GetBool("upcoming")
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)

		as := p.Assignments()
		if upcoming {
			as = p.UpcomingDeadlines()
		}
		if len(as) == 0 {
			fmt.Println(ui.RenderMuted("No assignments"))
			return
		}
		now := time.Now()
		for _, a := range as {
			due := a.DueDate
			if t, err := records.ParseDate(a.DueDate); err == nil && !a.Completed {
				switch days := stats.DaysUntil(t, now); {
				case days < 0:
					due = ui.RenderFail(due + " overdue")
				case days == 0:
					due = ui.RenderWarn(due + " today")
				case days <= 3:
					due = ui.RenderWarn(fmt.Sprintf("%s in %dd", due, days))
				}
			}
			fmt.Printf("%s %-28s %-14s %-8s %s  %s\n",
				ui.Check(a.Completed), ui.Truncate(a.Title, 28), a.Subject, ui.RenderPriority(a.Priority), due, ui.RenderMuted(a.ID))
		}
		fmt.Printf("\n%s\n", ui.ProgressBar(p.CompletionRate(), 20))
	},
}

var assignmentDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle an assignment's completed flag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		detach := c.TrackActivity(cmd.Context(), p, nil, modules.OpenStreak(cmd.Context(), c.Env()))
		defer detach()

		a, err := p.ToggleAssignment(args[0])
		check(err)
		if a.Completed {
			fmt.Printf("%s Completed %s\n", ui.RenderPass("✓"), a.Title)
		} else {
			fmt.Printf("%s Reopened %s\n", ui.RenderWarn("○"), a.Title)
		}
	},
}

var assignmentRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an assignment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		check(p.DeleteAssignment(args[0]))
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

var goalCmd = &cobra.Command{
	Use:     "goal",
	GroupID: "plan",
	Short:   "Manage goals",
}

var goalAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a goal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		g, err := p.AddGoal(args[0])
		check(err)
		fmt.Printf("%s Added goal %s\n", ui.RenderPass("✓"), ui.RenderAccent(g.Text))
		fmt.Println(ui.RenderMuted("id: " + g.ID))
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		gs := p.Goals()
		if len(gs) == 0 {
			fmt.Println(ui.RenderMuted("No goals"))
			return
		}
		for _, g := range gs {
			fmt.Printf("%s %-36s %s  %s\n", ui.Check(g.Completed), ui.Truncate(g.Text, 36), ui.ProgressBar(float64(g.Progress), 10), ui.RenderMuted(g.ID))
		}
		fmt.Printf("\nAverage progress: %.0f%%\n", p.AverageGoalProgress())
	},
}

var goalProgressCmd = &cobra.Command{
	Use:   "progress <id> <percent>",
	Short: "Set a goal's progress (0-100)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pct, err := strconv.Atoi(args[1])
		if err != nil {
			fatalf("percent must be a number")
		}
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		g, err := p.SetGoalProgress(args[0], pct)
		check(err)
		fmt.Printf("%s %s  %s\n", ui.RenderPass("✓"), g.Text, ui.ProgressBar(float64(g.Progress), 10))
	},
}

var goalDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a goal's completed flag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		g, err := p.ToggleGoal(args[0])
		check(err)
		fmt.Printf("%s %s\n", ui.Check(g.Completed), g.Text)
	},
}

var goalRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openModule[*modules.Planner](cmd, modules.NamePlanner)
		check(p.DeleteGoal(args[0]))
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	f := assignmentAddCmd.Flags()
	f.StringP("subject", "s", "General", "Subject")
	f.StringP("due", "d", "tomorrow", "Due date")
	f.StringP("priority", "p", records.PriorityMedium, "Priority: urgent, high, medium or low")
	f.StringP("type", "t", "assignment", "Type: assignment, exam, project or quiz")
	assignmentListCmd.Flags().Bool("upcoming", false, "Only open assignments due within a week")

	assignmentCmd.AddCommand(assignmentAddCmd, assignmentListCmd, assignmentDoneCmd, assignmentRmCmd)
	goalCmd.AddCommand(goalAddCmd, goalListCmd, goalProgressCmd, goalDoneCmd, goalRmCmd)
	rootCmd.AddCommand(assignmentCmd, goalCmd)
}
