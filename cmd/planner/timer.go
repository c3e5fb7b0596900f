package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/ui"
)

var timerCmd = &cobra.Command{
	Use:     "timer",
	GroupID: "study",
	Short:   "Time study sessions",
}

var timerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Time a study session until Ctrl+C",
	Long: `Time a study session. Press Ctrl+C to finish; the session is recorded and
counts toward your study streak and total study time.

A break reminder is printed every 30 minutes unless --no-reminders is set.

Examples:
  planner timer run --subject Physics --task "Problem set 3"
  planner timer run --subject History --for 45m`,
	Run: func(cmd *cobra.Command, args []string) {
		subject, _ := cmd.Flags().GetString("subject")
		task, _ := cmd.Flags().GetString("task")
		noReminders, _ := cmd.Flags().GetBool("no-reminders")
		limit, _ := cmd.Flags().GetDuration("for")

		c := mustApp(cmd)
		t := openModule[*modules.Timer](cmd, modules.NameTimer)
		// Ctrl+C cancels cmd.Context; the streak update after it must not be.
		bg := context.WithoutCancel(cmd.Context())
		detach := c.TrackActivity(bg, nil, t, modules.OpenStreak(bg, c.Env()))
		defer detach()

		t.SetBreakReminders(!noReminders)
		check(t.Start(subject, task))
		fmt.Printf("%s Studying %s. Press Ctrl+C to finish.\n", ui.RenderAccent("⏱"), ui.RenderAccent(subject))

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-cmd.Context().Done():
				break loop
			case <-ticker.C:
				if t.Tick(time.Second) {
					fmt.Printf("\n%s Time for a break! You've been studying for a while.\n", ui.RenderWarn("☕"))
				}
				a, _ := t.Active()
				fmt.Printf("\r%s  %s", modules.FormatClock(int(a.Elapsed.Seconds())), ui.RenderMuted(subject))
				if limit > 0 && a.Elapsed >= limit {
					break loop
				}
			}
		}
		fmt.Println()

		s, recorded, err := t.End()
		check(err)
		if !recorded {
			fmt.Println(ui.RenderMuted("Session too short, nothing recorded"))
			return
		}
		fmt.Printf("%s Recorded %s of %s\n", ui.RenderPass("✓"), modules.FormatClock(s.Duration), s.Subject)
	},
}

var timerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show study time totals",
	Run: func(cmd *cobra.Command, args []string) {
		t := openModule[*modules.Timer](cmd, modules.NameTimer)
		today, week := t.Today(), t.Week()

		fmt.Println(ui.KV("Today", fmt.Sprintf("%s in %d sessions", modules.FormatClock(today.TotalSeconds), today.SessionCount)))
		fmt.Println(ui.KV("This week", fmt.Sprintf("%s in %d sessions", modules.FormatClock(week.TotalSeconds), week.SessionCount)))
		fmt.Println(ui.KV("Daily average", modules.FormatClock(week.AvgDailySeconds)))
		fmt.Println(ui.KV("Streak", fmt.Sprintf("%d days", t.Streak())))

		if b := t.Breakdown(); len(b) > 0 {
			fmt.Println()
			fmt.Println(ui.RenderAccent("By subject"))
			for _, st := range b {
				fmt.Printf("  %-16s %s\n", st.Subject, modules.FormatClock(st.Seconds))
			}
		}
	},
}

func init() {
	timerRunCmd.Flags().StringP("subject", "s", "General", "Subject being studied")
	timerRunCmd.Flags().String("task", "", "What you are working on")
	timerRunCmd.Flags().Bool("no-reminders", false, "Disable break reminders")
	timerRunCmd.Flags().Duration("for", 0, "Stop automatically after this long")

	timerCmd.AddCommand(timerRunCmd, timerStatsCmd)
	rootCmd.AddCommand(timerCmd)
}
