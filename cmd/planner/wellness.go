package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/ui"
)

var moodCmd = &cobra.Command{
	Use:     "mood [mood]",
	GroupID: "wellness",
	Short:   "Log today's mood or show mood history",
	Long: `Log how you feel today and get a study recommendation for it.

Moods: happy, calm, neutral, sad, stressed, tired. Logging again on the
same day replaces the earlier entry. Without arguments in a terminal a
picker is shown; otherwise recent history is printed.

Examples:
  planner mood calm --energy 7
  planner mood --history`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		energy, _ := cmd.Flags().GetInt("energy")
		history, _ := cmd.Flags().GetBool("history")
		m := openModule[*modules.Mood](cmd, modules.NameMood)

		if history {
			for _, e := range m.Recent(14) {
				fmt.Printf("%s  %-9s %s\n", e.Date, e.Mood, ui.ProgressBar(float64(e.Energy)*10, 10))
			}
			return
		}

		var mood string
		if len(args) == 1 {
			mood = strings.ToLower(args[0])
		} else if ui.IsTerminal(os.Stdin) {
			opts := make([]huh.Option[string], 0, len(records.Moods))
			for _, md := range records.Moods {
				opts = append(opts, huh.NewOption(md, md))
			}
			energyText := strconv.Itoa(energy)
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[string]().Title("How are you feeling?").Options(opts...).Value(&mood),
					huh.NewInput().
						Title("Energy (1-10)").
						Value(&energyText).
						Validate(func(s string) error {
							i, err := strconv.Atoi(s)
							if err != nil || i < 1 || i > 10 {
								return fmt.Errorf("energy must be 1-10")
							}
							return nil
						}),
				),
			).WithTheme(huh.ThemeDracula())
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
			energy, _ = strconv.Atoi(energyText)
		}

		if mood != "" {
			e, err := m.Log(mood, energy)
			check(err)
			fmt.Printf("%s Logged %s (energy %d)\n", ui.RenderPass("✓"), ui.RenderAccent(e.Mood), e.Energy)
		}
		if e, ok := m.Today(); ok && mood == "" {
			fmt.Println(ui.KV("Today", fmt.Sprintf("%s (energy %d)", e.Mood, e.Energy)))
		}
		if r, ok := m.Recommendation(); ok {
			fmt.Println(ui.KV("Focus on", r.Tasks))
			fmt.Println(ui.KV("Tip", r.Tip))
		}
		fmt.Println(ui.RenderMuted(m.Quote()))
	},
}

var journalCmd = &cobra.Command{
	Use:     "journal",
	GroupID: "wellness",
	Short:   "Daily reflection journal",
}

var journalWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write today's reflection",
	Long: `Write today's reflection: accomplishments, gratitude, challenges and plans
for tomorrow. Fields not given as flags are asked for interactively, starting
from your saved journal draft. Writing again today replaces the entry.`,
	Run: func(cmd *cobra.Command, args []string) {
		j := openModule[*modules.Journal](cmd, modules.NameJournal)

		var e records.JournalEntry
		if draft, ok, err := j.LoadDraft(cmd.Context()); err == nil && ok {
			e = draft
		} else if today, ok := j.Today(); ok {
			e = today
		}
		flags := cmd.Flags()
		for name, field := range map[string]*string{
			"accomplishments": &e.Accomplishments,
			"gratitude":       &e.Gratitude,
			"challenges":      &e.Challenges,
			"tomorrow":        &e.Tomorrow,
			"mood":            &e.Mood,
		} {
			if flags.Changed(name) {
				*field, _ = flags.GetString(name)
			}
		}

		if flags.NFlag() == 0 && ui.IsTerminal(os.Stdin) {
			prompt := func(category string) string {
				p, _ := modules.RandomPrompt(category)
				return p
			}
			moods := make([]huh.Option[string], 0, len(records.JournalMoods))
			for _, md := range records.JournalMoods {
				moods = append(moods, huh.NewOption(md, md))
			}
			if e.Mood == "" {
				e.Mood = modules.DefaultJournalMood
			}
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewText().Title("Accomplishments").Description(prompt(modules.PromptAccomplishments)).Value(&e.Accomplishments),
					huh.NewText().Title("Gratitude").Description(prompt(modules.PromptGratitude)).Value(&e.Gratitude),
					huh.NewText().Title("Challenges").Description(prompt(modules.PromptChallenges)).Value(&e.Challenges),
					huh.NewText().Title("Tomorrow").Description(prompt(modules.PromptTomorrow)).Value(&e.Tomorrow),
					huh.NewSelect[string]().Title("Overall mood").Options(moods...).Value(&e.Mood),
				),
			).WithTheme(huh.ThemeDracula())
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
		}

		saved, err := j.Save(cmd.Context(), e)
		check(err)
		fmt.Printf("%s Saved reflection for %s\n", ui.RenderPass("✓"), saved.Date)
		fmt.Println(ui.KV("Streak", fmt.Sprintf("%d days", j.Streak())))
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recent reflections and insights",
	Run: func(cmd *cobra.Command, args []string) {
		j := openModule[*modules.Journal](cmd, modules.NameJournal)
		entries := j.Entries()
		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("No reflections yet"))
			return
		}
		if len(entries) > 7 {
			entries = entries[len(entries)-7:]
		}
		for _, e := range entries {
			fmt.Printf("%s  %s\n", ui.RenderAccent(e.Date), e.Mood)
			for _, line := range []struct{ k, v string }{
				{"Accomplished", e.Accomplishments},
				{"Grateful for", e.Gratitude},
				{"Challenges", e.Challenges},
				{"Tomorrow", e.Tomorrow},
			} {
				if line.v != "" {
					fmt.Println("  " + ui.KV(line.k, line.v))
				}
			}
		}
		fmt.Println()
		fmt.Println(ui.KV("Streak", fmt.Sprintf("%d days", j.Streak())))
		if s, ok := j.Insights(); ok {
			fmt.Println(ui.KV("Usual mood", s.DominantMood))
			fmt.Println(ui.KV("Themes", strings.Join(s.TopWords, ", ")))
		}
	},
}

var journalPromptsCmd = &cobra.Command{
	Use:   "prompts <category>",
	Short: "List reflection prompts (accomplishments, gratitude, challenges, tomorrow)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ps, err := modules.Prompts(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		for _, p := range ps {
			fmt.Println("• " + p)
		}
	},
}

func init() {
	moodCmd.Flags().Int("energy", modules.DefaultEnergy, "Energy level 1-10")
	moodCmd.Flags().Bool("history", false, "Show the last two weeks")

	f := journalWriteCmd.Flags()
	f.String("accomplishments", "", "What you accomplished")
	f.String("gratitude", "", "What you are grateful for")
	f.String("challenges", "", "What was hard")
	f.String("tomorrow", "", "Plans for tomorrow")
	f.String("mood", "", "Overall mood: excellent, good, okay, challenging or difficult")

	journalCmd.AddCommand(journalWriteCmd, journalShowCmd, journalPromptsCmd)
	rootCmd.AddCommand(moodCmd, journalCmd)
}
