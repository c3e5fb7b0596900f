package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/ui"
)

var quizCmd = &cobra.Command{
	Use:     "quiz",
	GroupID: "study",
	Short:   "Create, share and take quizzes",
	Long: `Quizzes are shared with everyone using the same store. Scores are listed
for you and your study partners; a quiz's full results are shown once at
least two people have finished it.`,
}

var quizListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quizzes",
	Run: func(cmd *cobra.Command, args []string) {
		q := openModule[*modules.Quizzes](cmd, modules.NameQuiz)
		quizzes := q.List()
		if len(quizzes) == 0 {
			fmt.Println(ui.RenderMuted("No quizzes yet"))
			return
		}
		for _, quiz := range quizzes {
			fmt.Printf("%-32s %2d questions  %d finished  %s\n",
				ui.Truncate(quiz.Title, 32), len(quiz.Questions), len(quiz.Scores), ui.RenderMuted(quiz.ID))
		}
	},
}

var quizCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a quiz from a topic, a text file or by hand",
	Long: `Create a quiz.

--topic and --file generate questions with the AI service (or a built-in
fallback when it is unavailable). Without either, questions are entered
interactively. A quiz needs at least five complete questions.

Examples:
  planner quiz create "Cell biology" --topic "cell organelles" --questions 8
  planner quiz create "Chapter 3" --file notes/chapter3.md`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		topic, _ := cmd.Flags().GetString("topic")
		file, _ := cmd.Flags().GetString("file")
		n, _ := cmd.Flags().GetInt("questions")

		q := openModule[*modules.Quizzes](cmd, modules.NameQuiz)
		var (
			questions []records.Question
			source    string
			err       error
		)
		switch {
		case topic != "":
			fmt.Println(ui.RenderMuted("Generating questions..."))
			questions, err = q.GenerateFromTopic(cmd.Context(), topic, n)
			source = modules.SourceTopic
		case file != "":
			text, rerr := ai.ReadSourceFile(file)
			if rerr != nil {
				fatalf("%v", rerr)
			}
			fmt.Println(ui.RenderMuted("Generating questions..."))
			questions, err = q.GenerateFromText(cmd.Context(), text, n)
			source = modules.SourceText
		default:
			if !ui.IsTerminal(os.Stdin) {
				fatalf("--topic or --file is required when not running in a terminal")
			}
			questions = askQuestions(n)
			source = modules.SourceManual
		}
		check(err)

		quiz, err := q.Create(cmd.Context(), args[0], questions, source)
		check(err)
		fmt.Printf("%s Created %s with %d questions\n", ui.RenderPass("✓"), ui.RenderAccent(quiz.Title), len(quiz.Questions))
		fmt.Println(ui.RenderMuted("id: " + quiz.ID))
	},
}

// askQuestions collects n questions with four options each.
func askQuestions(n int) []records.Question {
	qs := modules.BlankQuiz(n)
	for i := range qs {
		correct := "1"
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title(fmt.Sprintf("Question %d of %d", i+1, n)).Value(&qs[i].Question),
				huh.NewInput().Title("Option 1").Value(&qs[i].Options[0]),
				huh.NewInput().Title("Option 2").Value(&qs[i].Options[1]),
				huh.NewInput().Title("Option 3").Value(&qs[i].Options[2]),
				huh.NewInput().Title("Option 4").Value(&qs[i].Options[3]),
				huh.NewSelect[string]().
					Title("Correct option").
					Options(huh.NewOptions("1", "2", "3", "4")...).
					Value(&correct),
			),
		).WithTheme(huh.ThemeDracula())
		if err := form.Run(); err != nil {
			fatalf("%v", err)
		}
		qs[i].Correct, _ = strconv.Atoi(correct)
		qs[i].Correct--
	}
	return qs
}

var quizTakeCmd = &cobra.Command{
	Use:   "take <id>",
	Short: "Take a quiz",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !ui.IsTerminal(os.Stdin) {
			fatalf("taking a quiz needs a terminal")
		}
		q := openModule[*modules.Quizzes](cmd, modules.NameQuiz)
		quiz, err := q.Get(cmd.Context(), args[0])
		check(err)

		fmt.Println(ui.RenderTitle(quiz.Title))
		answers := make(map[int]int, len(quiz.Questions))
		for i, qu := range quiz.Questions {
			choice := -1
			opts := make([]huh.Option[int], len(qu.Options))
			for j, o := range qu.Options {
				opts[j] = huh.NewOption(o, j)
			}
			err := huh.NewSelect[int]().
				Title(fmt.Sprintf("%d. %s", i+1, qu.Question)).
				Options(opts...).
				Value(&choice).
				Run()
			if err != nil {
				fatalf("%v", err)
			}
			answers[i] = choice
		}

		res, err := q.Submit(cmd.Context(), quiz.ID, answers)
		check(err)
		fmt.Printf("\n%s %d%% (%d/%d)  %s\n", ui.RenderAccent("Score:"), res.Score, res.Correct, res.Total, res.Badge)
		if !res.ShowResults {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("Results unlock when %d people have finished (%d so far).", modules.ResultsThreshold, res.Finished)))
			return
		}
		for i, qu := range quiz.Questions {
			mark := ui.RenderPass("✓")
			if answers[i] != qu.Correct {
				mark = ui.RenderFail("✗")
			}
			fmt.Printf("%s %d. %s  %s\n", mark, i+1, qu.Question, ui.RenderMuted(qu.Options[qu.Correct]))
			if qu.Explanation != "" {
				fmt.Println("   " + ui.RenderMuted(qu.Explanation))
			}
		}
	},
}

var quizScoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show your scores and your partners'",
	Run: func(cmd *cobra.Command, args []string) {
		q := openModule[*modules.Quizzes](cmd, modules.NameQuiz)
		mine, partners := q.Scores()
		s := q.Stats()

		fmt.Println(ui.KV("Quizzes taken", s.TotalQuizzes))
		fmt.Println(ui.KV("Average", fmt.Sprintf("%d%%", s.AverageScore)))
		fmt.Println(ui.KV("Best", fmt.Sprintf("%d%%", s.HighestScore)))
		fmt.Println(ui.KV("This week", s.RecentTests))

		list := func(title string, scores []records.QuizScore, withName bool) {
			if len(scores) == 0 {
				return
			}
			fmt.Println("\n" + ui.RenderAccent(title))
			for _, sc := range scores {
				who := ""
				if withName {
					who = fmt.Sprintf("%-14s ", ui.Truncate(sc.UserName, 14))
				}
				fmt.Printf("  %s%-28s %3d%%  %s\n", who, ui.Truncate(sc.QuizTitle, 28), sc.Score, ui.RenderMuted(sc.CompletedAt.Local().Format("Jan 2")))
			}
		}
		list("Yours", mine, false)
		list("Study partners", partners, true)
	},
}

var quizRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a quiz you created",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		q := openModule[*modules.Quizzes](cmd, modules.NameQuiz)
		check(q.Delete(cmd.Context(), args[0]))
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	quizCreateCmd.Flags().String("topic", "", "Generate questions about a topic")
	quizCreateCmd.Flags().String("file", "", "Generate questions from a text or markdown file")
	quizCreateCmd.Flags().IntP("questions", "n", records.MinQuizQuestions, "Number of questions")

	quizCmd.AddCommand(quizListCmd, quizCreateCmd, quizTakeCmd, quizScoresCmd, quizRmCmd)
	rootCmd.AddCommand(quizCmd)
}
