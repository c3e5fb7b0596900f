package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/records"
	"github.com/loveeagles/planner/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	GroupID: "study",
	Short:   "Manage study notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Write a note",
	Long: `Write a note.

Content comes from --content, from stdin when it is piped, or from an
interactive editor. The editor starts from your saved note draft, if any.

Examples:
  planner note add "Cell structure" --subject Biology --content "Mitochondria ..."
  cat lecture.md | planner note add "Lecture 4" --tag lecture`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subject, _ := cmd.Flags().GetString("subject")
		content, _ := cmd.Flags().GetString("content")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		n := openModule[*modules.Notes](cmd, modules.NameNotes)
		note := records.Note{Subject: subject, Tags: tags, Content: content}
		if len(args) == 1 {
			note.Title = args[0]
		}

		if note.Content == "" && !ui.IsTerminal(os.Stdin) {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatalf("failed to read stdin: %v", err)
			}
			note.Content = string(b)
		}
		if note.Content == "" {
			if draft, ok, err := n.LoadDraft(cmd.Context()); err == nil && ok {
				note = draft
			}
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().Title("Title").Value(&note.Title),
					huh.NewInput().Title("Subject").Value(&note.Subject),
					huh.NewText().Title("Content").Value(&note.Content),
				),
			).WithTheme(huh.ThemeDracula())
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
		}

		saved, err := n.Save(cmd.Context(), note)
		check(err)
		fmt.Printf("%s Saved %s\n", ui.RenderPass("✓"), ui.RenderAccent(saved.Title))
		fmt.Println(ui.RenderMuted("id: " + saved.ID))
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List or search notes",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subject, _ := cmd.Flags().GetString("subject")
		n := openModule[*modules.Notes](cmd, modules.NameNotes)

		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		notes := n.Search(term, subject)
		if len(notes) == 0 {
			fmt.Println(ui.RenderMuted("No notes"))
			return
		}
		for _, note := range notes {
			tags := ""
			if len(note.Tags) > 0 {
				tags = "#" + strings.Join(note.Tags, " #")
			}
			fmt.Printf("%-30s %-14s %s  %s\n", ui.Truncate(note.Title, 30), note.Subject, ui.RenderAccent(tags), ui.RenderMuted(note.ID))
		}
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a note with its summary, review questions and resources",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n := openModule[*modules.Notes](cmd, modules.NameNotes)
		note, ok := n.Get(args[0])
		if !ok {
			fatalf("note %s not found", args[0])
		}

		fmt.Println(ui.RenderTitle(note.Title))
		fmt.Println(ui.KV("Subject", note.Subject))
		fmt.Println(ui.KV("Modified", note.LastModified.Local().Format("Jan 2, 2006 15:04")))
		if len(note.Tags) > 0 {
			fmt.Println(ui.KV("Tags", strings.Join(note.Tags, ", ")))
		}
		fmt.Println(ui.KV("Shared with", strings.Join(note.Collaborators, ", ")))
		fmt.Printf("\n%s\n\n", note.Content)

		summary, _ := n.Summary(note.ID)
		fmt.Println(ui.RenderBox("Summary\n" + summary))
		if qs, _ := n.Questions(note.ID); len(qs) > 0 {
			fmt.Println(ui.RenderAccent("Review questions"))
			for _, q := range qs {
				fmt.Printf("  %d. %s\n", q.ID, q.Question)
			}
		}
		fmt.Println(ui.RenderAccent("Resources"))
		for _, r := range modules.Resources(note.Subject) {
			fmt.Printf("  • %s\n", r)
		}
	},
}

var noteTagCmd = &cobra.Command{
	Use:   "tag <id> <tag>",
	Short: "Add a tag to a note (--remove to drop it)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		remove, _ := cmd.Flags().GetBool("remove")
		n := openModule[*modules.Notes](cmd, modules.NameNotes)

		var (
			note records.Note
			err  error
		)
		if remove {
			note, err = n.RemoveTag(args[0], args[1])
		} else {
			note, err = n.AddTag(args[0], args[1])
		}
		check(err)
		fmt.Printf("%s %s: %s\n", ui.RenderPass("✓"), note.Title, strings.Join(note.Tags, ", "))
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n := openModule[*modules.Notes](cmd, modules.NameNotes)
		check(n.Delete(args[0]))
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	noteAddCmd.Flags().String("subject", "General", "Subject")
	noteAddCmd.Flags().String("content", "", "Note content")
	noteAddCmd.Flags().StringSlice("tag", nil, "Tag (repeatable)")
	noteListCmd.Flags().String("subject", modules.AllSubjects, "Only notes for this subject")
	noteTagCmd.Flags().Bool("remove", false, "Remove the tag instead")

	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteShowCmd, noteTagCmd, noteRmCmd)
	rootCmd.AddCommand(noteCmd)
}
