package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/app"
	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/migrate"
	"github.com/loveeagles/planner/internal/ui"
)

// collectionPath resolves a collection name for the signed-in user, or a
// shared collection (quizzes, quiz-scores, streaks) at the top level.
func collectionPath(c *app.Context, name string) docstore.Path {
	switch name {
	case docstore.CollectionQuizzes, docstore.CollectionQuizScores, docstore.CollectionStreaks:
		return docstore.TopLevel(name)
	}
	uid := c.Session.UserID()
	if uid == "" {
		fatalf("sign in first (run `planner login`)")
	}
	return docstore.UserCollection(uid, name)
}

var exportCmd = &cobra.Command{
	Use:     "export <collection>",
	GroupID: "data",
	Short:   "Export a collection as JSONL, YAML or TOML",
	Long: `Export every document of a collection.

Per-user collections: assignments, goals, notes, moods, studySessions,
journalEntries. Shared collections: quizzes, quiz-scores, streaks.

Examples:
  planner export assignments -o assignments.jsonl
  planner export notes --format yaml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		f, err := migrate.ParseFormat(format)
		if err != nil {
			fatalf("%v", err)
		}

		c := mustApp(cmd)
		path := collectionPath(c, args[0])

		if output != "" && f == migrate.FormatJSONL {
			n, err := migrate.ExportJSONL(cmd.Context(), c.Store, path, output)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Fprintf(os.Stderr, "%s Exported %d documents to %s\n", ui.RenderPass("✓"), n, output)
			return
		}

		w := os.Stdout
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				fatalf("failed to create %s: %v", output, err)
			}
			defer file.Close()
			w = file
		}
		n, err := migrate.Export(cmd.Context(), c.Store, path, f, w)
		if err != nil {
			fatalf("%v", err)
		}
		if output != "" {
			fmt.Fprintf(os.Stderr, "%s Exported %d documents to %s\n", ui.RenderPass("✓"), n, output)
		}
	},
}

var importCmd = &cobra.Command{
	Use:     "import <collection> <file.jsonl>",
	GroupID: "data",
	Short:   "Import documents from a JSONL file",
	Long: `Import documents from a JSONL file into a collection. Documents are
upserted by id; lines without an id are skipped.

Examples:
  planner import assignments backup.jsonl --dry-run
  planner import notes notes.jsonl --backup`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backup, _ := cmd.Flags().GetBool("backup")

		c := mustApp(cmd)
		res, err := migrate.Import(cmd.Context(), c.Store, migrate.ImportOptions{
			File:   args[1],
			Path:   collectionPath(c, args[0]),
			DryRun: dryRun,
			Backup: backup,
		})
		if err != nil {
			fatalf("%v", err)
		}
		printResult(res, dryRun)
		if res.BackupCreated != "" {
			fmt.Println(ui.KV("Backup", res.BackupCreated))
		}
	},
}

var promoteCmd = &cobra.Command{
	Use:     "promote",
	GroupID: "data",
	Short:   "Copy data saved while signed out into your account",
	Long: `Copy everything saved on this machine while signed out (the offline
mirror) into the signed-in account's collections.`,
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		res, err := migrate.PromoteMirror(cmd.Context(), c.Mirror, c.Store, c.Session.UserID(), c.Logger)
		check(err)

		names := make([]string, 0, len(res.PerCollection))
		for name := range res.PerCollection {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(ui.KV(name, res.PerCollection[name]))
		}
		printResult(&res.Result, false)
	},
}

func printResult(r *migrate.Result, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Printf("%s %s %d documents", ui.RenderPass("✓"), verb, r.Imported)
	if r.Skipped > 0 {
		fmt.Printf(", skipped %d", r.Skipped)
	}
	fmt.Println()
	for _, e := range r.Errors {
		fmt.Println("  " + ui.RenderWarn(e))
	}
}

func init() {
	exportCmd.Flags().StringP("format", "f", migrate.FormatJSONL, "Output format: jsonl, yaml or toml")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	importCmd.Flags().Bool("dry-run", false, "Validate without writing")
	importCmd.Flags().Bool("backup", false, "Export the collection to <file>.backup.<timestamp> first")

	rootCmd.AddCommand(exportCmd, importCmd, promoteCmd)
}
