package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/session"
	"github.com/loveeagles/planner/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Sign in so your data follows you",
	Long: `Sign in with a display name, or anonymously.

The same name always maps to the same account, so signing in with your name
on another machine sharing the store brings your data along. Without flags
an interactive form asks for your name.

Examples:
  planner login
  planner login --name "Ada Lovelace"
  planner login --anonymous`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		anonymous, _ := cmd.Flags().GetBool("anonymous")

		if name == "" && !anonymous {
			if !ui.IsTerminal(os.Stdin) {
				fatalf("--name or --anonymous is required when not running in a terminal")
			}
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Your name").
						Description("Leave empty to continue as a guest").
						Value(&name),
				),
			).WithTheme(huh.ThemeDracula())
			if err := form.Run(); err != nil {
				fatalf("%v", err)
			}
			anonymous = strings.TrimSpace(name) == ""
		}

		c := mustApp(cmd)
		var (
			u   *session.User
			err error
		)
		if anonymous {
			u, err = c.Session.SignInAnonymously(cmd.Context())
		} else {
			u, err = c.Session.SignIn(cmd.Context(), name)
		}
		if errors.Is(err, session.ErrSignInInProgress) {
			fatalf("another sign-in is in progress")
		}
		if err != nil {
			fatalf("failed to sign in: %v", err)
		}

		label := u.DisplayName
		if u.Anonymous {
			label = "Guest"
		}
		fmt.Printf("%s Signed in as %s\n", ui.RenderPass("✓"), ui.RenderAccent(label))
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Sign out",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		if err := c.Session.SignOut(cmd.Context()); err != nil {
			fatalf("failed to sign out: %v", err)
		}
		fmt.Printf("%s Signed out\n", ui.RenderPass("✓"))
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	GroupID: "account",
	Short:   "Show the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		u := c.Session.CurrentUser()
		if u == nil {
			fmt.Println(ui.RenderMuted("Not signed in"))
			return
		}
		name := u.DisplayName
		if u.Anonymous {
			name = "Guest"
		}
		fmt.Println(ui.KV("Name", name))
		fmt.Println(ui.KV("User ID", u.ID))
		fmt.Println(ui.KV("Signed in", u.SignedInAt.Local().Format("Jan 2, 2006 15:04")))
		fmt.Println(ui.KV("Store", storeLabel(c.Config.Remote.URL, c.Config.DBPath())))
	},
}

func storeLabel(remoteURL, dbPath string) string {
	if remoteURL != "" {
		return remoteURL
	}
	return dbPath
}

func init() {
	loginCmd.Flags().String("name", "", "Display name")
	loginCmd.Flags().Bool("anonymous", false, "Sign in without a name")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
