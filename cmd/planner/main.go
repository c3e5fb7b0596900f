// Command planner is a study planner for the terminal: assignments, goals,
// notes, study sessions, moods, journal, shared quizzes and an AI coach.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/app"
	"github.com/loveeagles/planner/internal/config"
	"github.com/loveeagles/planner/internal/modules"
	"github.com/loveeagles/planner/internal/ui"
)

// loadTimeout bounds the wait for the first remote snapshot of a module.
const loadTimeout = 5 * time.Second

var cfgFile string

// cliState holds the services a command run opened. main owns it and
// commands reach it through their context.
type cliState struct {
	app    *app.Context
	opened []modules.Module
}

type stateKey struct{}

func withState(ctx context.Context, st *cliState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// stateOf returns the command's state. Commands run outside main get a
// fresh one attached to their context.
func stateOf(cmd *cobra.Command) *cliState {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if st, ok := ctx.Value(stateKey{}).(*cliState); ok {
		return st
	}
	st := &cliState{}
	cmd.SetContext(withState(ctx, st))
	return st
}

func (st *cliState) close() {
	for _, m := range st.opened {
		m.Close()
	}
	st.opened = nil
	if st.app != nil {
		if err := st.app.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		st.app = nil
	}
}

// exitCode is the panic value fatalf uses to unwind to main.
type exitCode int

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Study planner for the terminal",
	Long: `planner keeps your assignments, goals, notes, study sessions, moods and
journal in one place, shares quizzes with study partners and coaches you
with an optional AI assistant.

Data lives in a local SQLite database (or Postgres, or a shared planner
server) and is mirrored on disk so everything keeps working offline.

Examples:
  planner login --name "Ada"
  planner assignment add "Lab report" --subject Science --due friday
  planner timer run --subject Mathematics
  planner do "add note about photosynthesis process"
  planner tui`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stateOf(cmd).close()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "plan", Title: "Planning:"},
		&cobra.Group{ID: "study", Title: "Studying:"},
		&cobra.Group{ID: "wellness", Title: "Wellness:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "data", Title: "Data:"},
	)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Config file (default: planner.yaml or planner.toml)")
	f.String("data-dir", "", "Data directory")
	f.String("dsn", "", "SQLite file or postgres:// URL")
	f.String("remote", "", "URL of a planner server")
	f.String("ai-provider", "", "AI provider: anthropic, openai or none")
	f.String("ai-model", "", "AI model name")
	f.Bool("debug", false, "Enable debug logging")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	st := &cliState{}
	code := run(func() error { return rootCmd.ExecuteContext(withState(ctx, st)) })
	st.close()
	cancel()
	os.Exit(code)
}

// run calls execute and turns its outcome into an exit code. A fatalf
// anywhere below unwinds here, running deferred cleanups on the way.
func run(execute func() error) (code int) {
	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()
	if err := execute(); err != nil {
		return 1
	}
	return 0
}

// fatalf reports an error and exits with status 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	panic(exitCode(1))
}

func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		fatalf("%v", err)
	}
	return cfg
}

// mustApp builds the application services on first use and checks the
// signed-in user in for the day.
func mustApp(cmd *cobra.Command) *app.Context {
	st := stateOf(cmd)
	if st.app != nil {
		return st.app
	}
	c, err := app.NewContext(cmd.Context(), loadConfig(cmd))
	if err != nil {
		fatalf("%v", err)
	}
	st.app = c

	if c.Session.UserID() != "" {
		streak := modules.OpenStreak(cmd.Context(), c.Env())
		st, changed, err := streak.CheckIn(cmd.Context())
		if err != nil {
			c.Logger.Warn("daily check-in failed", "err", err)
		} else if changed && st.CurrentStreak > 1 {
			fmt.Printf("%s %d-day streak!\n", ui.RenderAccent("🔥"), st.CurrentStreak)
		}
	}
	return c
}

// openModule opens the named module and waits briefly for its data.
func openModule[T modules.Module](cmd *cobra.Command, name string) T {
	c := mustApp(cmd)
	m, err := c.Open(cmd.Context(), name)
	if err != nil {
		fatalf("%v", err)
	}
	st := stateOf(cmd)
	st.opened = append(st.opened, m)

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()
	if err := m.WaitLoaded(ctx); err != nil {
		c.Logger.Warn("showing offline data", "module", name, "err", err)
	}
	return m.(T)
}

// check exits on err, translating a missing sign-in into a hint.
func check(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, modules.ErrSignedOut) {
		fatalf("%v (run `planner login`)", err)
	}
	fatalf("%v", err)
}
