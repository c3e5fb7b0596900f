package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/remote"
	"github.com/loveeagles/planner/internal/tui"
	"github.com/loveeagles/planner/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "data",
	Short:   "Share the document store with other planner clients",
	Long: `Serve the local document store over HTTP so study partners (or your other
machines) can share quizzes and sync their data. Clients connect with
--remote or remote.url in their config.

Endpoints:
  GET    /health
  GET    /v1/docs?path={path}        list a collection
  GET    /v1/docs/{id}?path={path}   read a document
  PUT    /v1/docs/{id}?path={path}   write a document
  DELETE /v1/docs/{id}?path={path}   delete a document
  GET    /v1/watch?path={path}       WebSocket change feed

Examples:
  planner serve
  planner serve --port 9000 --dsn postgres://planner@db/planner`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		l, closer, err := logger.New(logger.Config{Debug: cfg.Log.Debug, File: cfg.LogFile()})
		if err != nil {
			fatalf("failed to open log: %v", err)
		}
		defer closer.Close()

		store, err := docstore.OpenContext(cmd.Context(), cfg.DBPath(), l)
		if err != nil {
			fatalf("failed to open store: %v", err)
		}
		defer store.Close()

		server, err := remote.NewServer(&remote.Config{
			Port:   cfg.Remote.Port,
			Store:  store,
			Logger: l,
		})
		if err != nil {
			fatalf("%v", err)
		}
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
			return
		}

		fmt.Printf("%s Serving %s on %s\n", ui.RenderPass("✓"), cfg.DBPath(), server.Addr())
		fmt.Printf("Health check: http://localhost:%d/health\n", cfg.Remote.Port)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-cmd.Context().Done()

		fmt.Println("\nShutting down server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			return
		}
		fmt.Println("Server stopped")
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the full-screen planner",
	Run: func(cmd *cobra.Command, args []string) {
		c := mustApp(cmd)
		if err := tui.Run(cmd.Context(), c); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd, tuiCmd)
}
