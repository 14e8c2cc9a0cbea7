// Package cmd provides CLI commands for Kindred.
//
// Commands:
//   - serve: HTTP API server for the companion app
//   - ingest: chunk, embed, and index documents into the vector index
//   - migrate: apply database migrations
//   - version: show version information
//
// Signal handling and graceful shutdown are implemented for serve via
// context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kindredapp/kindred/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "kindred",
	Short: "Kindred - AI companion backend",
	Long: `Kindred is the backend for the Kindred companion app.

It serves the chat API, maintains per-user knowledge extracted from
conversations, and retrieves relevant context from a vector index on
every chat turn.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Kindred CLI.
func Execute() error {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG enables debug level and
// LOG_JSON switches to JSON output for log collectors.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
