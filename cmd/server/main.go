package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fileshare/internal/server/config"
	"fileshare/internal/server/logging"
)

var rootCmd = &cobra.Command{
	Use:   "fileshare",
	Short: "Self-hosted file sharing server",
	Long: `fileshare serves uploaded files under operator-chosen links. Links can be
private (admin only), password protected, or public.

Running without a subcommand is the same as "fileshare serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads and validates configuration and installs the default logger.
func setup() (*config.Config, io.Closer, error) {
	cfg := config.Load()

	logger, closer := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		closer.Close()
		return nil, nil, err
	}

	slog.Info("configuration loaded",
		"port", cfg.Port,
		"upload_dir", cfg.UploadDir,
		"db_type", cfg.DatabaseType,
		"max_file_size", cfg.MaxFileSize,
		"session_timeout", cfg.SessionTimeout.String(),
	)
	return cfg, closer, nil
}
