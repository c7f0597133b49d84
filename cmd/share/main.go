package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fileshare/internal/client"
	"fileshare/internal/linkname"
)

var (
	server       string
	username     string
	password     string
	link         string
	public       bool
	filePassword string
)

var rootCmd = &cobra.Command{
	Use:   "share [flags] PATH...",
	Short: "Upload files to a fileshare server",
	Long: `share uploads a file, several files or a directory to a fileshare server.
A single file is sent as-is; anything else is bundled into a ZIP first.

Admin credentials default to $FILESHARE_USER and $FILESHARE_PASSWORD.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&server, "server", envOr("FILESHARE_SERVER", "http://localhost:8080"), "server base URL")
	flags.StringVar(&username, "user", os.Getenv("FILESHARE_USER"), "admin username")
	flags.StringVar(&password, "password", os.Getenv("FILESHARE_PASSWORD"), "admin password")
	flags.StringVar(&link, "link", "", "custom link to publish under (required)")
	flags.BoolVar(&public, "public", false, "make the link public")
	flags.StringVar(&filePassword, "file-password", "", "protect the link with a password")
	_ = rootCmd.MarkFlagRequired("link")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if !linkname.Valid(link) {
		return &client.ValidationError{Arg: link, Cause: "link may only contain letters, digits, '.', '_' and '-'"}
	}

	parsedPaths, err := client.ParseArgs(args)
	if err != nil {
		return err
	}

	payload, err := client.NewPayload(parsedPaths, link)
	if err != nil {
		return fmt.Errorf("preparing upload: %w", err)
	}
	if payload.Bundled {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Bundled %d path(s) into %s (%d bytes)\n", len(parsedPaths), payload.Filename, payload.Size)
	}

	uploader, err := client.NewUploader(server, username, password)
	if err != nil {
		return err
	}

	result, err := uploader.Upload(cmd.Context(), payload, client.UploadOptions{
		Link:         link,
		Public:       public,
		FilePassword: filePassword,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", result.Message)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", result.URL)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
