package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	// Global flags
	configPath string
	tokenFlag  string
	dryRun     bool
	verbose    bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "actionpin",
	Short: "Pin GitHub Actions versions across many repositories",
	Long: `A batch CLI that clones a list of repositories, runs ratchet over their
GitHub Actions workflows to pin mutable action references to immutable
digests, and opens (or refreshes) one pull request per repository with
the result.

Each repository is processed independently: a failure in one never stops
the rest of the batch. Rerunning is safe, the dedicated branch is force
pushed and the open pull request is updated in place.`,
}

func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "",
		"Auth token for the Git provider (overrides config and env vars)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Clone and pin but skip commit, push, and pull request")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")
}
