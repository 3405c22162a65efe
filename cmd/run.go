package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pinforge/actionpin/application"
	"github.com/pinforge/actionpin/config"
	providerPkg "github.com/pinforge/actionpin/infrastructure/provider"
	ghProv "github.com/pinforge/actionpin/infrastructure/provider/github"
	glProv "github.com/pinforge/actionpin/infrastructure/provider/gitlab"
)

const (
	providerGitHub = "github"
	providerGitLab = "gitlab"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	reposFlag         string
	providerFlag      string
	branchFlag        string
	baseBranchFlag    string
	cloneDirFlag      string
	cloneDepthFlag    int
	cleanCommentFlag  bool
	commitMessageFlag string
	prTitleFlag       string
	prBodyPathFlag    string
	outputFlag        string
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clone, pin, push, and upsert pull requests for the configured repositories",
	Long: `Process every configured repository in order: clone its default branch,
run the pinning tool over .github/workflows, commit the changes on the
dedicated branch, force-push it, and create or update the pull request.

Repositories come from --repos or the config file. The exit code is zero
only when no repository failed; repositories with nothing to pin are
skipped and do not affect it.`,
	RunE: runDispatch,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	runCmd.Flags().StringVar(
		&reposFlag, "repos", "",
		"Comma-separated owner/name list (overrides the config file)",
	)
	runCmd.Flags().StringVar(
		&providerFlag, "provider", "",
		"Hosting provider (github, gitlab)",
	)
	runCmd.Flags().StringVar(
		&branchFlag, "branch", "",
		"Branch the pinned changes are pushed to",
	)
	runCmd.Flags().StringVar(
		&baseBranchFlag, "base-branch", "",
		"Pull request base branch (default: the remote default branch)",
	)
	runCmd.Flags().StringVar(
		&cloneDirFlag, "clone-dir", "",
		"Directory to clone into (default: a run-scoped temp dir)",
	)
	runCmd.Flags().IntVar(
		&cloneDepthFlag, "clone-depth", 0,
		"Shallow clone depth, 0 for full history",
	)
	runCmd.Flags().BoolVar(
		&cleanCommentFlag, "clean-comment", false,
		"Rewrite pin comments to keep only the original reference",
	)
	runCmd.Flags().StringVar(
		&commitMessageFlag, "commit-message", "",
		"Commit message override",
	)
	runCmd.Flags().StringVar(
		&prTitleFlag, "pr-title", "",
		"Pull request title override",
	)
	runCmd.Flags().StringVar(
		&prBodyPathFlag, "pr-body-path", "",
		"File with the pull request body template",
	)
	runCmd.Flags().StringVar(
		&outputFlag, "output", "table",
		"Report format: table or json",
	)
	rootCmd.AddCommand(runCmd)
}

func runDispatch(command *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadRunConfig(command)
	if err != nil {
		return err
	}

	svc, err := injectDispatchService(cfg)
	if err != nil {
		return err
	}

	logger.Info("Starting actionpin run...")

	report, err := svc.Run(ctx, cfg, application.RunOptions{
		DryRun:  dryRun,
		Verbose: verbose,
	})
	if err != nil {
		return err
	}

	if renderErr := renderReport(command.OutOrStdout(), report, outputFlag); renderErr != nil {
		return renderErr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("run cancelled: %w", ctxErr)
	}

	if report.HasFailures() {
		_, _, failed := report.Counts()
		return fmt.Errorf("%d of %d repositories failed", failed, len(report.Outcomes))
	}

	return nil
}

// loadRunConfig merges the config file, flags, and environment into the
// effective configuration for this run. Flags win over the file, the file
// wins over the built-in defaults.
func loadRunConfig(command *cobra.Command) (*config.Config, error) {
	cfg, err := loadBaseConfig(command)
	if err != nil {
		return nil, err
	}

	if cfg.Provider.Token == "" {
		cfg.Provider.Token = resolveTokenFromEnv(cfg.Provider.Type)
	}
	if cfg.Provider.Token == "" {
		return nil, fmt.Errorf(
			"no auth token found for %s; set --token, provider.token in the config file, "+
				"or the appropriate env var (%s)",
			cfg.Provider.Type, tokenEnvHint(cfg.Provider.Type),
		)
	}

	return cfg, nil
}

// loadBaseConfig resolves the config file and applies flag overrides without
// enforcing a token, which local mode defers until the provider is detected.
func loadBaseConfig(command *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	cfgPath := configPath
	if cfgPath == "" {
		if found, findErr := config.FindConfigFile(); findErr == nil {
			cfgPath = found
		}
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		logger.Infof("Using config file: %s", cfgPath)
		cfg = loaded
	}

	applyFlagOverrides(command, cfg)

	return cfg, nil
}

func applyFlagOverrides(command *cobra.Command, cfg *config.Config) {
	flags := command.Flags()

	if flags.Changed("repos") {
		cfg.Repositories = splitRepos(reposFlag)
	}
	if flags.Changed("provider") {
		cfg.Provider.Type = providerFlag
	}
	if tokenFlag != "" {
		cfg.Provider.Token = tokenFlag
	}
	if flags.Changed("branch") {
		cfg.Branch = branchFlag
	}
	if flags.Changed("base-branch") {
		cfg.BaseBranch = baseBranchFlag
	}
	if flags.Changed("clone-dir") {
		cfg.CloneDir = cloneDirFlag
	}
	if flags.Changed("clone-depth") {
		cfg.CloneDepth = cloneDepthFlag
	}
	if flags.Changed("clean-comment") {
		cfg.CleanComment = cleanCommentFlag
	}
	if flags.Changed("commit-message") {
		cfg.CommitMessage = commitMessageFlag
	}
	if flags.Changed("pr-title") {
		cfg.PullRequest.Title = prTitleFlag
	}
	if flags.Changed("pr-body-path") {
		cfg.PullRequest.BodyPath = prBodyPathFlag
	}
}

// splitRepos turns the --repos value into individual tokens, dropping empty
// entries so trailing commas are harmless.
func splitRepos(raw string) []string {
	parts := strings.Split(raw, ",")
	repos := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			repos = append(repos, trimmed)
		}
	}
	return repos
}

func buildProviderRegistry() *providerPkg.Registry {
	reg := providerPkg.NewRegistry()
	reg.Register(providerGitHub, ghProv.New)
	reg.Register(providerGitLab, glProv.New)
	return reg
}

// resolveTokenFromEnv reads the auth token from well-known environment
// variables for the given provider type.
func resolveTokenFromEnv(providerType string) string {
	switch providerType {
	case providerGitHub:
		if t := os.Getenv("GITHUB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GH_TOKEN")
	case providerGitLab:
		if t := os.Getenv("GITLAB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GL_TOKEN")
	default:
		return ""
	}
}

// tokenEnvHint returns a human-friendly hint about which environment
// variable to set for the given provider.
func tokenEnvHint(providerType string) string {
	switch providerType {
	case providerGitHub:
		return "GITHUB_TOKEN or GH_TOKEN"
	case providerGitLab:
		return "GITLAB_TOKEN or GL_TOKEN"
	default:
		return "<unknown provider>"
	}
}
