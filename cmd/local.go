package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pinforge/actionpin/application"
	"github.com/pinforge/actionpin/domain"
	"github.com/pinforge/actionpin/infrastructure/pinner/ratchet"
	"github.com/pinforge/actionpin/infrastructure/workspace"
)

// remoteInfo holds the parsed components of a Git remote URL.
type remoteInfo struct {
	ProviderType string
	Repo         domain.TargetRepo
}

//nolint:gochecknoglobals // required by cobra CLI pattern
var localCmd = &cobra.Command{
	Use:   "local [path]",
	Short: "Pin workflows in an existing clone and open the pull request",
	Long: `Run the pinning tool against a repository that is already on disk,
defaulting to the current directory. The hosting provider and the
owner/name pair are detected from the origin remote, the currently
checked-out branch becomes the pull request base, and the result is
committed to the dedicated branch, force-pushed, and turned into a
pull request just like a batch run.

The working tree must be clean; uncommitted changes would end up in
the pinning commit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocal,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	localCmd.Flags().StringVar(
		&branchFlag, "branch", "",
		"Branch the pinned changes are pushed to",
	)
	localCmd.Flags().StringVar(
		&baseBranchFlag, "base-branch", "",
		"Pull request base branch (default: the branch checked out now)",
	)
	localCmd.Flags().BoolVar(
		&cleanCommentFlag, "clean-comment", false,
		"Rewrite pin comments to keep only the original reference",
	)
	localCmd.Flags().StringVar(
		&commitMessageFlag, "commit-message", "",
		"Commit message override",
	)
	localCmd.Flags().StringVar(
		&prTitleFlag, "pr-title", "",
		"Pull request title override",
	)
	localCmd.Flags().StringVar(
		&prBodyPathFlag, "pr-body-path", "",
		"File with the pull request body template",
	)
	rootCmd.AddCommand(localCmd)
}

// runLocal is the entry point for the standalone local mode. It pins the
// workflows of the given working copy, pushes the dedicated branch, and
// upserts the pull request, auto-detecting the provider from the origin
// remote.
func runLocal(command *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	repoDir, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	cfg, err := loadBaseConfig(command)
	if err != nil {
		return err
	}

	rawURL, err := workspace.OriginURL(repoDir)
	if err != nil {
		return fmt.Errorf("failed to detect git provider: %w", err)
	}
	remote, err := parseRemoteURL(rawURL)
	if err != nil {
		return fmt.Errorf("failed to detect git provider: %w", err)
	}
	logger.Infof("Detected %s repository %s", remote.ProviderType, remote.Repo)
	cfg.Provider.Type = remote.ProviderType

	if cfg.Provider.Token == "" {
		cfg.Provider.Token = resolveTokenFromEnv(remote.ProviderType)
	}
	if !dryRun && cfg.Provider.Token == "" {
		return fmt.Errorf(
			"no auth token found for %s; set --token or the appropriate env var (%s)",
			remote.ProviderType, tokenEnvHint(remote.ProviderType),
		)
	}

	provider, err := buildProviderRegistry().Get(cfg.Provider.Type, cfg.Provider.Token)
	if err != nil {
		return err
	}

	ws, err := workspace.Open(repoDir, provider.CloneUsername(), provider.AuthToken())
	if err != nil {
		return err
	}

	baseBranch := cfg.BaseBranch
	if baseBranch == "" {
		baseBranch = ws.DefaultBranch()
	}
	if baseBranch == "HEAD" {
		return errors.New("detached HEAD: check out the branch the pull request should target")
	}

	dirty, err := ws.HasChanges()
	if err != nil {
		return err
	}
	if dirty {
		return errors.New("working tree has uncommitted changes, commit or stash them first")
	}

	pinner := ratchet.New(cfg.Pinner.Binary, cfg.CleanComment)
	if _, versionErr := pinner.Version(ctx); versionErr != nil {
		return fmt.Errorf("pinning tool preflight failed: %w", versionErr)
	}

	if checkoutErr := ws.CheckoutBranch(cfg.Branch); checkoutErr != nil {
		return checkoutErr
	}
	logger.Infof("Pinning workflows on branch %q (base %q)", cfg.Branch, baseBranch)

	if _, runErr := pinner.Run(ctx, repoDir); runErr != nil {
		return runErr
	}

	changed, err := ws.HasChanges()
	if err != nil {
		return err
	}
	if !changed {
		logger.Info("No workflow changes detected, nothing to do.")
		return nil
	}

	files, err := ws.ChangedFiles()
	if err != nil {
		return err
	}
	logger.Infof("%d files changed", len(files))
	for _, file := range files {
		logger.Debugf("  %s", file)
	}

	if dryRun {
		logger.Infof("Dry run: %d files left unstaged on branch %q", len(files), cfg.Branch)
		return nil
	}

	commitID, err := ws.CommitAll(cfg.CommitMessage, application.BotName, application.BotEmail)
	if err != nil {
		return err
	}
	logger.Debugf("Committed %s", commitID)

	if pushErr := ws.ForcePush(ctx, cfg.Branch); pushErr != nil {
		return pushErr
	}
	logger.Infof("Pushed %q", cfg.Branch)

	bodyTemplate, err := application.ResolveBodyTemplate(cfg)
	if err != nil {
		return err
	}
	body := application.RenderBody(bodyTemplate, remote.Repo, cfg.Branch, baseBranch)

	pullRequest, err := application.UpsertPullRequest(ctx, provider, remote.Repo, domain.PullRequestInput{
		HeadBranch: cfg.Branch,
		BaseBranch: baseBranch,
		Title:      cfg.PullRequest.Title,
		Body:       body,
	})
	if err != nil {
		return err
	}

	logger.Infof("Pull request #%d: %s", pullRequest.Number, pullRequest.URL)
	logger.Infof("The working tree was left on branch %q", cfg.Branch)
	return nil
}

// parseRemoteURL extracts the provider type and the owner/name pair from a
// Git remote URL. It supports the HTTPS and SSH formats used by GitHub and
// GitLab.
func parseRemoteURL(rawURL string) (*remoteInfo, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	// --- GitHub ---
	if strings.Contains(cleaned, "github.com") {
		repo, err := parseStandardGitURL(cleaned, "github.com")
		if err != nil {
			return nil, err
		}
		return &remoteInfo{ProviderType: providerGitHub, Repo: repo}, nil
	}

	// --- GitLab ---
	if strings.Contains(cleaned, "gitlab.com") {
		repo, err := parseStandardGitURL(cleaned, "gitlab.com")
		if err != nil {
			return nil, err
		}
		return &remoteInfo{ProviderType: providerGitLab, Repo: repo}, nil
	}

	return nil, fmt.Errorf("unsupported git remote URL: %s", rawURL)
}

// parseStandardGitURL handles the common HTTPS/SSH layout used by
// GitHub and GitLab:
//
//	HTTPS: https://{host}/{owner}/{repo}[.git]
//	SSH:   git@{host}:{owner}/{repo}[.git]
func parseStandardGitURL(url, hostname string) (domain.TargetRepo, error) {
	var pathPart string

	if strings.HasPrefix(url, "git@") {
		// git@{host}:{owner}/{repo}
		parts := strings.SplitN(url, ":", 2) //nolint:mnd // host:path
		if len(parts) < 2 {                  //nolint:mnd // need both parts
			return domain.TargetRepo{}, fmt.Errorf("invalid SSH URL: %s", url)
		}
		pathPart = parts[1]
	} else {
		// https://{host}/{owner}/{repo}
		idx := strings.Index(url, hostname)
		if idx < 0 {
			return domain.TargetRepo{}, fmt.Errorf("hostname %s not found in URL: %s", hostname, url)
		}
		pathPart = strings.TrimPrefix(url[idx+len(hostname):], "/")
	}

	segments := strings.Split(pathPart, "/")
	if len(segments) < 2 { //nolint:mnd // need owner + repo
		return domain.TargetRepo{}, fmt.Errorf("cannot extract owner/repo from URL: %s", url)
	}

	return domain.TargetRepo{Owner: segments[0], Name: segments[1]}, nil
}
