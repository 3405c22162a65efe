package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/pinforge/actionpin/config"
	"github.com/pinforge/actionpin/domain"
	providerPkg "github.com/pinforge/actionpin/infrastructure/provider"
)

// Commit identity used for every commit the pipeline creates.
const (
	BotName  = "actionpin-bot"
	BotEmail = "actionpin-bot@users.noreply.github.com"
)

// minPinnerVersion is the oldest pinning tool version this flow was
// validated with. Older tools get a warning, not a failure.
const minPinnerVersion = "v0.4.0"

// DispatchService orchestrates the full pinning flow:
// clone -> pin workflows -> commit -> force-push -> upsert PR.
type DispatchService struct {
	providerRegistry *providerPkg.Registry
	cloner           domain.Cloner
	pinner           domain.Pinner
}

// NewDispatchService creates a new service with the given collaborators.
func NewDispatchService(
	providerRegistry *providerPkg.Registry,
	cloner domain.Cloner,
	pinner domain.Pinner,
) *DispatchService {
	return &DispatchService{
		providerRegistry: providerRegistry,
		cloner:           cloner,
		pinner:           pinner,
	}
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	DryRun  bool
	Verbose bool
}

// Run executes the batch over every configured repository and returns one
// outcome per repository, in input order. A non-nil error means the
// configuration was unusable and the batch never started; individual
// repository failures land in the report instead.
func (s *DispatchService) Run(
	ctx context.Context,
	cfg *config.Config,
	runOpts RunOptions,
) (*domain.BatchReport, error) {
	if runOpts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	targets, err := domain.ParseTargetRepos(cfg.Repositories)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.New(
			"no repositories configured: pass --repos or set repositories in the config file",
		)
	}

	provider, err := s.providerRegistry.Get(cfg.Provider.Type, cfg.Provider.Token)
	if err != nil {
		return nil, err
	}
	if provider.AuthToken() == "" {
		return nil, fmt.Errorf("authentication token is required for provider %q", provider.Name())
	}

	version, err := s.pinner.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinning tool preflight failed: %w", err)
	}
	logger.Infof("Using %s %s", cfg.Pinner.Binary, version)
	warnIfOldPinner(cfg.Pinner.Binary, version)

	bodyTemplate, err := ResolveBodyTemplate(cfg)
	if err != nil {
		return nil, err
	}

	cloneRoot, cleanupRoot, err := resolveCloneRoot(cfg.CloneDir)
	if err != nil {
		return nil, err
	}
	if cleanupRoot && !runOpts.DryRun {
		defer func() {
			if removeErr := os.RemoveAll(cloneRoot); removeErr != nil {
				logger.Debugf("Failed to remove clone root %q: %v", cloneRoot, removeErr)
			}
		}()
	}

	report := &domain.BatchReport{}
	total := len(targets)

	for i, target := range targets {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warnf("Cancelled after %d of %d repositories", i, total)
			break
		}

		logger.Infof("[%d/%d] Processing %s", i+1, total, target)
		outcome := s.processRepository(ctx, provider, target, cfg, runOpts, cloneRoot, bodyTemplate)
		report.Append(outcome)

		switch outcome.Status {
		case domain.StatusOK:
			logger.Infof("[%s] Done: %s", target, outcome.Detail())
		case domain.StatusSkipped:
			logger.Infof("[%s] Skipped: %s", target, outcome.Reason)
		case domain.StatusFailed:
			logger.Errorf("[%s] Failed (%s): %s", target, outcome.Kind, outcome.Message)
		}
	}

	if runOpts.DryRun {
		logger.Infof("Dry run: clones kept under %q", cloneRoot)
	}

	ok, skipped, failed := report.Counts()
	logger.Infof(
		"Run complete: %d repositories processed, %d updated, %d skipped, %d failed",
		len(report.Outcomes), ok, skipped, failed,
	)
	return report, nil
}

// processRepository drives one repository through the pipeline to a terminal
// outcome. It never returns an error; failures are recorded in the outcome
// so the batch can continue.
func (s *DispatchService) processRepository(
	ctx context.Context,
	provider domain.Provider,
	target domain.TargetRepo,
	cfg *config.Config,
	runOpts RunOptions,
	cloneRoot string,
	bodyTemplate string,
) domain.RepoOutcome {
	outcome := domain.RepoOutcome{Repo: target, Status: domain.StatusOK}

	workspace, err := s.cloner.Clone(ctx, domain.CloneOptions{
		URL:       provider.CloneURL(target),
		Directory: target.Dir(cloneRoot),
		Username:  provider.CloneUsername(),
		Token:     provider.AuthToken(),
		Depth:     cfg.CloneDepth,
	})
	if err != nil {
		return failedOutcome(target, domain.FailClone, err)
	}
	defer s.cleanup(workspace, target, runOpts.DryRun)

	baseBranch := cfg.BaseBranch
	if baseBranch == "" {
		baseBranch = workspace.DefaultBranch()
	}
	logger.Debugf("[%s] Cloned at %q (default branch %q)", target, workspace.Root(), workspace.DefaultBranch())

	if checkoutErr := workspace.CheckoutBranch(cfg.Branch); checkoutErr != nil {
		return failedOutcome(target, domain.FailCommit, checkoutErr)
	}

	transform, err := s.pinner.Run(ctx, workspace.Root())
	if err != nil {
		return failedOutcome(target, domain.FailTransform, err)
	}
	logger.Debugf("[%s] Pinned %d workflow files", target, len(transform.PinnedFiles))

	changed, err := workspace.HasChanges()
	if err != nil {
		return failedOutcome(target, domain.FailCommit, err)
	}
	if !changed {
		outcome.Status = domain.StatusSkipped
		outcome.Reason = "no changes"
		return outcome
	}

	files, err := workspace.ChangedFiles()
	if err != nil {
		return failedOutcome(target, domain.FailCommit, err)
	}
	logger.Infof("[%s] %d files changed", target, len(files))
	for _, file := range files {
		logger.Debugf("[%s]   %s", target, file)
	}

	if runOpts.DryRun {
		outcome.Reason = fmt.Sprintf("dry run: %d files would change", len(files))
		return outcome
	}

	commitID, err := workspace.CommitAll(cfg.CommitMessage, BotName, BotEmail)
	if err != nil {
		return failedOutcome(target, domain.FailCommit, err)
	}
	logger.Debugf("[%s] Committed %s", target, commitID)

	if pushErr := workspace.ForcePush(ctx, cfg.Branch); pushErr != nil {
		return failedOutcome(target, domain.FailPush, pushErr)
	}
	logger.Infof("[%s] Pushed %q", target, cfg.Branch)

	body := RenderBody(bodyTemplate, target, cfg.Branch, baseBranch)
	pullRequest, err := UpsertPullRequest(ctx, provider, target, domain.PullRequestInput{
		HeadBranch: cfg.Branch,
		BaseBranch: baseBranch,
		Title:      cfg.PullRequest.Title,
		Body:       body,
	})
	if err != nil {
		return failedOutcome(target, domain.FailAPI, err)
	}
	outcome.PullRequest = pullRequest

	return outcome
}

// cleanup removes the clone once the repository reached a terminal state.
// Dry runs keep the clone on disk so the operator can inspect it.
func (s *DispatchService) cleanup(workspace domain.Workspace, target domain.TargetRepo, dryRun bool) {
	if dryRun {
		logger.Infof("[%s] Dry run: clone kept at %q", target, workspace.Root())
		return
	}
	if err := workspace.Remove(); err != nil {
		logger.Debugf("[%s] Failed to remove clone at %q: %v", target, workspace.Root(), err)
	}
}

// --- helpers ---

func failedOutcome(target domain.TargetRepo, kind domain.FailureKind, err error) domain.RepoOutcome {
	return domain.RepoOutcome{
		Repo:    target,
		Status:  domain.StatusFailed,
		Kind:    kind,
		Message: err.Error(),
	}
}

// resolveCloneRoot returns the directory clones are created under and
// whether the run owns it (and should remove it afterwards).
func resolveCloneRoot(configured string) (string, bool, error) {
	if configured != "" {
		return configured, false, nil
	}

	root, err := os.MkdirTemp("", "actionpin-*")
	if err != nil {
		return "", false, fmt.Errorf("failed to create clone directory: %w", err)
	}
	return root, true, nil
}

// warnIfOldPinner compares the reported tool version against the oldest one
// this flow was validated with. Unparseable versions (dev builds) pass.
func warnIfOldPinner(binary, version string) {
	normalized := normalizeVersion(version)
	if !semver.IsValid(normalized) {
		logger.Debugf("Could not parse %s version %q, skipping version check", binary, version)
		return
	}
	if semver.Compare(normalized, minPinnerVersion) < 0 {
		logger.Warnf("%s %s is older than the validated minimum %s", binary, version, minPinnerVersion)
	}
}

func normalizeVersion(version string) string {
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}
