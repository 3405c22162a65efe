package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinforge/actionpin/application"
	"github.com/pinforge/actionpin/domain"
	providerPkg "github.com/pinforge/actionpin/infrastructure/provider"
	testdoubles "github.com/pinforge/actionpin/test"
	"github.com/pinforge/actionpin/test/configbuilders"
)

// --- helpers ---

func buildService(
	prov domain.Provider,
	cloner domain.Cloner,
	pinner domain.Pinner,
) *application.DispatchService {
	registry := providerPkg.NewRegistry()
	registry.Register("github", func(_ string) domain.Provider { return prov })
	return application.NewDispatchService(registry, cloner, pinner)
}

func changedWorkspace(files ...string) *testdoubles.SpyWorkspace {
	return &testdoubles.SpyWorkspace{
		HasChangesResult:   true,
		ChangedFilesResult: files,
	}
}

// --- tests ---

func TestDispatchService_Run(t *testing.T) {
	t.Parallel()

	t.Run("should process every repository and report outcomes in input order", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok", Username: "x-access-token"}
		workspace := changedWorkspace(".github/workflows/ci.yml")
		cloner := &testdoubles.SpyCloner{Workspace: workspace}
		pinner := &testdoubles.SpyPinner{}

		svc := buildService(spyProv, cloner, pinner)
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api", "acme/web", "globex/infra").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 3)
		assert.Equal(t, "acme/api", report.Outcomes[0].Repo.String())
		assert.Equal(t, "acme/web", report.Outcomes[1].Repo.String())
		assert.Equal(t, "globex/infra", report.Outcomes[2].Repo.String())
		for _, outcome := range report.Outcomes {
			assert.Equal(t, domain.StatusOK, outcome.Status)
			require.NotNil(t, outcome.PullRequest)
		}
		assert.False(t, report.HasFailures())

		assert.Len(t, pinner.RunDirs, 3)
		assert.Len(t, workspace.Commits, 3)
		assert.Len(t, workspace.Pushes, 3)
		assert.Len(t, spyProv.CreateCalls, 3)
		assert.Equal(t, 3, workspace.Removals, "clones should be removed after each repository")
	})

	t.Run("should pass provider credentials and depth to the cloner", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok", Username: "x-access-token"}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}
		cloneRoot := t.TempDir()

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(cloneRoot).
			WithCloneDepth(1).
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, cloner.CloneCalls, 1)
		call := cloner.CloneCalls[0]
		assert.Equal(t, "https://example.com/acme/api.git", call.URL)
		assert.Equal(t, filepath.Join(cloneRoot, "acme", "api"), call.Directory)
		assert.Equal(t, "x-access-token", call.Username)
		assert.Equal(t, "tok", call.Token)
		assert.Equal(t, 1, call.Depth)
	})

	t.Run("should skip a repository with nothing to pin", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := &testdoubles.SpyWorkspace{HasChangesResult: false}
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, domain.StatusSkipped, report.Outcomes[0].Status)
		assert.Equal(t, "no changes", report.Outcomes[0].Reason)
		assert.Empty(t, workspace.Commits)
		assert.Empty(t, workspace.Pushes)
		assert.Empty(t, spyProv.ListCalls)
		assert.Empty(t, spyProv.CreateCalls)
		assert.Equal(t, 1, workspace.Removals)
	})

	t.Run("should continue the batch when one repository fails to clone", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		cloner := &testdoubles.SpyCloner{
			Workspace:  changedWorkspace("a.yml"),
			CloneErr:   errors.New("remote hung up"),
			CloneErrAt: 2,
		}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api", "acme/web", "globex/infra").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err, "repository failures must not abort the batch")
		require.Len(t, report.Outcomes, 3)
		assert.Equal(t, domain.StatusOK, report.Outcomes[0].Status)
		assert.Equal(t, domain.StatusFailed, report.Outcomes[1].Status)
		assert.Equal(t, domain.FailClone, report.Outcomes[1].Kind)
		assert.Contains(t, report.Outcomes[1].Message, "remote hung up")
		assert.Equal(t, domain.StatusOK, report.Outcomes[2].Status)
		assert.True(t, report.HasFailures())
		assert.Len(t, spyProv.CreateCalls, 2)
	})

	t.Run("should record a transform failure and keep the batch alive", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		cloner := &testdoubles.SpyCloner{Workspace: workspace}
		pinner := &testdoubles.SpyPinner{RunErr: errors.New("unsupported ref format")}

		svc := buildService(spyProv, cloner, pinner)
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, domain.StatusFailed, report.Outcomes[0].Status)
		assert.Equal(t, domain.FailTransform, report.Outcomes[0].Kind)
		assert.Empty(t, workspace.Commits)
		assert.Empty(t, workspace.Pushes)
		assert.Equal(t, 1, workspace.Removals, "failed clones should still be cleaned up")
	})

	t.Run("should record a push failure with the push kind", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		workspace.PushErr = domain.ErrPushRejected
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, domain.StatusFailed, report.Outcomes[0].Status)
		assert.Equal(t, domain.FailPush, report.Outcomes[0].Kind)
		assert.Empty(t, spyProv.ListCalls, "the pull request API must not be touched after a failed push")
	})

	t.Run("should not commit, push, or touch the API in dry run", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace(".github/workflows/ci.yml", ".github/workflows/release.yml")
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{DryRun: true})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, domain.StatusOK, report.Outcomes[0].Status)
		assert.Equal(t, "dry run: 2 files would change", report.Outcomes[0].Reason)
		assert.Nil(t, report.Outcomes[0].PullRequest)
		assert.Empty(t, workspace.Commits)
		assert.Empty(t, workspace.Pushes)
		assert.Empty(t, spyProv.ListCalls)
		assert.Empty(t, spyProv.CreateCalls)
		assert.Zero(t, workspace.Removals, "dry run keeps the clone for inspection")
	})

	t.Run("should create a pull request when none is open", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithBranch("pin-actions").
			WithPullRequestTitle("ci: pin actions").
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, spyProv.ListCalls, 1)
		assert.Equal(t, "pin-actions", spyProv.ListCalls[0].Head)
		require.Len(t, spyProv.CreateCalls, 1)
		assert.Equal(t, "pin-actions", spyProv.CreateCalls[0].Input.HeadBranch)
		assert.Equal(t, "ci: pin actions", spyProv.CreateCalls[0].Input.Title)
		assert.Empty(t, spyProv.UpdateCalls)
		require.NotNil(t, report.Outcomes[0].PullRequest)
		assert.Equal(t, 1, report.Outcomes[0].PullRequest.Number)
	})

	t.Run("should update the open pull request in place on a rerun", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{
			Token:   "tok",
			OpenPRs: []domain.PullRequestRecord{{Number: 7, HeadBranch: "pin-actions"}},
		}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithBranch("pin-actions").
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, spyProv.CreateCalls)
		require.Len(t, spyProv.UpdateCalls, 1)
		assert.Equal(t, 7, spyProv.UpdateCalls[0].Number)
		require.NotNil(t, report.Outcomes[0].PullRequest)
		assert.Equal(t, 7, report.Outcomes[0].PullRequest.Number, "the pull request number must survive reruns")
	})

	t.Run("should fail the repository when several pull requests are open for the branch", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{
			Token: "tok",
			OpenPRs: []domain.PullRequestRecord{
				{Number: 7},
				{Number: 9},
			},
		}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 1)
		assert.Equal(t, domain.StatusFailed, report.Outcomes[0].Status)
		assert.Equal(t, domain.FailAPI, report.Outcomes[0].Kind)
		assert.Contains(t, report.Outcomes[0].Message, "multiple open pull requests")
		assert.Empty(t, spyProv.CreateCalls)
		assert.Empty(t, spyProv.UpdateCalls)
	})

	t.Run("should use the workspace default branch as the pull request base", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		workspace.HeadBranch = "trunk"
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, spyProv.CreateCalls, 1)
		assert.Equal(t, "trunk", spyProv.CreateCalls[0].Input.BaseBranch)
	})

	t.Run("should prefer the configured base branch over the detected one", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		workspace.HeadBranch = "trunk"
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithBaseBranch("develop").
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, spyProv.CreateCalls, 1)
		assert.Equal(t, "develop", spyProv.CreateCalls[0].Input.BaseBranch)
	})

	t.Run("should check out the dedicated branch before pinning", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithBranch("pin-actions").
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"pin-actions"}, workspace.CheckedOutBranches)
		assert.Equal(t, []string{"pin-actions"}, workspace.Pushes)
	})

	t.Run("should commit with the bot identity and configured message", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		workspace := changedWorkspace("a.yml")
		cloner := &testdoubles.SpyCloner{Workspace: workspace}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithCommitMessage("ci: pin workflow actions to digests").
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, workspace.Commits, 1)
		assert.Equal(t, "ci: pin workflow actions to digests", workspace.Commits[0].Message)
		assert.Equal(t, application.BotName, workspace.Commits[0].AuthorName)
		assert.Equal(t, application.BotEmail, workspace.Commits[0].AuthorEmail)
	})

	t.Run("should render the body template for each repository", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()

		bodyFile := filepath.Join(t.TempDir(), "body.md")
		template := "Pinned `{{repository}}`: merge {{branch}} into {{base}}.\n"
		require.NoError(t, os.WriteFile(bodyFile, []byte(template), 0o600))

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api").
			WithCloneDir(t.TempDir()).
			WithBranch("pin-actions").
			WithBaseBranch("main").
			WithPullRequestBodyPath(bodyFile).
			BuildConfig()

		// when
		_, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, spyProv.CreateCalls, 1)
		assert.Equal(
			t,
			"Pinned `acme/api`: merge pin-actions into main.",
			spyProv.CreateCalls[0].Input.Body,
		)
	})

	t.Run("should stop before starting new repositories when cancelled", func(t *testing.T) {
		t.Parallel()

		// given
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spyProv := &testdoubles.SpyProvider{Token: "tok"}
		cloner := &testdoubles.SpyCloner{Workspace: changedWorkspace("a.yml")}

		svc := buildService(spyProv, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("acme/api", "acme/web").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
		assert.Empty(t, cloner.CloneCalls)
	})

	t.Run("should refuse to start with a malformed repository entry", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		svc := buildService(&testdoubles.SpyProvider{Token: "tok"}, &testdoubles.SpyCloner{}, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories("not-a-repo").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "invalid repository")
	})

	t.Run("should refuse to start with an empty repository list", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		svc := buildService(&testdoubles.SpyProvider{Token: "tok"}, &testdoubles.SpyCloner{}, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithRepositories().
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "no repositories configured")
	})

	t.Run("should refuse to start with an unknown provider type", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		svc := buildService(&testdoubles.SpyProvider{Token: "tok"}, &testdoubles.SpyCloner{}, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithProvider("bitbucket").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "unknown provider type")
	})

	t.Run("should refuse to start without an authentication token", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		cloner := &testdoubles.SpyCloner{}
		svc := buildService(&testdoubles.SpyProvider{Token: ""}, cloner, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithToken("").
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "authentication token is required")
		assert.Empty(t, cloner.CloneCalls)
	})

	t.Run("should refuse to start when the pinning tool is unusable", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		pinner := &testdoubles.SpyPinner{VersionErr: domain.ErrToolNotFound}
		cloner := &testdoubles.SpyCloner{}
		svc := buildService(&testdoubles.SpyProvider{Token: "tok"}, cloner, pinner)
		cfg := configbuilders.NewConfigBuilder().
			WithCloneDir(t.TempDir()).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "pinning tool preflight failed")
		require.ErrorIs(t, err, domain.ErrToolNotFound)
		assert.Empty(t, cloner.CloneCalls)
		assert.Equal(t, 1, pinner.VersionCalls)
	})

	t.Run("should refuse to start when the body template file is missing", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		svc := buildService(&testdoubles.SpyProvider{Token: "tok"}, &testdoubles.SpyCloner{}, &testdoubles.SpyPinner{})
		cfg := configbuilders.NewConfigBuilder().
			WithCloneDir(t.TempDir()).
			WithPullRequestBodyPath(filepath.Join(t.TempDir(), "missing.md")).
			BuildConfig()

		// when
		report, err := svc.Run(ctx, cfg, application.RunOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "failed to read pull request body file")
	})
}
