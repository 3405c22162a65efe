// Package testdoubles provides test doubles (spies, stubs, dummies) for domain
// interfaces. These are hand-crafted implementations, no mock frameworks.
package testdoubles

import (
	"context"
	"fmt"

	"github.com/pinforge/actionpin/domain"
)

// ---------------------------------------------------------------------------
// SpyProvider
// ---------------------------------------------------------------------------

// SpyProvider implements domain.Provider as a configurable spy.
// Configure the response fields for the methods your test exercises,
// then inspect the call-tracking fields to verify behavior.
type SpyProvider struct {
	// --- identity ---
	ProviderName string
	Token        string
	Username     string

	// --- ListOpenPullRequests ---
	OpenPRs []domain.PullRequestRecord
	ListErr error
	// spy: head branches that were queried
	ListCalls []ListCall

	// --- CreatePullRequest ---
	CreatedPR *domain.PullRequestRecord
	CreateErr error
	// spy: inputs received
	CreateCalls []CreateCall

	// --- UpdatePullRequestBody ---
	UpdatedPR *domain.PullRequestRecord
	UpdateErr error
	// spy: updates received
	UpdateCalls []UpdateCall
}

// ListCall records a single invocation of ListOpenPullRequests.
type ListCall struct {
	Repo domain.TargetRepo
	Head string
}

// CreateCall records a single invocation of CreatePullRequest.
type CreateCall struct {
	Repo  domain.TargetRepo
	Input domain.PullRequestInput
}

// UpdateCall records a single invocation of UpdatePullRequestBody.
type UpdateCall struct {
	Repo   domain.TargetRepo
	Number int
	Body   string
}

var _ domain.Provider = (*SpyProvider)(nil)

func (p *SpyProvider) Name() string {
	if p.ProviderName == "" {
		return "spy"
	}
	return p.ProviderName
}

func (p *SpyProvider) AuthToken() string { return p.Token }

func (p *SpyProvider) CloneUsername() string { return p.Username }

func (p *SpyProvider) CloneURL(repo domain.TargetRepo) string {
	return fmt.Sprintf("https://example.com/%s/%s.git", repo.Owner, repo.Name)
}

func (p *SpyProvider) ListOpenPullRequests(
	_ context.Context,
	repo domain.TargetRepo,
	headBranch string,
) ([]domain.PullRequestRecord, error) {
	p.ListCalls = append(p.ListCalls, ListCall{Repo: repo, Head: headBranch})
	return p.OpenPRs, p.ListErr
}

func (p *SpyProvider) CreatePullRequest(
	_ context.Context,
	repo domain.TargetRepo,
	input domain.PullRequestInput,
) (*domain.PullRequestRecord, error) {
	p.CreateCalls = append(p.CreateCalls, CreateCall{Repo: repo, Input: input})
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}
	if p.CreatedPR != nil {
		return p.CreatedPR, nil
	}
	return &domain.PullRequestRecord{
		Number:     1,
		HeadBranch: input.HeadBranch,
		BaseBranch: input.BaseBranch,
		Title:      input.Title,
		Body:       input.Body,
		URL:        fmt.Sprintf("https://example.com/%s/pull/1", repo),
	}, nil
}

func (p *SpyProvider) UpdatePullRequestBody(
	_ context.Context,
	repo domain.TargetRepo,
	number int,
	body string,
) (*domain.PullRequestRecord, error) {
	p.UpdateCalls = append(p.UpdateCalls, UpdateCall{Repo: repo, Number: number, Body: body})
	if p.UpdateErr != nil {
		return nil, p.UpdateErr
	}
	if p.UpdatedPR != nil {
		return p.UpdatedPR, nil
	}
	return &domain.PullRequestRecord{
		Number: number,
		Body:   body,
		URL:    fmt.Sprintf("https://example.com/%s/pull/%d", repo, number),
	}, nil
}

// ---------------------------------------------------------------------------
// SpyCloner
// ---------------------------------------------------------------------------

// SpyCloner implements domain.Cloner as a configurable spy. Workspaces are
// handed out in call order, which matches input order because the batch is
// sequential.
type SpyCloner struct {
	// Workspace is returned on every call when Workspaces is empty.
	Workspace domain.Workspace
	// Workspaces are returned one per call, in order. The last entry is
	// reused when there are more calls than entries.
	Workspaces []domain.Workspace

	CloneErr error
	// CloneErrAt is the 1-based call index CloneErr fires at; 0 fires on
	// every call.
	CloneErrAt int

	// spy: options received
	CloneCalls []domain.CloneOptions
}

var _ domain.Cloner = (*SpyCloner)(nil)

func (c *SpyCloner) Clone(
	_ context.Context,
	opts domain.CloneOptions,
) (domain.Workspace, error) {
	c.CloneCalls = append(c.CloneCalls, opts)
	call := len(c.CloneCalls)

	if c.CloneErr != nil && (c.CloneErrAt == 0 || c.CloneErrAt == call) {
		return nil, c.CloneErr
	}
	if len(c.Workspaces) > 0 {
		if call <= len(c.Workspaces) {
			return c.Workspaces[call-1], nil
		}
		return c.Workspaces[len(c.Workspaces)-1], nil
	}
	if c.Workspace != nil {
		return c.Workspace, nil
	}
	return &SpyWorkspace{}, nil
}

// ---------------------------------------------------------------------------
// SpyWorkspace
// ---------------------------------------------------------------------------

// SpyWorkspace implements domain.Workspace as a configurable spy.
type SpyWorkspace struct {
	// --- identity ---
	RootDir    string
	HeadBranch string // DefaultBranch result; "main" when empty

	// --- CheckoutBranch ---
	CheckoutErr error
	// spy: branches checked out
	CheckedOutBranches []string

	// --- HasChanges / ChangedFiles ---
	HasChangesResult   bool
	HasChangesErr      error
	ChangedFilesResult []string
	ChangedFilesErr    error

	// --- CommitAll ---
	CommitID  string
	CommitErr error
	// spy: commits received
	Commits []CommitCall

	// --- ForcePush ---
	PushErr error
	// spy: branches pushed
	Pushes []string

	// --- Remove ---
	RemoveErr error
	// spy: removal count
	Removals int
}

// CommitCall records a single invocation of CommitAll.
type CommitCall struct {
	Message     string
	AuthorName  string
	AuthorEmail string
}

var _ domain.Workspace = (*SpyWorkspace)(nil)

func (w *SpyWorkspace) Root() string { return w.RootDir }

func (w *SpyWorkspace) DefaultBranch() string {
	if w.HeadBranch == "" {
		return "main"
	}
	return w.HeadBranch
}

func (w *SpyWorkspace) CheckoutBranch(name string) error {
	w.CheckedOutBranches = append(w.CheckedOutBranches, name)
	return w.CheckoutErr
}

func (w *SpyWorkspace) HasChanges() (bool, error) {
	return w.HasChangesResult, w.HasChangesErr
}

func (w *SpyWorkspace) ChangedFiles() ([]string, error) {
	return w.ChangedFilesResult, w.ChangedFilesErr
}

func (w *SpyWorkspace) CommitAll(message, authorName, authorEmail string) (string, error) {
	w.Commits = append(w.Commits, CommitCall{
		Message:     message,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
	})
	if w.CommitErr != nil {
		return "", w.CommitErr
	}
	if w.CommitID != "" {
		return w.CommitID, nil
	}
	return "0000000000000000000000000000000000000000", nil
}

func (w *SpyWorkspace) ForcePush(_ context.Context, branch string) error {
	w.Pushes = append(w.Pushes, branch)
	return w.PushErr
}

func (w *SpyWorkspace) Remove() error {
	w.Removals++
	return w.RemoveErr
}

// ---------------------------------------------------------------------------
// SpyPinner
// ---------------------------------------------------------------------------

// SpyPinner implements domain.Pinner as a configurable spy.
type SpyPinner struct {
	// --- Version ---
	VersionResult string
	VersionErr    error
	// spy: preflight count
	VersionCalls int

	// --- Run ---
	Outcome *domain.TransformOutcome
	RunErr  error
	// spy: directories pinned
	RunDirs []string
}

var _ domain.Pinner = (*SpyPinner)(nil)

func (p *SpyPinner) Version(_ context.Context) (string, error) {
	p.VersionCalls++
	if p.VersionErr != nil {
		return "", p.VersionErr
	}
	if p.VersionResult == "" {
		return "0.9.2", nil
	}
	return p.VersionResult, nil
}

func (p *SpyPinner) Run(_ context.Context, dir string) (*domain.TransformOutcome, error) {
	p.RunDirs = append(p.RunDirs, dir)
	if p.RunErr != nil {
		return nil, p.RunErr
	}
	if p.Outcome != nil {
		return p.Outcome, nil
	}
	return &domain.TransformOutcome{}, nil
}

// ---------------------------------------------------------------------------
// Dummies: satisfy the interfaces but do nothing (for compile checks)
// ---------------------------------------------------------------------------

// DummyProvider is a no-op implementation of domain.Provider.
// Use it only for interface compliance tests or as a placeholder.
type DummyProvider struct{}

var _ domain.Provider = (*DummyProvider)(nil)

func (d *DummyProvider) Name() string                        { return "dummy" }
func (d *DummyProvider) AuthToken() string                   { return "" }
func (d *DummyProvider) CloneUsername() string               { return "" }
func (d *DummyProvider) CloneURL(_ domain.TargetRepo) string { return "" }

func (d *DummyProvider) ListOpenPullRequests(
	_ context.Context,
	_ domain.TargetRepo,
	_ string,
) ([]domain.PullRequestRecord, error) {
	return nil, nil
}

func (d *DummyProvider) CreatePullRequest(
	_ context.Context,
	_ domain.TargetRepo,
	_ domain.PullRequestInput,
) (*domain.PullRequestRecord, error) {
	return nil, nil //nolint:nilnil // dummy no-op
}

func (d *DummyProvider) UpdatePullRequestBody(
	_ context.Context,
	_ domain.TargetRepo,
	_ int,
	_ string,
) (*domain.PullRequestRecord, error) {
	return nil, nil //nolint:nilnil // dummy no-op
}

// DummyCloner is a no-op implementation of domain.Cloner.
type DummyCloner struct{}

var _ domain.Cloner = (*DummyCloner)(nil)

func (d *DummyCloner) Clone(
	_ context.Context,
	_ domain.CloneOptions,
) (domain.Workspace, error) {
	return nil, nil //nolint:nilnil // dummy no-op
}

// DummyPinner is a no-op implementation of domain.Pinner.
type DummyPinner struct{}

var _ domain.Pinner = (*DummyPinner)(nil)

func (d *DummyPinner) Version(_ context.Context) (string, error) { return "", nil }

func (d *DummyPinner) Run(
	_ context.Context,
	_ string,
) (*domain.TransformOutcome, error) {
	return nil, nil //nolint:nilnil // dummy no-op
}
