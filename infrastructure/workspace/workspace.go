// Package workspace implements repository acquisition on top of go-git.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pinforge/actionpin/domain"
)

// GitCloner clones repositories into local working trees.
type GitCloner struct{}

// New returns a Cloner backed by go-git.
func New() domain.Cloner {
	return &GitCloner{}
}

// Clone checks out the remote default branch into opts.Directory and wraps
// it in a Workspace. A failed clone leaves no directory behind.
func (c *GitCloner) Clone(ctx context.Context, opts domain.CloneOptions) (domain.Workspace, error) {
	auth := basicAuth(opts)

	repo, err := git.PlainCloneContext(ctx, opts.Directory, false, &git.CloneOptions{
		URL:          opts.URL,
		Auth:         auth,
		Depth:        opts.Depth,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		_ = os.RemoveAll(opts.Directory)
		return nil, classifyCloneError(err)
	}

	head, err := repo.Head()
	if err != nil {
		_ = os.RemoveAll(opts.Directory)
		return nil, fmt.Errorf("failed to resolve HEAD of fresh clone: %w", err)
	}

	return &gitWorkspace{
		repo:          repo,
		root:          opts.Directory,
		defaultBranch: head.Name().Short(),
		auth:          auth,
	}, nil
}

// Open wraps an existing working copy at dir in a Workspace. The branch
// checked out at open time plays the role the remote default branch plays
// for a fresh clone.
func Open(dir, username, token string) (domain.Workspace, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return &gitWorkspace{
		repo:          repo,
		root:          dir,
		defaultBranch: head.Name().Short(),
		auth:          basicAuth(domain.CloneOptions{Username: username, Token: token}),
	}, nil
}

// OriginURL returns the first URL configured for the origin remote of the
// repository at dir.
func OriginURL(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %q: %w", dir, err)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve the origin remote: %w", err)
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}

	return "", errors.New("origin remote has no URL configured")
}

// gitWorkspace wraps one on-disk clone.
type gitWorkspace struct {
	repo          *git.Repository
	root          string
	defaultBranch string
	auth          transport.AuthMethod
}

func (w *gitWorkspace) Root() string {
	return w.root
}

func (w *gitWorkspace) DefaultBranch() string {
	return w.defaultBranch
}

// CheckoutBranch creates or resets the named branch at the current HEAD and
// checks it out. Resetting gives every run a clean base even when the branch
// already existed from a previous run.
func (w *gitWorkspace) CheckoutBranch(name string) error {
	head, err := w.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	if setErr := w.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, head.Hash())); setErr != nil {
		return fmt.Errorf("failed to create branch %q: %w", name, setErr)
	}

	tree, err := w.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if checkoutErr := tree.Checkout(&git.CheckoutOptions{Branch: branchRef}); checkoutErr != nil {
		return fmt.Errorf("failed to checkout branch %q: %w", name, checkoutErr)
	}

	return nil
}

func (w *gitWorkspace) HasChanges() (bool, error) {
	status, err := w.status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

func (w *gitWorkspace) ChangedFiles() ([]string, error) {
	status, err := w.status()
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(status))
	for path, fileStatus := range status {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

// CommitAll stages every change and commits it with the given identity.
func (w *gitWorkspace) CommitAll(message, authorName, authorEmail string) (string, error) {
	tree, err := w.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	if addErr := tree.AddWithOptions(&git.AddOptions{All: true}); addErr != nil {
		return "", fmt.Errorf("failed to stage changes: %w", addErr)
	}

	signature := &object.Signature{
		Name:  authorName,
		Email: authorEmail,
		When:  time.Now(),
	}
	commit, err := tree.Commit(message, &git.CommitOptions{
		Author:    signature,
		Committer: signature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return commit.String(), nil
}

// ForcePush force-updates the named branch on origin so a rerun overwrites
// whatever a previous run left there.
func (w *gitWorkspace) ForcePush(ctx context.Context, branch string) error {
	refspec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", branch, branch))

	err := w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitconfig.RefSpec{refspec},
		Auth:       w.auth,
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return classifyPushError(err)
	}

	return nil
}

func (w *gitWorkspace) Remove() error {
	return os.RemoveAll(w.root)
}

func (w *gitWorkspace) status() (git.Status, error) {
	tree, err := w.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := tree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	return status, nil
}

// --- helpers ---

// basicAuth builds the transport credential. An empty token yields nil so
// local and public clones keep working.
func basicAuth(opts domain.CloneOptions) transport.AuthMethod {
	if opts.Token == "" {
		return nil
	}

	username := opts.Username
	if username == "" {
		username = "git"
	}

	return &githttp.BasicAuth{Username: username, Password: opts.Token}
}

func classifyCloneError(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %w", domain.ErrRepoNotFound, err)
	}

	return fmt.Errorf("clone failed: %w", err)
}

func classifyPushError(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	// go-git reports remote rejections as formatted strings, not sentinels.
	msg := err.Error()
	if strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "pre-receive hook declined") {
		return fmt.Errorf("%w: %w", domain.ErrPushRejected, err)
	}

	return fmt.Errorf("push failed: %w", err)
}
