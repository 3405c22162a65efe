package domain

import "context"

// Provider abstracts a Git hosting service (GitHub, GitLab, etc.).
// Each implementation handles authentication and the pull request
// primitives the upsert logic is built on. The upsert decision itself
// lives in the application layer so it is written once.
type Provider interface {
	// Name returns the provider identifier (e.g. "github", "gitlab").
	Name() string

	// CloneURL returns the plain HTTPS clone URL for the repository.
	// Credentials are supplied separately via CloneUsername and AuthToken
	// so the token never lands in the remote configuration.
	CloneURL(repo TargetRepo) string

	// CloneUsername returns the basic-auth username the hosting service
	// expects for token authentication over HTTPS.
	CloneUsername() string

	// AuthToken returns the authentication token configured for this provider.
	AuthToken() string

	// ListOpenPullRequests returns every open pull request whose head is the
	// given branch. The slice is empty when none exist.
	ListOpenPullRequests(ctx context.Context, repo TargetRepo, headBranch string) ([]PullRequestRecord, error)

	// CreatePullRequest opens a new pull request.
	CreatePullRequest(ctx context.Context, repo TargetRepo, input PullRequestInput) (*PullRequestRecord, error)

	// UpdatePullRequestBody replaces the body of an existing open pull
	// request, leaving its number, head, and base untouched.
	UpdatePullRequestBody(ctx context.Context, repo TargetRepo, number int, body string) (*PullRequestRecord, error)
}
