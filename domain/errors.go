package domain

import "errors"

// Sentinel errors used to classify pipeline failures across package
// boundaries. Infrastructure adapters wrap these with %w so callers can
// distinguish failure modes with errors.Is without importing the adapters'
// client libraries.
var (
	// ErrUnauthorized marks a rejected or insufficient credential.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrRepoNotFound marks a repository that does not exist or is not
	// visible to the credential.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrPushRejected marks a push refused by the remote (protected branch,
	// non-fast-forward on a branch the force refspec did not cover).
	ErrPushRejected = errors.New("push rejected")

	// ErrAmbiguousPullRequests marks more than one open pull request on the
	// dedicated branch. The upsert performs no mutation in that case.
	ErrAmbiguousPullRequests = errors.New("multiple open pull requests for source branch")

	// ErrToolNotFound marks a pinning binary that is not on PATH.
	ErrToolNotFound = errors.New("pinning tool not found")
)
