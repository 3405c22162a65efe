package domain

import "context"

// CloneOptions describes one clone to perform.
type CloneOptions struct {
	URL       string // Plain HTTPS URL, no embedded credentials
	Directory string // Absolute path the clone is created at
	Username  string // Basic-auth username for the transport, empty for none
	Token     string // Basic-auth password for the transport, empty for none
	Depth     int    // 0 clones full history
}

// Cloner produces local working copies of remote repositories.
type Cloner interface {
	// Clone checks out the remote default branch into opts.Directory.
	Clone(ctx context.Context, opts CloneOptions) (Workspace, error)
}

// Workspace wraps one on-disk clone for the lifetime of a pipeline run.
type Workspace interface {
	// Root returns the absolute path of the working tree.
	Root() string

	// DefaultBranch returns the short name of the branch the clone checked
	// out, which is the remote's default branch.
	DefaultBranch() string

	// CheckoutBranch creates or resets the named branch at the current HEAD
	// and checks it out.
	CheckoutBranch(name string) error

	// HasChanges reports whether the working tree differs from HEAD.
	HasChanges() (bool, error)

	// ChangedFiles lists the paths that differ from HEAD, relative to Root.
	ChangedFiles() ([]string, error)

	// CommitAll stages every change and commits it with the given identity.
	CommitAll(message, authorName, authorEmail string) (commitID string, err error)

	// ForcePush force-updates the named branch on the origin remote.
	ForcePush(ctx context.Context, branch string) error

	// Remove deletes the clone from disk.
	Remove() error
}
