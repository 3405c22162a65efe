package domain

import "context"

// Pinner abstracts the external tool that rewrites workflow files to pin
// action references.
type Pinner interface {
	// Version reports the tool version, verifying the binary is runnable.
	Version(ctx context.Context) (string, error)

	// Run pins every workflow file under dir and reports what happened.
	// A repository without workflow files is not an error; the outcome
	// simply lists no pinned files.
	Run(ctx context.Context, dir string) (*TransformOutcome, error)
}
