package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TargetRepo identifies one repository to process, as "owner/name".
type TargetRepo struct {
	Owner string
	Name  string
}

// String renders the repository back into its "owner/name" form.
func (r TargetRepo) String() string {
	return r.Owner + "/" + r.Name
}

// Dir returns the clone directory for this repository under the given root.
// Clones are namespaced by owner so same-named repositories never collide.
func (r TargetRepo) Dir(root string) string {
	return filepath.Join(root, r.Owner, r.Name)
}

// ParseTargetRepo parses a single "owner/name" token.
func ParseTargetRepo(token string) (TargetRepo, error) {
	parts := strings.Split(token, "/")
	if len(parts) != 2 {
		return TargetRepo{}, fmt.Errorf("invalid repository %q: expected owner/name", token)
	}

	owner := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return TargetRepo{}, fmt.Errorf("invalid repository %q: owner and name must be non-empty", token)
	}
	if strings.ContainsAny(owner, " \t") || strings.ContainsAny(name, " \t") {
		return TargetRepo{}, fmt.Errorf("invalid repository %q: whitespace is not allowed", token)
	}

	return TargetRepo{Owner: owner, Name: name}, nil
}

// ParseTargetRepos parses a list of "owner/name" tokens, skipping empty
// entries. Any malformed token fails the whole list.
func ParseTargetRepos(tokens []string) ([]TargetRepo, error) {
	repos := make([]TargetRepo, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		repo, err := ParseTargetRepo(token)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}

	return repos, nil
}

// TransformOutcome reports what a pinning run did to a working copy.
type TransformOutcome struct {
	ExitStatus  int      // Exit status of the last tool invocation
	Output      string   // Combined stdout/stderr, kept for diagnostics
	PinnedFiles []string // Workflow files the tool was run against
}

// PullRequestInput contains the data needed to create a pull request.
type PullRequestInput struct {
	HeadBranch string
	BaseBranch string
	Title      string
	Body       string
}

// PullRequestRecord represents a pull/merge request returned by a provider.
type PullRequestRecord struct {
	Number     int
	HeadBranch string
	BaseBranch string
	Title      string
	Body       string
	URL        string
}

// OutcomeStatus is the terminal state a repository reached.
type OutcomeStatus string

const (
	// StatusOK means the branch was pushed and the pull request upserted.
	StatusOK OutcomeStatus = "ok"
	// StatusSkipped means the pipeline finished but nothing needed publishing.
	StatusSkipped OutcomeStatus = "skipped"
	// StatusFailed means a pipeline step errored for this repository.
	StatusFailed OutcomeStatus = "failed"
)

// FailureKind names the pipeline step that failed.
type FailureKind string

const (
	FailClone     FailureKind = "clone"
	FailTransform FailureKind = "transform"
	FailCommit    FailureKind = "commit"
	FailPush      FailureKind = "push"
	FailAPI       FailureKind = "api"
)

// RepoOutcome is the terminal record for one repository in a batch.
type RepoOutcome struct {
	Repo        TargetRepo
	Status      OutcomeStatus
	Reason      string             // Set when Status is StatusSkipped
	Kind        FailureKind        // Set when Status is StatusFailed
	Message     string             // Set when Status is StatusFailed
	PullRequest *PullRequestRecord // Set when the upsert ran
}

// Detail returns the human-readable column for report rendering.
func (o RepoOutcome) Detail() string {
	switch o.Status {
	case StatusSkipped:
		return o.Reason
	case StatusFailed:
		return fmt.Sprintf("%s: %s", o.Kind, o.Message)
	case StatusOK:
		if o.PullRequest != nil {
			return fmt.Sprintf("PR #%d", o.PullRequest.Number)
		}
		if o.Reason != "" {
			return o.Reason
		}
		return "pushed"
	default:
		return ""
	}
}

// BatchReport collects one outcome per input repository, in input order.
type BatchReport struct {
	Outcomes []RepoOutcome
}

// Append records the outcome for the next repository.
func (r *BatchReport) Append(outcome RepoOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
}

// HasFailures reports whether any repository ended in StatusFailed.
func (r *BatchReport) HasFailures() bool {
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Counts returns the number of ok, skipped, and failed outcomes.
func (r *BatchReport) Counts() (ok, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return ok, skipped, failed
}
