// Package github implements the hosting provider for github.com.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"

	"github.com/pinforge/actionpin/domain"
)

const (
	providerName  = "github"
	cloneUsername = "x-access-token"
	perPage       = 100
)

// Provider implements domain.Provider for GitHub.
type Provider struct {
	token  string
	client *gh.Client
}

// New creates a new GitHub provider with the given token.
func New(token string) domain.Provider {
	return &Provider{
		token:  token,
		client: gh.NewClient(nil).WithAuthToken(token),
	}
}

func (p *Provider) Name() string          { return providerName }
func (p *Provider) AuthToken() string     { return p.token }
func (p *Provider) CloneUsername() string { return cloneUsername }

// CloneURL returns the plain HTTPS clone URL. Credentials travel through the
// transport, not the URL.
func (p *Provider) CloneURL(repo domain.TargetRepo) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", repo.Owner, repo.Name)
}

// ListOpenPullRequests returns every open pull request whose head is the
// given branch.
func (p *Provider) ListOpenPullRequests(
	ctx context.Context,
	repo domain.TargetRepo,
	headBranch string,
) ([]domain.PullRequestRecord, error) {
	opts := &gh.PullRequestListOptions{
		State:       "open",
		Head:        repo.Owner + ":" + headBranch,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var records []domain.PullRequestRecord
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classifyAPIError("failed to list pull requests", err)
		}

		for _, pr := range prs {
			// The head filter is server-side; keep the exact-match guard anyway.
			if pr.GetHead().GetRef() != headBranch {
				continue
			}
			records = append(records, toRecord(pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

// CreatePullRequest opens a new pull request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo domain.TargetRepo,
	input domain.PullRequestInput,
) (*domain.PullRequestRecord, error) {
	pr, _, err := p.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
		Title:               gh.String(input.Title),
		Head:                gh.String(input.HeadBranch),
		Base:                gh.String(input.BaseBranch),
		Body:                gh.String(input.Body),
		MaintainerCanModify: gh.Bool(true),
	})
	if err != nil {
		return nil, classifyAPIError("failed to create pull request", err)
	}

	record := toRecord(pr)
	return &record, nil
}

// UpdatePullRequestBody replaces the body of an existing pull request.
func (p *Provider) UpdatePullRequestBody(
	ctx context.Context,
	repo domain.TargetRepo,
	number int,
	body string,
) (*domain.PullRequestRecord, error) {
	pr, _, err := p.client.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, &gh.PullRequest{
		Body: gh.String(body),
	})
	if err != nil {
		return nil, classifyAPIError(
			fmt.Sprintf("failed to update pull request #%d", number), err,
		)
	}

	record := toRecord(pr)
	return &record, nil
}

// --- helpers ---

func toRecord(pr *gh.PullRequest) domain.PullRequestRecord {
	return domain.PullRequestRecord{
		Number:     pr.GetNumber(),
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		URL:        pr.GetHTMLURL(),
	}
}

// classifyAPIError tags credential and visibility failures with the domain
// sentinels so callers can distinguish them with errors.Is.
func classifyAPIError(action string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", action, domain.ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", action, domain.ErrRepoNotFound, err)
		}
	}

	return fmt.Errorf("%s: %w", action, err)
}
