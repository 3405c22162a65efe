// Package gitlab implements the hosting provider for gitlab.com.
package gitlab

import (
	"context"
	"errors"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/pinforge/actionpin/domain"
)

const (
	providerName  = "gitlab"
	cloneUsername = "oauth2"
	perPage       = 100
)

var errClientNotInitialized = errors.New("gitlab client not initialized")

// Provider implements domain.Provider for GitLab. Merge requests are mapped
// onto the pull request vocabulary the rest of the pipeline speaks.
type Provider struct {
	token  string
	client *gl.Client
}

// New creates a new GitLab provider with the given token. Client
// construction errors surface on first use, not here.
func New(token string) domain.Provider {
	client, err := gl.NewClient(token)
	if err != nil {
		return &Provider{token: token, client: nil}
	}
	return &Provider{
		token:  token,
		client: client,
	}
}

func (p *Provider) Name() string          { return providerName }
func (p *Provider) AuthToken() string     { return p.token }
func (p *Provider) CloneUsername() string { return cloneUsername }

// CloneURL returns the plain HTTPS clone URL. Credentials travel through the
// transport, not the URL.
func (p *Provider) CloneURL(repo domain.TargetRepo) string {
	return fmt.Sprintf("https://gitlab.com/%s/%s.git", repo.Owner, repo.Name)
}

// ListOpenPullRequests returns every opened merge request whose source is
// the given branch.
func (p *Provider) ListOpenPullRequests(
	ctx context.Context,
	repo domain.TargetRepo,
	headBranch string,
) ([]domain.PullRequestRecord, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	pid := repo.Owner + "/" + repo.Name
	opts := &gl.ListProjectMergeRequestsOptions{
		State:        gl.Ptr("opened"),
		SourceBranch: gl.Ptr(headBranch),
		ListOptions:  gl.ListOptions{PerPage: perPage},
	}

	var records []domain.PullRequestRecord
	for {
		mrs, resp, err := p.client.MergeRequests.ListProjectMergeRequests(
			pid, opts, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list merge requests: %w", err)
		}

		for _, mr := range mrs {
			records = append(records, domain.PullRequestRecord{
				Number:     int(mr.IID),
				HeadBranch: mr.SourceBranch,
				BaseBranch: mr.TargetBranch,
				Title:      mr.Title,
				Body:       mr.Description,
				URL:        mr.WebURL,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

// CreatePullRequest opens a new merge request.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo domain.TargetRepo,
	input domain.PullRequestInput,
) (*domain.PullRequestRecord, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	pid := repo.Owner + "/" + repo.Name
	mr, _, err := p.client.MergeRequests.CreateMergeRequest(
		pid,
		&gl.CreateMergeRequestOptions{
			Title:              gl.Ptr(input.Title),
			Description:        gl.Ptr(input.Body),
			SourceBranch:       gl.Ptr(input.HeadBranch),
			TargetBranch:       gl.Ptr(input.BaseBranch),
			RemoveSourceBranch: gl.Ptr(true),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request: %w", err)
	}

	return &domain.PullRequestRecord{
		Number:     int(mr.IID),
		HeadBranch: mr.SourceBranch,
		BaseBranch: mr.TargetBranch,
		Title:      mr.Title,
		Body:       mr.Description,
		URL:        mr.WebURL,
	}, nil
}

// UpdatePullRequestBody replaces the description of an existing merge request.
func (p *Provider) UpdatePullRequestBody(
	ctx context.Context,
	repo domain.TargetRepo,
	number int,
	body string,
) (*domain.PullRequestRecord, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	pid := repo.Owner + "/" + repo.Name
	mr, _, err := p.client.MergeRequests.UpdateMergeRequest(
		pid,
		int64(number),
		&gl.UpdateMergeRequestOptions{Description: gl.Ptr(body)},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update merge request !%d: %w", number, err)
	}

	return &domain.PullRequestRecord{
		Number:     int(mr.IID),
		HeadBranch: mr.SourceBranch,
		BaseBranch: mr.TargetBranch,
		Title:      mr.Title,
		Body:       mr.Description,
		URL:        mr.WebURL,
	}, nil
}
