package application

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/pinforge/actionpin/domain"
)

// UpsertPullRequest creates the pull request for input.HeadBranch or
// refreshes the body of the one already open. More than one open pull
// request on the branch is ambiguous and nothing is touched.
func UpsertPullRequest(
	ctx context.Context,
	provider domain.Provider,
	target domain.TargetRepo,
	input domain.PullRequestInput,
) (*domain.PullRequestRecord, error) {
	open, err := provider.ListOpenPullRequests(ctx, target, input.HeadBranch)
	if err != nil {
		return nil, err
	}

	switch len(open) {
	case 0:
		pullRequest, createErr := provider.CreatePullRequest(ctx, target, input)
		if createErr != nil {
			return nil, createErr
		}
		logger.Infof("[%s] Created pull request #%d: %s", target, pullRequest.Number, pullRequest.URL)
		return pullRequest, nil
	case 1:
		pullRequest, updateErr := provider.UpdatePullRequestBody(ctx, target, open[0].Number, input.Body)
		if updateErr != nil {
			return nil, updateErr
		}
		logger.Infof("[%s] Updated pull request #%d: %s", target, pullRequest.Number, pullRequest.URL)
		return pullRequest, nil
	default:
		return nil, fmt.Errorf(
			"%w: %d open for %q",
			domain.ErrAmbiguousPullRequests, len(open), input.HeadBranch,
		)
	}
}
