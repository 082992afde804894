package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// CreatePullRequest opens a pull request from newPR.Head into newPR.Base.
// Creation is synchronous; the returned PullRequest is the host's confirmation.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, newPR NewPullRequest) (*PullRequest, error) {
	if newPR.Title == "" {
		return nil, errors.New("pull request title is required")
	}
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	pr, resp, err := c.GitHubClient().PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(newPR.Title),
		Head:  github.Ptr(newPR.Head),
		Base:  github.Ptr(newPR.Base),
		Body:  github.Ptr(newPR.Body),
	})
	c.track(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", wrapError(err))
	}

	return convertFromGitHubPR(pr), nil
}

// convertFromGitHubPR converts a github.PullRequest to our PullRequest type
func convertFromGitHubPR(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		State:     pr.GetState(),
		BaseRef:   pr.GetBase().GetRef(),
		HeadRef:   pr.GetHead().GetRef(),
		CreatedAt: pr.GetCreatedAt().Time,
	}
}
