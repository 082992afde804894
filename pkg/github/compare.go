package github

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-github/v68/github"
)

// ListBranches lists every branch name of a repository. The order is the host's.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var names []string
	for {
		branches, resp, err := c.GitHubClient().Repositories.ListBranches(ctx, owner, repo, opts)
		c.track(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s/%s: %w", owner, repo, wrapError(err))
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// Divergence returns the commits reachable from head but not from base
// (a base...head comparison), newest first.
func (c *Client) Divergence(ctx context.Context, owner, repo, base, head string) ([]Commit, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: perPage}

	var raw []*github.RepositoryCommit
	for {
		cmp, resp, err := c.GitHubClient().Repositories.CompareCommits(ctx, owner, repo, base, head, opts)
		c.track(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s...%s in %s/%s: %w", base, head, owner, repo, wrapError(err))
		}
		raw = append(raw, cmp.Commits...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return NormalizeCommits(raw), nil
}

// NormalizeCommits converts raw comparison commits and sorts them by commit
// timestamp, newest first. The host's ordering is topological, not temporal,
// so the sort is always applied. Unattributed commits get UnknownAuthor.
func NormalizeCommits(raw []*github.RepositoryCommit) []Commit {
	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		if rc == nil {
			continue
		}
		commits = append(commits, convertFromRepositoryCommit(rc))
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].CommittedAt.After(commits[j].CommittedAt)
	})
	return commits
}

// convertFromRepositoryCommit converts a github.RepositoryCommit to our Commit type
func convertFromRepositoryCommit(rc *github.RepositoryCommit) Commit {
	author := UnknownAuthor
	if user := rc.GetAuthor(); user != nil && user.GetLogin() != "" {
		author = user.GetLogin()
	}

	// GetCommit, GetCommitter and GetAuthor are nil-safe
	gitCommit := rc.GetCommit()
	committedAt := gitCommit.GetCommitter().GetDate().Time
	if committedAt.IsZero() {
		committedAt = gitCommit.GetAuthor().GetDate().Time
	}

	id := rc.GetNodeID()
	if id == "" {
		id = rc.GetSHA()
	}

	return Commit{
		ID:          id,
		SHA:         rc.GetSHA(),
		Author:      author,
		CommittedAt: committedAt,
		Message:     gitCommit.GetMessage(),
	}
}
