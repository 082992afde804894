package github

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-github/v68/github"
	"golang.org/x/sync/errgroup"
)

const perPage = 100

// CurrentUser retrieves the authenticated user's identity
func (c *Client) CurrentUser(ctx context.Context) (*Identity, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	user, resp, err := c.GitHubClient().Users.Get(ctx, "")
	c.track(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch authenticated user: %w", wrapError(err))
	}

	return &Identity{
		ID:        user.GetID(),
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// ListOwners returns the authenticated user followed by every organization
// the user belongs to. Both lookups run concurrently; if either fails the
// whole call fails and no partial list is returned.
func (c *Client) ListOwners(ctx context.Context) ([]Owner, error) {
	var (
		identity *Identity
		orgs     []*github.Organization
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		identity, err = c.CurrentUser(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orgs, err = c.listOrganizations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	owners := make([]Owner, 0, len(orgs)+1)
	owners = append(owners, Owner{
		ID:        identity.ID,
		Login:     identity.Login,
		AvatarURL: identity.AvatarURL,
		Kind:      OwnerUser,
	})
	for _, org := range orgs {
		owners = append(owners, Owner{
			ID:        org.GetID(),
			Login:     org.GetLogin(),
			AvatarURL: org.GetAvatarURL(),
			Kind:      OwnerOrganization,
		})
	}
	return owners, nil
}

// listOrganizations lists all organizations of the authenticated user
func (c *Client) listOrganizations(ctx context.Context) ([]*github.Organization, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: perPage}
	var all []*github.Organization
	for {
		orgs, resp, err := c.GitHubClient().Organizations.List(ctx, "", opts)
		c.track(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to list organizations: %w", wrapError(err))
		}
		all = append(all, orgs...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListRepositories lists repositories for an owner, most recently updated first.
// Organization owners list every organization repository; the user owner
// lists only repositories the user owns, not collaborator repositories.
func (c *Client) ListRepositories(ctx context.Context, owner Owner) ([]Repository, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	var all []*github.Repository
	switch owner.Kind {
	case OwnerOrganization:
		opts := &github.RepositoryListByOrgOptions{
			Type:        "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		}
		for {
			repos, resp, err := c.GitHubClient().Repositories.ListByOrg(ctx, owner.Login, opts)
			c.track(resp)
			if err != nil {
				return nil, fmt.Errorf("failed to list repositories for organization %s: %w", owner.Login, wrapError(err))
			}
			all = append(all, repos...)
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	default:
		opts := &github.RepositoryListByAuthenticatedUserOptions{
			Affiliation: "owner",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		}
		for {
			repos, resp, err := c.GitHubClient().Repositories.ListByAuthenticatedUser(ctx, opts)
			c.track(resp)
			if err != nil {
				return nil, fmt.Errorf("failed to list repositories: %w", wrapError(err))
			}
			all = append(all, repos...)
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}

	result := make([]Repository, 0, len(all))
	for _, repo := range all {
		result = append(result, convertFromGitHubRepository(repo))
	}
	// Pages are individually ordered; keep the whole list ordered too
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// GetRepository fetches a single repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	repo, resp, err := c.GitHubClient().Repositories.Get(ctx, owner, name)
	c.track(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, name, wrapError(err))
	}

	result := convertFromGitHubRepository(repo)
	return &result, nil
}

// convertFromGitHubRepository converts a github.Repository to our Repository type
func convertFromGitHubRepository(repo *github.Repository) Repository {
	owner := ""
	if o := repo.GetOwner(); o != nil {
		owner = o.GetLogin()
	}

	return Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Owner:         owner,
		Private:       repo.GetPrivate(),
		DefaultBranch: repo.GetDefaultBranch(),
		URL:           repo.GetHTMLURL(),
		UpdatedAt:     repo.GetUpdatedAt().Time,
	}
}
