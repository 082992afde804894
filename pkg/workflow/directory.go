package workflow

import (
	"context"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// LoadIdentity fetches the authenticated identity
func (s *Session) LoadIdentity(ctx context.Context) (*github.Identity, error) {
	t, err := s.begin(OpLoadingIdentity)
	if err != nil {
		return nil, err
	}

	identity, err := s.host.CurrentUser(ctx)
	if err != nil {
		ue := upstream(ScopeOwners, err)
		s.finish(t, func(st *State) { st.fail(ScopeOwners, ue) })
		log.Error("identity lookup failed", "error", ue)
		return nil, ue
	}

	applied := s.finish(t, func(st *State) {
		v := *identity
		st.Identity = &v
	})
	if !applied {
		return nil, ErrSuperseded
	}
	return identity, nil
}

// LoadOwners lists the identity and its organizations
func (s *Session) LoadOwners(ctx context.Context) ([]github.Owner, error) {
	t, err := s.begin(OpLoadingOwners)
	if err != nil {
		return nil, err
	}
	log.Debug("stage started", "stage", OpLoadingOwners)

	owners, err := s.host.ListOwners(ctx)
	if err != nil {
		ue := upstream(ScopeOwners, err)
		s.finish(t, func(st *State) { st.fail(ScopeOwners, ue) })
		log.Error("stage failed", "stage", OpLoadingOwners, "error", ue)
		return nil, ue
	}

	applied := s.finish(t, func(st *State) {
		st.Owners = append([]github.Owner(nil), owners...)
		if st.Identity == nil && len(owners) > 0 && owners[0].Kind == github.OwnerUser {
			st.Identity = &github.Identity{
				ID:        owners[0].ID,
				Login:     owners[0].Login,
				AvatarURL: owners[0].AvatarURL,
			}
		}
		st.succeed(ScopeOwners, "")
	})
	if !applied {
		return nil, ErrSuperseded
	}
	log.Info("owners loaded", "count", len(owners))
	return owners, nil
}

// LoadRepositories lists the repositories of owner and makes it the selected owner
func (s *Session) LoadRepositories(ctx context.Context, owner github.Owner) ([]github.Repository, error) {
	t, err := s.begin(OpLoadingRepositories)
	if err != nil {
		return nil, err
	}
	log.Debug("stage started", "stage", OpLoadingRepositories, "owner", owner.Login)

	repos, err := s.host.ListRepositories(ctx, owner)
	if err != nil {
		ue := upstream(ScopeRepositories, err)
		s.finish(t, func(st *State) { st.fail(ScopeRepositories, ue) })
		log.Error("stage failed", "stage", OpLoadingRepositories, "owner", owner.Login, "error", ue)
		return nil, ue
	}

	applied := s.finish(t, func(st *State) {
		o := owner
		st.Owner = &o
		st.Repositories = append([]github.Repository(nil), repos...)
		st.succeed(ScopeRepositories, "")
	})
	if !applied {
		return nil, ErrSuperseded
	}
	log.Info("repositories loaded", "owner", owner.Login, "count", len(repos))
	return repos, nil
}
