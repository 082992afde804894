package workflow

import (
	"context"
	"slices"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// repoCoordinates returns the owner and name used for host calls
func repoCoordinates(repo *github.Repository) (owner, name string) {
	owner, name = repo.Owner, repo.Name
	if owner == "" || name == "" {
		fo, fn := github.SplitFullName(repo.FullName)
		if owner == "" {
			owner = fo
		}
		if name == "" {
			name = fn
		}
	}
	return owner, name
}

// SelectRepository selects repo, clearing the branch list, both branch
// selections, commits and draft before loading the new branch list.
// When the load fails the repository stays selected; use ReloadBranches to retry.
func (s *Session) SelectRepository(ctx context.Context, repo github.Repository) error {
	s.mu.Lock()
	t, err := s.beginLocked(OpLoadingBranches)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.invalidateLocked()
	t.epoch = s.epoch
	r := repo
	s.state.Repository = &r
	s.state.Branches = nil
	s.state.BaseBranch = ""
	s.state.HeadBranch = ""
	s.state.Commits = nil
	s.state.Draft = nil
	s.state.Submission = nil
	s.state.LastOutcome = Outcome{Kind: OutcomeIdle}
	fields := s.fieldsLocked(OpLoadingBranches)
	s.notifyLocked()
	s.mu.Unlock()

	log.Info("repository selected", fields...)
	return s.loadBranches(ctx, t, &r, fields)
}

// ReloadBranches reloads the branch list of the selected repository. Branch
// selections that no longer exist are cleared along with commits and draft.
func (s *Session) ReloadBranches(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Operation != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state.Repository == nil {
		defer s.mu.Unlock()
		return s.rejectLocked(preconditionf(ScopeBranches, "no repository selected"))
	}
	t, _ := s.beginLocked(OpLoadingBranches)
	repo := *s.state.Repository
	fields := s.fieldsLocked(OpLoadingBranches)
	s.mu.Unlock()

	return s.loadBranches(ctx, t, &repo, fields)
}

func (s *Session) loadBranches(ctx context.Context, t ticket, repo *github.Repository, fields []any) error {
	owner, name := repoCoordinates(repo)
	branches, err := s.host.ListBranches(ctx, owner, name)
	if err != nil {
		ue := upstream(ScopeBranches, err)
		s.finish(t, func(st *State) { st.fail(ScopeBranches, ue) })
		log.Error("stage failed", append(fields, "error", ue)...)
		return ue
	}

	applied := s.finish(t, func(st *State) {
		st.Branches = append([]string(nil), branches...)
		changed := false
		if st.BaseBranch != "" && !slices.Contains(branches, st.BaseBranch) {
			st.BaseBranch = ""
			changed = true
		}
		if st.HeadBranch != "" && !slices.Contains(branches, st.HeadBranch) {
			st.HeadBranch = ""
			changed = true
		}
		if changed {
			st.Commits = nil
			st.Draft = nil
		}
		st.succeed(ScopeBranches, "")
	})
	if !applied {
		return ErrSuperseded
	}
	log.Info("branches loaded", append(fields, "count", len(branches))...)
	return nil
}

// SelectBranches sets the base and head branches. It does not fetch.
// An empty name leaves that side unselected. Changing either side clears
// commits and draft.
func (s *Session) SelectBranches(base, head string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Operation != OpNone {
		return ErrBusy
	}
	if s.state.Repository == nil {
		return s.rejectLocked(preconditionf(ScopeSelect, "no repository selected"))
	}
	for _, name := range []string{base, head} {
		if name != "" && !slices.Contains(s.state.Branches, name) {
			return s.rejectLocked(preconditionf(ScopeSelect, "branch %q does not exist in %s", name, s.state.Repository.FullName))
		}
	}

	if base == s.state.BaseBranch && head == s.state.HeadBranch {
		return nil
	}

	s.invalidateLocked()
	s.state.BaseBranch = base
	s.state.HeadBranch = head
	s.state.Commits = nil
	s.state.Draft = nil
	log.Debug("branches selected", s.fieldsLocked(OpNone)...)
	s.notifyLocked()
	return nil
}

// FetchCommits loads the commits on head that are not on base.
//
// It is a no-op when no head branch is selected, which includes having no
// repository, or when a draft already exists for the current selection. On failure the selections and any
// previously fetched commits are kept.
func (s *Session) FetchCommits(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Operation != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.state.Repository == nil || s.state.HeadBranch == "" || s.state.Draft != nil {
		s.mu.Unlock()
		return nil
	}
	if s.state.BaseBranch == "" {
		defer s.mu.Unlock()
		return s.rejectLocked(preconditionf(ScopeFetch, "no base branch selected"))
	}

	t, _ := s.beginLocked(OpFetching)
	owner, name := repoCoordinates(s.state.Repository)
	base, head := s.state.BaseBranch, s.state.HeadBranch
	fields := s.fieldsLocked(OpFetching)
	s.mu.Unlock()

	log.Debug("stage started", fields...)
	commits, err := s.host.Divergence(ctx, owner, name, base, head)
	if err != nil {
		ue := upstream(ScopeFetch, err)
		s.finish(t, func(st *State) { st.fail(ScopeFetch, ue) })
		log.Error("stage failed", append(fields, "error", ue)...)
		return ue
	}

	applied := s.finish(t, func(st *State) {
		st.Commits = append([]github.Commit(nil), commits...)
		st.succeed(ScopeFetch, "")
	})
	if !applied {
		return ErrSuperseded
	}
	log.Info("commits fetched", append(fields, "count", len(commits))...)
	return nil
}
