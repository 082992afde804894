package workflow

import (
	"context"
	"strings"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// Submit creates the pull request from the current draft.
//
// On success the session returns to branch selection: commits, draft and the
// head branch are cleared while the repository, base branch and branch list
// are kept. On failure the draft is kept for another attempt.
func (s *Session) Submit(ctx context.Context) (*github.PullRequest, error) {
	s.mu.Lock()
	if s.state.Operation != OpNone {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state.Repository == nil || s.state.Draft == nil {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(preconditionf(ScopeSubmit, "no draft to submit"))
	}
	if strings.TrimSpace(s.state.Draft.Title) == "" {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(preconditionf(ScopeSubmit, "title is required"))
	}

	t, _ := s.beginLocked(OpSubmitting)
	owner, name := repoCoordinates(s.state.Repository)
	newPR := github.NewPullRequest{
		Title: s.state.Draft.Title,
		Body:  s.state.Draft.Description,
		Base:  s.state.BaseBranch,
		Head:  s.state.HeadBranch,
	}
	fields := s.fieldsLocked(OpSubmitting)
	s.mu.Unlock()

	log.Progress("creating pull request", fields...)
	pr, err := s.host.CreatePullRequest(ctx, owner, name, newPR)
	if err != nil {
		ue := upstream(ScopeSubmit, err)
		s.finish(t, func(st *State) { st.fail(ScopeSubmit, ue) })
		log.Error("stage failed", append(fields, "error", ue)...)
		return nil, ue
	}

	applied := s.finish(t, func(st *State) {
		v := *pr
		st.Submission = &v
		st.Commits = nil
		st.Draft = nil
		st.HeadBranch = ""
		st.succeed(ScopeSubmit, pr.URL)
	})
	if applied {
		log.Info("pull request created", append(fields, "number", pr.Number, "url", pr.URL)...)
	}
	return pr, nil
}
