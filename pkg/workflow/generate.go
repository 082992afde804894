package workflow

import (
	"context"
	"errors"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// GenerateDraft asks the drafter for a title and description of the fetched
// commits. It is a no-op when there are no commits. On failure commits and
// any earlier draft are kept; a malformed reply is returned as
// *draft.MalformedResponseError.
func (s *Session) GenerateDraft(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Operation != OpNone {
		s.mu.Unlock()
		return ErrBusy
	}
	if len(s.state.Commits) == 0 {
		s.mu.Unlock()
		return nil
	}

	t, _ := s.beginLocked(OpGenerating)
	commits := append([]github.Commit(nil), s.state.Commits...)
	fields := s.fieldsLocked(OpGenerating)
	s.mu.Unlock()

	log.Debug("stage started", append(fields, "commits", len(commits))...)
	d, err := s.drafter.Generate(ctx, commits)
	if err != nil {
		var malformed *draft.MalformedResponseError
		var stageErr error
		if errors.As(err, &malformed) {
			stageErr = malformed
		} else {
			stageErr = upstream(ScopeGenerate, err)
		}
		s.finish(t, func(st *State) { st.fail(ScopeGenerate, stageErr) })
		log.Error("stage failed", append(fields, "error", stageErr)...)
		return stageErr
	}

	applied := s.finish(t, func(st *State) {
		v := d
		st.Draft = &v
		st.succeed(ScopeGenerate, "")
	})
	if !applied {
		return ErrSuperseded
	}
	log.Info("draft generated", append(fields, "title", d.Title)...)
	return nil
}

// EditDraft replaces the draft title and/or description. Nil leaves a field unchanged.
func (s *Session) EditDraft(title, description *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Operation != OpNone {
		return ErrBusy
	}
	if s.state.Draft == nil {
		return s.rejectLocked(preconditionf(ScopeDraft, "no draft to edit"))
	}

	if title != nil {
		s.state.Draft.Title = *title
	}
	if description != nil {
		s.state.Draft.Description = *description
	}
	s.notifyLocked()
	return nil
}
