package workflow

import (
	"context"
	"sync"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// Host is the repository host used by a session
type Host interface {
	CurrentUser(ctx context.Context) (*github.Identity, error)
	ListOwners(ctx context.Context) ([]github.Owner, error)
	ListRepositories(ctx context.Context, owner github.Owner) ([]github.Repository, error)
	GetRepository(ctx context.Context, owner, name string) (*github.Repository, error)
	ListBranches(ctx context.Context, owner, repo string) ([]string, error)
	Divergence(ctx context.Context, owner, repo, base, head string) ([]github.Commit, error)
	CreatePullRequest(ctx context.Context, owner, repo string, pr github.NewPullRequest) (*github.PullRequest, error)
}

// Drafter turns commits into a pull request draft
type Drafter interface {
	Generate(ctx context.Context, commits []github.Commit) (draft.Draft, error)
}

// Session holds the state of one interactive pull request workflow.
//
// Every network-calling transition claims the single Operation slot under the
// session mutex, performs its call without holding the lock, and applies the
// result when it returns. A result is discarded when the session was reset
// or re-selected while the call was in flight. Transitions requested while a
// stage is in flight return ErrBusy; Reset is always accepted.
type Session struct {
	host    Host
	drafter Drafter

	mu        sync.Mutex
	state     State
	epoch     uint64
	observers []func(State)
}

// NewSession creates an idle session
func NewSession(host Host, drafter Drafter) *Session {
	return &Session{
		host:    host,
		drafter: drafter,
		state:   State{LastOutcome: Outcome{Kind: OutcomeIdle}},
	}
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn is called synchronously and must not call back into the session.
// The returned function unregisters fn.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, fn)
	idx := len(s.observers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.observers) {
			s.observers[idx] = nil
		}
	}
}

// notifyLocked publishes the current state. Callers hold s.mu.
func (s *Session) notifyLocked() {
	if len(s.observers) == 0 {
		return
	}
	snapshot := s.state.clone()
	for _, fn := range s.observers {
		if fn != nil {
			fn(snapshot)
		}
	}
}

// ticket identifies an in-flight stage
type ticket struct {
	op    Operation
	epoch uint64
}

// beginLocked claims the operation slot. Callers hold s.mu.
func (s *Session) beginLocked(op Operation) (ticket, error) {
	if s.state.Operation != OpNone {
		log.Debug("transition rejected", "stage", op, "in_flight", s.state.Operation)
		return ticket{}, ErrBusy
	}
	s.state.Operation = op
	s.notifyLocked()
	return ticket{op: op, epoch: s.epoch}, nil
}

// begin claims the operation slot
func (s *Session) begin(op Operation) (ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(op)
}

// finish releases the operation slot. apply runs under the lock only when
// the ticket is still current; the returned bool reports whether it ran.
func (s *Session) finish(t ticket, apply func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Operation == t.op {
		s.state.Operation = OpNone
	}
	current := t.epoch == s.epoch
	if current && apply != nil {
		apply(&s.state)
	} else if !current {
		log.Debug("discarding stale result", "stage", t.op)
	}
	s.notifyLocked()
	return current
}

// invalidateLocked bumps the epoch so in-flight results are discarded
func (s *Session) invalidateLocked() {
	s.epoch++
}

// fail records err as the last outcome
func (st *State) fail(scope Scope, err error) {
	st.LastOutcome = Outcome{Kind: OutcomeError, Scope: scope, Message: err.Error(), Err: err}
}

// succeed records a successful outcome
func (st *State) succeed(scope Scope, message string) {
	st.LastOutcome = Outcome{Kind: OutcomeSuccess, Scope: scope, Message: message}
}

// rejectLocked records a precondition failure and returns it
func (s *Session) rejectLocked(err *PreconditionError) error {
	log.Warn("precondition failed", "stage", err.Scope, "reason", err.Reason)
	s.state.fail(err.Scope, err)
	s.notifyLocked()
	return err
}

// fieldsLocked returns the selection log fields. Callers hold s.mu.
func (s *Session) fieldsLocked(stage Operation) []any {
	fields := []any{"stage", stage}
	if s.state.Repository != nil {
		fields = append(fields, "repository", s.state.Repository.FullName)
	}
	if s.state.BaseBranch != "" {
		fields = append(fields, "base", s.state.BaseBranch)
	}
	if s.state.HeadBranch != "" {
		fields = append(fields, "head", s.state.HeadBranch)
	}
	return fields
}

// Reset clears the whole session, as on logout. A stage still in flight keeps
// the operation slot until it returns, and its result is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.state.Operation
	s.invalidateLocked()
	s.state = State{Operation: op, LastOutcome: Outcome{Kind: OutcomeIdle}}
	log.Info("session reset")
	s.notifyLocked()
}
