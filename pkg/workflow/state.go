package workflow

import (
	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
)

// Operation is the stage currently in flight. At most one runs per session.
type Operation string

const (
	OpNone                Operation = ""
	OpLoadingIdentity     Operation = "loading_identity"
	OpLoadingOwners       Operation = "loading_owners"
	OpLoadingRepositories Operation = "loading_repositories"
	OpResolvingRepository Operation = "resolving_repository"
	OpLoadingBranches     Operation = "loading_branches"
	OpFetching            Operation = "fetching"
	OpGenerating          Operation = "generating"
	OpSubmitting          Operation = "submitting"
)

// Phase is the workflow position derived from the state fields
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseRepositorySelected Phase = "repository_selected"
	PhaseBranchesLoaded     Phase = "branches_loaded"
	PhaseCommitsReady       Phase = "commits_ready"
	PhaseDraftReady         Phase = "draft_ready"
)

// Scope names the stage an outcome belongs to
type Scope string

const (
	ScopeOwners       Scope = "owners"
	ScopeRepositories Scope = "repositories"
	ScopeBranches     Scope = "branches"
	ScopeSelect       Scope = "select"
	ScopeFetch        Scope = "fetch"
	ScopeGenerate     Scope = "generate"
	ScopeDraft        Scope = "draft"
	ScopeSubmit       Scope = "submit"
)

// OutcomeKind classifies the last completed transition
type OutcomeKind string

const (
	OutcomeIdle    OutcomeKind = "idle"
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
)

// Outcome is the displayable result of the last transition
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Scope   Scope       `json:"scope,omitempty"`
	Message string      `json:"message,omitempty"`
	Err     error       `json:"-"`
}

// State is a snapshot of a session. Slices are copies owned by the caller.
type State struct {
	Identity     *github.Identity    `json:"identity,omitempty"`
	Owners       []github.Owner      `json:"owners"`
	Owner        *github.Owner       `json:"owner,omitempty"`
	Repositories []github.Repository `json:"repositories"`
	Repository   *github.Repository  `json:"repository,omitempty"`
	Branches     []string            `json:"branches"`
	BaseBranch   string              `json:"base_branch"`
	HeadBranch   string              `json:"head_branch"`
	Commits      []github.Commit     `json:"commits"`
	Draft        *draft.Draft        `json:"draft,omitempty"`
	Operation    Operation           `json:"operation"`
	LastOutcome  Outcome             `json:"last_outcome"`
	Submission   *github.PullRequest `json:"submission,omitempty"`
}

// Phase derives the workflow phase
func (s State) Phase() Phase {
	switch {
	case s.Draft != nil:
		return PhaseDraftReady
	case len(s.Commits) > 0:
		return PhaseCommitsReady
	case s.Repository != nil && len(s.Branches) > 0:
		return PhaseBranchesLoaded
	case s.Repository != nil:
		return PhaseRepositorySelected
	default:
		return PhaseIdle
	}
}

// Busy reports whether a stage is in flight
func (s State) Busy() bool {
	return s.Operation != OpNone
}

func (s State) clone() State {
	c := s
	c.Owners = append([]github.Owner(nil), s.Owners...)
	c.Repositories = append([]github.Repository(nil), s.Repositories...)
	c.Branches = append([]string(nil), s.Branches...)
	c.Commits = append([]github.Commit(nil), s.Commits...)
	if s.Identity != nil {
		v := *s.Identity
		c.Identity = &v
	}
	if s.Owner != nil {
		v := *s.Owner
		c.Owner = &v
	}
	if s.Repository != nil {
		v := *s.Repository
		c.Repository = &v
	}
	if s.Draft != nil {
		v := *s.Draft
		c.Draft = &v
	}
	if s.Submission != nil {
		v := *s.Submission
		c.Submission = &v
	}
	return c
}
