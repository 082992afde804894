package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// Query keys of a shareable resume link
const (
	QueryRepository = "repository_name"
	QueryBase       = "base_branch"
	QueryHead       = "head_branch"
)

// ResumeParams identify a repository and branch pair to resume at
type ResumeParams struct {
	// Repository is "owner/name", or a bare name under the authenticated login
	Repository string `json:"repository"`
	Base       string `json:"base"`
	Head       string `json:"head"`
}

// Complete reports whether all three identifiers are present
func (p ResumeParams) Complete() bool {
	return p.Repository != "" && p.Base != "" && p.Head != ""
}

// Values encodes p as link query values
func (p ResumeParams) Values() url.Values {
	v := url.Values{}
	v.Set(QueryRepository, p.Repository)
	v.Set(QueryBase, p.Base)
	v.Set(QueryHead, p.Head)
	return v
}

// ResumeParamsFromValues reads resume identifiers from query values
func ResumeParamsFromValues(v url.Values) ResumeParams {
	return ResumeParams{
		Repository: strings.TrimSpace(v.Get(QueryRepository)),
		Base:       strings.TrimSpace(v.Get(QueryBase)),
		Head:       strings.TrimSpace(v.Get(QueryHead)),
	}
}

// ParseResumeLink parses a full link or a bare query string
func ParseResumeLink(link string) (ResumeParams, error) {
	link = strings.TrimSpace(link)
	query := link
	if i := strings.IndexByte(link, '?'); i >= 0 {
		u, err := url.Parse(link)
		if err != nil {
			return ResumeParams{}, fmt.Errorf("invalid resume link: %w", err)
		}
		query = u.RawQuery
		if query == "" {
			query = link[i+1:]
		}
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return ResumeParams{}, fmt.Errorf("invalid resume link query: %w", err)
	}
	params := ResumeParamsFromValues(values)
	if !params.Complete() {
		return params, fmt.Errorf("resume link requires %s, %s and %s", QueryRepository, QueryBase, QueryHead)
	}
	return params, nil
}

// BuildResumeLink appends the resume identifiers to base as a query string
func BuildResumeLink(base string, p ResumeParams) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	for k, vs := range p.Values() {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Resume replays repository selection, branch selection and commit fetch
// from external identifiers, using the same transitions as manual
// interaction. It stops at the first failure; the failure is recorded in
// the last outcome and returned. Incomplete params are a no-op.
func (s *Session) Resume(ctx context.Context, p ResumeParams) error {
	if !p.Complete() {
		return nil
	}

	owner, name := github.SplitFullName(p.Repository)
	if owner == "" {
		login, err := s.login(ctx)
		if err != nil {
			return err
		}
		owner = login
	}

	repo, err := s.resolveRepository(ctx, owner, name)
	if err != nil {
		return err
	}

	log.Info("resuming", "repository", repo.FullName, "base", p.Base, "head", p.Head)
	if err := s.SelectRepository(ctx, *repo); err != nil {
		return err
	}
	if err := s.SelectBranches(p.Base, p.Head); err != nil {
		return err
	}
	return s.FetchCommits(ctx)
}

// login returns the authenticated login, loading the identity if needed
func (s *Session) login(ctx context.Context) (string, error) {
	s.mu.Lock()
	identity := s.state.Identity
	s.mu.Unlock()
	if identity != nil {
		return identity.Login, nil
	}

	loaded, err := s.LoadIdentity(ctx)
	if err != nil {
		return "", err
	}
	return loaded.Login, nil
}

// resolveRepository looks up a repository by owner and name
func (s *Session) resolveRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	t, err := s.begin(OpResolvingRepository)
	if err != nil {
		return nil, err
	}

	repo, err := s.host.GetRepository(ctx, owner, name)
	if err != nil {
		ue := upstream(ScopeRepositories, err)
		s.finish(t, func(st *State) { st.fail(ScopeRepositories, ue) })
		log.Warn("resume aborted: repository not resolved", "repository", owner+"/"+name, "error", ue)
		return nil, ue
	}

	if !s.finish(t, nil) {
		return nil, ErrSuperseded
	}
	if repo.Owner == "" {
		repo.Owner = owner
	}
	if repo.FullName == "" {
		repo.FullName = owner + "/" + repo.Name
	}
	return repo, nil
}
