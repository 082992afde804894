package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
	"github.com/holon-run/prgen/pkg/workflow"
)

// stubHost serves the acme/api fixture
type stubHost struct {
	mu        sync.Mutex
	submitErr error
	created   int
}

func (h *stubHost) CurrentUser(ctx context.Context) (*github.Identity, error) {
	return &github.Identity{ID: 1, Login: "alice"}, nil
}

func (h *stubHost) ListOwners(ctx context.Context) ([]github.Owner, error) {
	return []github.Owner{
		{ID: 1, Login: "alice", Kind: github.OwnerUser},
		{ID: 10, Login: "acme", Kind: github.OwnerOrganization},
	}, nil
}

func (h *stubHost) ListRepositories(ctx context.Context, owner github.Owner) ([]github.Repository, error) {
	if owner.Login != "acme" {
		return nil, nil
	}
	return []github.Repository{{ID: 2, Name: "api", FullName: "acme/api", Owner: "acme"}}, nil
}

func (h *stubHost) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	if owner == "acme" && name == "api" {
		return &github.Repository{ID: 2, Name: "api", FullName: "acme/api", Owner: "acme"}, nil
	}
	return nil, &github.APIError{StatusCode: http.StatusNotFound, Message: "Not Found"}
}

func (h *stubHost) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	return []string{"main", "feature-x"}, nil
}

func (h *stubHost) Divergence(ctx context.Context, owner, repo, base, head string) ([]github.Commit, error) {
	return []github.Commit{
		{SHA: "bbbbbbb", Author: "bob", CommittedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Message: "Add tests"},
		{SHA: "aaaaaaa", Author: "bob", CommittedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Message: "Add retry logic"},
	}, nil
}

func (h *stubHost) CreatePullRequest(ctx context.Context, owner, repo string, pr github.NewPullRequest) (*github.PullRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.submitErr != nil {
		return nil, h.submitErr
	}
	h.created++
	return &github.PullRequest{Number: 7, Title: pr.Title, URL: "https://github.com/acme/api/pull/7"}, nil
}

type ServerTestSuite struct {
	suite.Suite
	host    *stubHost
	replies []func(llm.Request) (*llm.Response, error)
	server  *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.host = &stubHost{}
	s.replies = []func(llm.Request) (*llm.Response, error){
		llm.SimpleTextResponse(`{"title":"feat: add retries","description":"- adds retry logic\n- adds tests"}`),
	}
	s.server = New(func() *workflow.Session {
		gen, err := draft.NewGenerator(&llm.MockProvider{Responses: s.replies})
		s.Require().NoError(err)
		return workflow.NewSession(s.host, gen)
	}, WithLinkBase("https://prgen.example.com/"))
}

func (s *ServerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) decodeState(rec *httptest.ResponseRecorder) StateResponse {
	var resp StateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func (s *ServerTestSuite) decodeError(rec *httptest.ResponseRecorder) ErrorDetail {
	var body ErrorBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func (s *ServerTestSuite) newSession() string {
	rec := s.do(http.MethodPost, "/sessions", "")
	s.Require().Equal(http.StatusCreated, rec.Code)
	resp := s.decodeState(rec)
	s.Require().NotEmpty(resp.ID)
	s.Equal(workflow.PhaseIdle, resp.Phase)
	return resp.ID
}

func (s *ServerTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *ServerTestSuite) TestFullWorkflow() {
	id := s.newSession()
	base := "/sessions/" + id

	rec := s.do(http.MethodPost, base+"/owners", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Len(s.decodeState(rec).Owners, 2)

	rec = s.do(http.MethodPost, base+"/repositories", `{"owner":"acme"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Len(s.decodeState(rec).Repositories, 1)

	rec = s.do(http.MethodPut, base+"/repository", `{"full_name":"acme/api"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(workflow.PhaseBranchesLoaded, s.decodeState(rec).Phase)

	rec = s.do(http.MethodPut, base+"/branches", `{"base":"main","head":"feature-x"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, base+"/link", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), "repository_name=acme%2Fapi")

	rec = s.do(http.MethodPost, base+"/commits", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(workflow.PhaseCommitsReady, s.decodeState(rec).Phase)

	rec = s.do(http.MethodPost, base+"/draft", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	st := s.decodeState(rec)
	s.Require().NotNil(st.Draft)
	s.Equal("feat: add retries", st.Draft.Title)

	rec = s.do(http.MethodPatch, base+"/draft", `{"title":"feat: retry failed calls"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("feat: retry failed calls", s.decodeState(rec).Draft.Title)

	rec = s.do(http.MethodPost, base+"/submit", "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	st = s.decodeState(rec)
	s.Equal("", st.HeadBranch)
	s.Equal("main", st.BaseBranch)
	s.Nil(st.Draft)
	s.Require().NotNil(st.Submission)
	s.Equal(7, st.Submission.Number)
	s.Equal(workflow.OutcomeSuccess, st.LastOutcome.Kind)
}

func (s *ServerTestSuite) TestResume() {
	id := s.newSession()

	rec := s.do(http.MethodPost, "/sessions/"+id+"/resume", `{"link":"https://prgen.example.com/?repository_name=acme%2Fapi&base_branch=main&head_branch=feature-x"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	st := s.decodeState(rec)
	s.Equal(workflow.PhaseCommitsReady, st.Phase)
	s.Len(st.Commits, 2)

	rec = s.do(http.MethodPost, "/sessions/"+id+"/resume", `{"repository":"acme/missing","base":"main","head":"x"}`)
	s.Equal(http.StatusBadGateway, rec.Code)
	detail := s.decodeError(rec)
	s.Equal(CodeUpstream, detail.Code)
	s.Equal(workflow.ScopeRepositories, detail.Scope)
	s.Equal(http.StatusNotFound, detail.StatusCode)

	rec = s.do(http.MethodPost, "/sessions/"+id+"/resume", `{"repository":"acme/api"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestErrorMapping() {
	id := s.newSession()
	base := "/sessions/" + id

	rec := s.do(http.MethodPost, base+"/submit", "")
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	s.Equal(CodePrecondition, s.decodeError(rec).Code)

	rec = s.do(http.MethodPut, base+"/repository", `{"full_name":"acme/api"}`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/sessions/nope", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(CodeNotFound, s.decodeError(rec).Code)

	rec = s.do(http.MethodPost, base+"/repositories", `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestMalformedReply() {
	s.replies[0] = llm.SimpleTextResponse("no json at all")
	id := s.newSession()
	base := "/sessions/" + id

	rec := s.do(http.MethodPost, base+"/resume", `{"repository":"acme/api","base":"main","head":"feature-x"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/draft", "")
	s.Equal(http.StatusBadGateway, rec.Code)
	detail := s.decodeError(rec)
	s.Equal(CodeMalformed, detail.Code)
	s.Equal(workflow.ScopeGenerate, detail.Scope)

	rec = s.do(http.MethodGet, base, "")
	st := s.decodeState(rec)
	s.Nil(st.Draft)
	s.Equal(workflow.PhaseCommitsReady, st.Phase)
	s.Equal(workflow.OutcomeError, st.LastOutcome.Kind)
}

func (s *ServerTestSuite) TestDeleteSession() {
	id := s.newSession()
	rec := s.do(http.MethodDelete, "/sessions/"+id, "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/sessions/"+id, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestIdleSessionsExpire() {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.server.now = func() time.Time { return now }

	stale := s.newSession()
	now = now.Add(DefaultIdleTimeout / 2)
	active := s.newSession()

	now = now.Add(DefaultIdleTimeout/2 + time.Second)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/sessions/"+active, "").Code)

	rec := s.do(http.MethodGet, "/sessions/"+stale, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(CodeNotFound, s.decodeError(rec).Code)
	s.Len(s.server.sessions, 1)
}

func (s *ServerTestSuite) TestIdleTimeoutDisabled() {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.server.now = func() time.Time { return now }
	WithIdleTimeout(0)(s.server)

	id := s.newSession()
	now = now.Add(24 * time.Hour)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/sessions/"+id, "").Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"busy", workflow.ErrBusy, http.StatusConflict, CodeBusy},
		{"superseded", workflow.ErrSuperseded, http.StatusConflict, CodeSuperseded},
		{"precondition", &workflow.PreconditionError{Scope: workflow.ScopeSubmit, Reason: "title is required"}, http.StatusUnprocessableEntity, CodePrecondition},
		{"upstream", &workflow.UpstreamError{Scope: workflow.ScopeFetch, StatusCode: 500}, http.StatusBadGateway, CodeUpstream},
		{"malformed", &draft.MalformedResponseError{Reason: "empty reply"}, http.StatusBadGateway, CodeMalformed},
		{"other", assert.AnError, http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New(func() *workflow.Session { return workflow.NewSession(&stubHost{}, nil) })

	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Eventually(t, func() bool { return srv.echo.ListenerAddr() != nil }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
