// Package server exposes workflow sessions over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
	"github.com/holon-run/prgen/pkg/workflow"
)

// SessionFactory creates a fresh workflow session
type SessionFactory func() *workflow.Session

// DefaultIdleTimeout is how long an unused session is kept
const DefaultIdleTimeout = 30 * time.Minute

// Server serves the session API
type Server struct {
	echo        *echo.Echo
	newSession  SessionFactory
	linkBase    string
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *workflow.Session
	lastUsed time.Time
}

// Option configures a Server
type Option func(*Server)

// WithLinkBase sets the base URL used when building resume links
func WithLinkBase(base string) Option {
	return func(s *Server) {
		s.linkBase = base
	}
}

// WithIdleTimeout sets how long a session may go unused before it is
// dropped. Zero keeps sessions until they are deleted.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// New creates a server whose sessions come from factory
func New(factory SessionFactory, opts ...Option) *Server {
	s := &Server{
		echo:        echo.New(),
		newSession:  factory,
		linkBase:    "http://localhost/",
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(LoggingMiddleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/sessions", s.createSession)

	g := e.Group("/sessions/:id", s.withSession)
	g.GET("", s.getSession)
	g.DELETE("", s.deleteSession)
	g.POST("/reset", s.reset)
	g.POST("/owners", s.loadOwners)
	g.POST("/repositories", s.loadRepositories)
	g.PUT("/repository", s.selectRepository)
	g.POST("/branches/reload", s.reloadBranches)
	g.PUT("/branches", s.selectBranches)
	g.POST("/commits", s.fetchCommits)
	g.POST("/draft", s.generateDraft)
	g.PATCH("/draft", s.editDraft)
	g.POST("/submit", s.submit)
	g.POST("/resume", s.resume)
	g.GET("/link", s.link)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	log.Info("session API listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// StateResponse is a session snapshot with its derived phase
type StateResponse struct {
	ID    string         `json:"id"`
	Phase workflow.Phase `json:"phase"`
	workflow.State
}

func stateResponse(id string, st workflow.State) StateResponse {
	return StateResponse{ID: id, Phase: st.Phase(), State: st}
}

const sessionKey = "session"

// withSession resolves :id into the request context
func (s *Server) withSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		s.mu.Lock()
		s.evictIdleLocked()
		e, ok := s.sessions[id]
		if ok {
			e.lastUsed = s.now()
		}
		s.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusNotFound, ErrorBody{ErrorDetail{Code: CodeNotFound, Message: "session " + id + " not found"}})
		}
		c.Set(sessionKey, e.session)
		err := next(c)

		// A long call should not count as idle time
		s.mu.Lock()
		e.lastUsed = s.now()
		s.mu.Unlock()
		return err
	}
}

func session(c echo.Context) *workflow.Session {
	return c.Get(sessionKey).(*workflow.Session)
}

// respond writes the session state, or the mapped error
func respond(c echo.Context, err error) error {
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stateResponse(c.Param("id"), session(c).Snapshot()))
}

func (s *Server) createSession(c echo.Context) error {
	id := uuid.NewString()
	sess := s.newSession()

	s.mu.Lock()
	s.evictIdleLocked()
	s.sessions[id] = &entry{session: sess, lastUsed: s.now()}
	s.mu.Unlock()

	log.Info("session created", "session", id)
	return c.JSON(http.StatusCreated, stateResponse(id, sess.Snapshot()))
}

// evictIdleLocked drops sessions unused for longer than the idle timeout.
// Sessions with a stage in flight are kept.
func (s *Server) evictIdleLocked() {
	if s.idleTimeout <= 0 {
		return
	}
	cutoff := s.now().Add(-s.idleTimeout)
	for id, e := range s.sessions {
		if e.lastUsed.After(cutoff) || e.session.Snapshot().Operation != workflow.OpNone {
			continue
		}
		e.session.Reset()
		delete(s.sessions, id)
		log.Info("session expired", "session", id)
	}
}

func (s *Server) getSession(c echo.Context) error {
	return respond(c, nil)
}

func (s *Server) deleteSession(c echo.Context) error {
	id := c.Param("id")
	session(c).Reset()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	log.Info("session deleted", "session", id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) reset(c echo.Context) error {
	session(c).Reset()
	return respond(c, nil)
}

func (s *Server) loadOwners(c echo.Context) error {
	_, err := session(c).LoadOwners(c.Request().Context())
	return respond(c, err)
}

type loadRepositoriesRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) loadRepositories(c echo.Context) error {
	var req loadRepositoriesRequest
	if err := c.Bind(&req); err != nil || req.Owner == "" {
		return badRequest(c, "owner is required")
	}

	sess := session(c)
	owner, ok := findOwner(sess.Snapshot().Owners, req.Owner)
	if !ok {
		return writeError(c, &workflow.PreconditionError{Scope: workflow.ScopeRepositories, Reason: "owner " + req.Owner + " is not loaded"})
	}
	_, err := sess.LoadRepositories(c.Request().Context(), owner)
	return respond(c, err)
}

func findOwner(owners []github.Owner, login string) (github.Owner, bool) {
	for _, o := range owners {
		if strings.EqualFold(o.Login, login) {
			return o, true
		}
	}
	return github.Owner{}, false
}

type selectRepositoryRequest struct {
	FullName string `json:"full_name"`
}

func (s *Server) selectRepository(c echo.Context) error {
	var req selectRepositoryRequest
	if err := c.Bind(&req); err != nil || req.FullName == "" {
		return badRequest(c, "full_name is required")
	}

	sess := session(c)
	var repo *github.Repository
	for _, r := range sess.Snapshot().Repositories {
		if strings.EqualFold(r.FullName, req.FullName) {
			repo = &r
			break
		}
	}
	if repo == nil {
		return writeError(c, &workflow.PreconditionError{Scope: workflow.ScopeRepositories, Reason: "repository " + req.FullName + " is not loaded"})
	}
	return respond(c, sess.SelectRepository(c.Request().Context(), *repo))
}

func (s *Server) reloadBranches(c echo.Context) error {
	return respond(c, session(c).ReloadBranches(c.Request().Context()))
}

type selectBranchesRequest struct {
	Base string `json:"base"`
	Head string `json:"head"`
}

func (s *Server) selectBranches(c echo.Context) error {
	var req selectBranchesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	return respond(c, session(c).SelectBranches(req.Base, req.Head))
}

func (s *Server) fetchCommits(c echo.Context) error {
	return respond(c, session(c).FetchCommits(c.Request().Context()))
}

func (s *Server) generateDraft(c echo.Context) error {
	return respond(c, session(c).GenerateDraft(c.Request().Context()))
}

type editDraftRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) editDraft(c echo.Context) error {
	var req editDraftRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}
	return respond(c, session(c).EditDraft(req.Title, req.Description))
}

func (s *Server) submit(c echo.Context) error {
	_, err := session(c).Submit(c.Request().Context())
	return respond(c, err)
}

type resumeRequest struct {
	workflow.ResumeParams
	Link string `json:"link"`
}

func (s *Server) resume(c echo.Context) error {
	var req resumeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err.Error())
	}

	params := req.ResumeParams
	if req.Link != "" {
		parsed, err := workflow.ParseResumeLink(req.Link)
		if err != nil {
			return badRequest(c, err.Error())
		}
		params = parsed
	}
	if !params.Complete() {
		return badRequest(c, "repository, base and head are required")
	}
	return respond(c, session(c).Resume(c.Request().Context(), params))
}

type linkResponse struct {
	Link string `json:"link"`
}

func (s *Server) link(c echo.Context) error {
	st := session(c).Snapshot()
	if st.Repository == nil || st.BaseBranch == "" || st.HeadBranch == "" {
		return writeError(c, &workflow.PreconditionError{Scope: workflow.ScopeSelect, Reason: "repository and both branches must be selected"})
	}

	base := c.QueryParam("base_url")
	if base == "" {
		base = s.linkBase
	}
	link, err := workflow.BuildResumeLink(base, workflow.ResumeParams{
		Repository: st.Repository.FullName,
		Base:       st.BaseBranch,
		Head:       st.HeadBranch,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, linkResponse{Link: link})
}
