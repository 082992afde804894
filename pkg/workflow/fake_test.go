package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/holon-run/prgen/pkg/draft"
	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/llm"
)

// gate blocks a fake host method until released
type gate struct {
	started chan struct{}
	release chan struct{}
}

// fakeHost is an in-memory repository host
type fakeHost struct {
	mu       sync.Mutex
	identity github.Identity
	owners   []github.Owner
	repos    map[string][]github.Repository
	branches map[string][]string
	commits  []github.Commit
	errs     map[string]error
	calls    map[string]int
	gates    map[string]*gate
	created  []github.NewPullRequest
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		identity: github.Identity{ID: 1, Login: "alice", Name: "Alice"},
		owners: []github.Owner{
			{ID: 1, Login: "alice", Kind: github.OwnerUser},
			{ID: 10, Login: "acme", Kind: github.OwnerOrganization},
		},
		repos: map[string][]github.Repository{
			"acme":  {acmeAPI()},
			"alice": {{ID: 3, Name: "dotfiles", FullName: "alice/dotfiles", Owner: "alice"}},
		},
		branches: map[string][]string{
			"acme/api":       {"main", "feature-x"},
			"alice/dotfiles": {"main"},
		},
		commits: []github.Commit{
			{ID: "C_2", SHA: "bbbbbbb", Author: "bob", CommittedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Message: "Add tests"},
			{ID: "C_1", SHA: "aaaaaaa", Author: github.UnknownAuthor, CommittedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Message: "Add retry logic"},
		},
		errs:  map[string]error{},
		calls: map[string]int{},
		gates: map[string]*gate{},
	}
}

func acmeAPI() github.Repository {
	return github.Repository{ID: 2, Name: "api", FullName: "acme/api", Owner: "acme", DefaultBranch: "main"}
}

// block makes the next calls to method wait until the returned release is called
func (f *fakeHost) block(method string) (started <-chan struct{}, release func()) {
	g := &gate{started: make(chan struct{}, 16), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[method] = g
	f.mu.Unlock()
	var once sync.Once
	return g.started, func() { once.Do(func() { close(g.release) }) }
}

func (f *fakeHost) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeHost) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeHost) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.errs[method]
	g := f.gates[method]
	f.mu.Unlock()

	if g != nil {
		g.started <- struct{}{}
		<-g.release
	}
	return err
}

func (f *fakeHost) CurrentUser(ctx context.Context) (*github.Identity, error) {
	if err := f.enter("CurrentUser"); err != nil {
		return nil, err
	}
	id := f.identity
	return &id, nil
}

func (f *fakeHost) ListOwners(ctx context.Context) ([]github.Owner, error) {
	if err := f.enter("ListOwners"); err != nil {
		return nil, err
	}
	return append([]github.Owner(nil), f.owners...), nil
}

func (f *fakeHost) ListRepositories(ctx context.Context, owner github.Owner) ([]github.Repository, error) {
	if err := f.enter("ListRepositories"); err != nil {
		return nil, err
	}
	return append([]github.Repository(nil), f.repos[owner.Login]...), nil
}

func (f *fakeHost) GetRepository(ctx context.Context, owner, name string) (*github.Repository, error) {
	if err := f.enter("GetRepository"); err != nil {
		return nil, err
	}
	for _, r := range f.repos[owner] {
		if r.Name == name {
			repo := r
			return &repo, nil
		}
	}
	return nil, &github.APIError{StatusCode: 404, Message: "Not Found"}
}

func (f *fakeHost) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	if err := f.enter("ListBranches"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.branches[owner+"/"+repo]...), nil
}

func (f *fakeHost) Divergence(ctx context.Context, owner, repo, base, head string) ([]github.Commit, error) {
	if err := f.enter("Divergence"); err != nil {
		return nil, err
	}
	return append([]github.Commit(nil), f.commits...), nil
}

func (f *fakeHost) CreatePullRequest(ctx context.Context, owner, repo string, pr github.NewPullRequest) (*github.PullRequest, error) {
	if err := f.enter("CreatePullRequest"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.created = append(f.created, pr)
	number := len(f.created)
	f.mu.Unlock()
	return &github.PullRequest{
		Number:  number,
		Title:   pr.Title,
		URL:     "https://github.com/" + owner + "/" + repo + "/pull/1",
		State:   "open",
		BaseRef: pr.Base,
		HeadRef: pr.Head,
	}, nil
}

// newDrafter builds a real generator over canned backend replies
func newDrafter(replies ...func(llm.Request) (*llm.Response, error)) (*draft.Generator, *llm.MockProvider) {
	mock := &llm.MockProvider{Responses: replies}
	gen, err := draft.NewGenerator(mock)
	if err != nil {
		panic(err)
	}
	return gen, mock
}

const retriesReply = `Sure! {"title":"feat: add retries","description":"- adds retry logic\n- adds tests"} Hope that helps.`
