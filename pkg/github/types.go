package github

import "time"

// OwnerKind distinguishes the authenticated user from organizations
type OwnerKind string

const (
	// OwnerUser is the authenticated user's own namespace
	OwnerUser OwnerKind = "USER"
	// OwnerOrganization is an organization the user belongs to
	OwnerOrganization OwnerKind = "ORGANIZATION"
)

// UnknownAuthor is used for commits whose author is not linked to an account
const UnknownAuthor = "unknown"

// Owner is a namespace under which repositories live
type Owner struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	AvatarURL string    `json:"avatar_url"`
	Kind      OwnerKind `json:"kind"`
}

// Identity is the authenticated account behind the token
type Identity struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Repository contains the repository fields the workflow needs
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         string    `json:"owner"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	URL           string    `json:"url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Commit is a normalized commit from a branch comparison
type Commit struct {
	ID          string    `json:"id"`
	SHA         string    `json:"sha"`
	Author      string    `json:"author"`
	CommittedAt time.Time `json:"committed_at"`
	Message     string    `json:"message"`
}

// ShortSHA returns the abbreviated commit hash
func (c Commit) ShortSHA() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// Subject returns the first line of the commit message
func (c Commit) Subject() string {
	for i := 0; i < len(c.Message); i++ {
		if c.Message[i] == '\n' {
			return c.Message[:i]
		}
	}
	return c.Message
}

// NewPullRequest contains information for creating a new pull request
type NewPullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

// PullRequest is the confirmation returned after creation
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	State     string    `json:"state"`
	BaseRef   string    `json:"base_ref"`
	HeadRef   string    `json:"head_ref"`
	CreatedAt time.Time `json:"created_at"`
}
