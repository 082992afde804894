package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the default GitHub API base URL
	DefaultBaseURL = "https://api.github.com"

	// TokenEnv is the environment variable for GitHub token
	TokenEnv = "GITHUB_TOKEN"

	// AltTokenEnv is the token variable used by the gh CLI
	AltTokenEnv = "GH_TOKEN"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the GitHub API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets a custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client. Its transport is wrapped with
// the bearer token source, so recorders and test servers see authenticated requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimitTracking enables rate limit tracking
func WithRateLimitTracking(enabled bool) ClientOption {
	return func(c *Client) {
		if enabled && c.rateLimitTracker == nil {
			c.rateLimitTracker = NewRateLimitTracker()
		}
	}
}

// Client is the repository host client used by the directory resolver,
// the branch and commit fetcher and the pull request submitter.
//
// All calls go through a lazily built go-github client authenticated with
// an oauth2 static token source. Errors returned by the host are normalized
// into *APIError.
//
// Example:
//
//	client := github.NewClient(token, github.WithRateLimitTracking(true))
//	owners, err := client.ListOwners(ctx)
type Client struct {
	token            string
	baseURL          string
	httpClient       *http.Client
	timeout          time.Duration
	rateLimitTracker *RateLimitTracker

	mu           sync.Mutex
	githubClient *github.Client // Lazy-loaded go-github client
}

// NewClient creates a new GitHub API client with the given token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:      token,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromEnv creates a new client using token from environment variables
func NewClientFromEnv(opts ...ClientOption) (*Client, error) {
	token := TokenFromEnv()
	if token == "" {
		return nil, fmt.Errorf("%s or %s environment variable is required", TokenEnv, AltTokenEnv)
	}

	return NewClient(token, opts...), nil
}

// TokenFromEnv returns the first non-empty token variable.
func TokenFromEnv() string {
	if token := os.Getenv(TokenEnv); token != "" {
		return token
	}
	return os.Getenv(AltTokenEnv)
}

// GetRateLimitStatus returns the current rate limit status
func (c *Client) GetRateLimitStatus() RateLimitStatus {
	if c.rateLimitTracker == nil {
		return RateLimitStatus{}
	}
	return c.rateLimitTracker.GetStatus()
}

// GitHubClient returns the underlying go-github client (lazy-loaded)
func (c *Client) GitHubClient() *github.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.githubClient != nil {
		return c.githubClient
	}

	base := c.httpClient
	if base == nil {
		base = &http.Client{}
	}

	var httpClient *http.Client
	if c.token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token})
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		// Copy so the timeout never leaks into the caller's client
		hc := *base
		httpClient = &hc
	}
	httpClient.Timeout = c.timeout

	gh := github.NewClient(httpClient)

	// Custom base URL for GitHub Enterprise or test servers
	if c.baseURL != "" && c.baseURL != DefaultBaseURL {
		baseURL := c.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		if parsed, err := url.Parse(baseURL); err == nil {
			gh.BaseURL = parsed
		}
	}

	c.githubClient = gh
	return c.githubClient
}

// track records rate limit headers from a completed call.
func (c *Client) track(resp *github.Response) {
	if c.rateLimitTracker == nil || resp == nil || resp.Response == nil {
		return
	}
	c.rateLimitTracker.Update(resp.Response)
}
