// Package preflight checks that prgen can reach its upstreams before a run.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/holon-run/prgen/pkg/github"
	"github.com/holon-run/prgen/pkg/log"
)

// CheckLevel represents the severity level of a preflight check
type CheckLevel int

const (
	// LevelError indicates a failure that prevents the workflow from running
	LevelError CheckLevel = iota
	// LevelWarn indicates a problem that may surface later
	LevelWarn
	// LevelInfo indicates informational output
	LevelInfo
)

func (l CheckLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	default:
		return "ok"
	}
}

// CheckResult represents the result of a single preflight check
type CheckResult struct {
	Name    string     // Check name
	Level   CheckLevel // Severity level
	Message string     // Human-readable message
	Error   error      // Underlying error (if any)
}

// Check represents a single preflight check
type Check interface {
	// Name returns the check name
	Name() string
	// Run executes the check and returns a CheckResult
	Run(ctx context.Context) CheckResult
}

// Checker runs a collection of preflight checks in order
type Checker struct {
	checks []Check
}

// NewChecker creates a checker running checks in the given order
func NewChecker(checks ...Check) *Checker {
	return &Checker{checks: checks}
}

// Run executes all checks. It returns every result and an error listing
// the checks that failed at LevelError.
func (c *Checker) Run(ctx context.Context) ([]CheckResult, error) {
	log.Progress("running preflight checks")

	results := make([]CheckResult, 0, len(c.checks))
	var failures []string
	for _, check := range c.checks {
		result := check.Run(ctx)
		results = append(results, result)

		switch result.Level {
		case LevelError:
			log.Error("preflight check failed", "check", result.Name, "message", result.Message)
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Message))
		case LevelWarn:
			log.Warn("preflight check warning", "check", result.Name, "message", result.Message)
		default:
			log.Debug("preflight check", "check", result.Name, "message", result.Message)
		}
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("preflight checks failed:\n  - %s", strings.Join(failures, "\n  - "))
	}
	log.Progress("preflight checks passed")
	return results, nil
}

// ConfigCheck reports which config file is in effect
type ConfigCheck struct {
	Path string
}

func (c *ConfigCheck) Name() string {
	return "config"
}

func (c *ConfigCheck) Run(ctx context.Context) CheckResult {
	if c.Path == "" {
		return CheckResult{Name: c.Name(), Level: LevelInfo, Message: "no config file; using flags, environment and defaults"}
	}
	return CheckResult{Name: c.Name(), Level: LevelInfo, Message: "using " + c.Path}
}

// GitHubTokenCheck checks that a GitHub token was resolved
type GitHubTokenCheck struct {
	Token  string
	Source string // where the token came from, e.g. "env"
}

func (c *GitHubTokenCheck) Name() string {
	return "github-token"
}

func (c *GitHubTokenCheck) Run(ctx context.Context) CheckResult {
	if strings.TrimSpace(c.Token) == "" {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("GitHub token not found. Set %s or %s, pass --github-token, or run 'prgen config set github.token <token>'", github.TokenEnv, github.AltTokenEnv),
			Error:   fmt.Errorf("no GitHub token found"),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("GitHub token available (from %s)", c.Source),
	}
}

// Identity is the part of the GitHub client the auth check needs
type Identity interface {
	CurrentUser(ctx context.Context) (*github.Identity, error)
	GetRateLimitStatus() github.RateLimitStatus
}

// lowRemaining is the remaining-quota threshold that triggers a warning
const lowRemaining = 100

// GitHubAuthCheck checks that the token authenticates and reports the quota
type GitHubAuthCheck struct {
	Client Identity
}

func (c *GitHubAuthCheck) Name() string {
	return "github-auth"
}

func (c *GitHubAuthCheck) Run(ctx context.Context) CheckResult {
	if c.Client == nil {
		return CheckResult{Name: c.Name(), Level: LevelWarn, Message: "skipped: no GitHub client"}
	}

	user, err := c.Client.CurrentUser(ctx)
	if err != nil {
		msg := "GitHub rejected the request: " + err.Error()
		if github.IsAuthenticationError(err) {
			msg = "GitHub token is invalid or expired"
		}
		return CheckResult{Name: c.Name(), Level: LevelError, Message: msg, Error: err}
	}

	status := c.Client.GetRateLimitStatus()
	if status.Observed && status.Remaining < lowRemaining {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: fmt.Sprintf("authenticated as %s, but only %d/%d requests remain until %s", user.Login, status.Remaining, status.Limit, status.Reset.Format(time.Kitchen)),
		}
	}
	msg := "authenticated as " + user.Login
	if status.Observed {
		msg += fmt.Sprintf(" (%d/%d requests remaining)", status.Remaining, status.Limit)
	}
	return CheckResult{Name: c.Name(), Level: LevelInfo, Message: msg}
}

// ChatBackendCheck performs a best-effort reachability check of the
// chat completion backend by listing its models
type ChatBackendCheck struct {
	URL    string
	APIKey string
	Model  string
	// Client defaults to an http.Client with a 5s timeout
	Client *http.Client
}

func (c *ChatBackendCheck) Name() string {
	return "chat-backend"
}

func (c *ChatBackendCheck) Run(ctx context.Context) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := strings.TrimRight(c.URL, "/") + "/models"
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CheckResult{Name: c.Name(), Level: LevelWarn, Message: "invalid chat backend URL " + c.URL, Error: err}
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: fmt.Sprintf("chat backend at %s is unreachable; draft generation will fail", c.URL),
			Error:   err,
		}
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		log.Debug("failed to drain response body", "error", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("chat backend rejected the API key (HTTP %d)", resp.StatusCode),
			Error:   fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: fmt.Sprintf("chat backend returned unexpected status: %d", resp.StatusCode),
			Error:   fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("chat backend reachable at %s (model %s)", c.URL, c.Model),
	}
}
