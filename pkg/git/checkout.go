// Package git reads the local checkout so commands can default to the
// repository and branch the user is working in. It wraps system git.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultRemote is the remote consulted for the repository name
const DefaultRemote = "origin"

// ErrNotCheckout is returned when dir is not inside a git work tree
var ErrNotCheckout = errors.New("not a git checkout")

// Checkout describes a local work tree
type Checkout struct {
	// Dir is the top-level directory of the work tree
	Dir string
	// RemoteURL is the fetch URL of DefaultRemote, empty if unset
	RemoteURL string
	// Branch is the current branch, empty when HEAD is detached
	Branch string
}

var (
	// https://host/owner/repo(.git), ssh://git@host(:port)/owner/repo(.git)
	remoteURLPattern = regexp.MustCompile(`^(?:https?|ssh|git)://(?:[^@/]+@)?[^/]+/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// git@host:owner/repo(.git)
	remoteSCPPattern = regexp.MustCompile(`^[^@/]+@[^:/]+:([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// DetectCheckout inspects the work tree containing dir
func DetectCheckout(ctx context.Context, dir string) (*Checkout, error) {
	top, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotCheckout, dir)
	}

	c := &Checkout{Dir: top}
	// A missing remote is not an error; Repository reports it
	c.RemoteURL, _ = run(ctx, dir, "config", "--get", "remote."+DefaultRemote+".url")

	// symbolic-ref also resolves an unborn branch and fails on a detached HEAD
	if branch, err := run(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		c.Branch = branch
	}
	return c, nil
}

// Repository returns "owner/name" parsed from the remote URL
func (c *Checkout) Repository() (string, error) {
	if c.RemoteURL == "" {
		return "", fmt.Errorf("checkout %s has no %s remote", c.Dir, DefaultRemote)
	}
	return ParseRemoteURL(c.RemoteURL)
}

// ParseRemoteURL extracts "owner/name" from an https, ssh or scp-style remote
func ParseRemoteURL(remote string) (string, error) {
	remote = strings.TrimSpace(remote)
	for _, re := range []*regexp.Regexp{remoteURLPattern, remoteSCPPattern} {
		if m := re.FindStringSubmatch(remote); m != nil {
			return m[1] + "/" + m[2], nil
		}
	}
	return "", fmt.Errorf("unrecognized remote URL %q", remote)
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
