package github

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Repository ref patterns:
	// - owner/repo
	// - owner/repo:branch
	// - https://github.com/owner/repo(.git)
	repoRefPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]+)(?::(.+))?$`)
	repoURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// RepoRef is a parsed repository reference
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string // Optional, from owner/repo:branch
}

// ParseRepoRef parses a repository reference.
// Supported formats:
//   - owner/repo
//   - owner/repo:branch
//   - https://github.com/owner/repo
func ParseRepoRef(target string) (*RepoRef, error) {
	target = strings.TrimSpace(target)

	if matches := repoURLPattern.FindStringSubmatch(target); matches != nil {
		return &RepoRef{Owner: matches[1], Repo: matches[2]}, nil
	}

	if matches := repoRefPattern.FindStringSubmatch(target); matches != nil {
		return &RepoRef{
			Owner:  matches[1],
			Repo:   matches[2],
			Branch: matches[3],
		}, nil
	}

	return nil, fmt.Errorf("invalid repository reference: %q (expected owner/repo, owner/repo:branch, or a repository URL)", target)
}

// String returns the string representation of the reference
func (r *RepoRef) String() string {
	if r.Branch != "" {
		return fmt.Sprintf("%s/%s:%s", r.Owner, r.Repo, r.Branch)
	}
	return fmt.Sprintf("%s/%s", r.Owner, r.Repo)
}

// SplitFullName splits "owner/name" into its parts. A bare name yields an
// empty owner.
func SplitFullName(fullName string) (owner, name string) {
	if i := strings.Index(fullName, "/"); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}
