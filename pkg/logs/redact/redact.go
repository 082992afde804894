// Package redact scrubs credentials out of text before it reaches logs or terminal output.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultReplacement = "***REDACTED***"

var (
	headerPattern = regexp.MustCompile(`(?i)\b(Authorization|X-API-Key|Proxy-Authorization)\s*:\s*[^\n\r,"]+`)
	bearerPattern = regexp.MustCompile(`(?i)\b(Bearer|token)\s+[A-Za-z0-9_\-\.=]{8,}`)
	queryPattern  = regexp.MustCompile(`([?&])(token|key|api_key|access_token|client_secret)=[^&\s#'"]+`)

	// GitHub tokens and OpenAI-style keys
	prefixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`),
	}
)

// Redactor replaces known secrets and secret-shaped substrings.
type Redactor struct {
	secrets     []string
	replacement string
}

// New creates a Redactor that additionally hides the given literal secrets.
// Empty and very short values are ignored so they cannot blank out ordinary text.
func New(secrets ...string) *Redactor {
	r := &Redactor{replacement: defaultReplacement}
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if len(s) >= 4 {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// String redacts sensitive content from s.
func (r *Redactor) String(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, r.replacement)
	}
	s = headerPattern.ReplaceAllString(s, fmt.Sprintf("$1: %s", r.replacement))
	s = bearerPattern.ReplaceAllString(s, fmt.Sprintf("$1 %s", r.replacement))
	s = queryPattern.ReplaceAllString(s, fmt.Sprintf("$1$2=%s", r.replacement))
	for _, re := range prefixPatterns {
		s = re.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Mask shows only the first four characters of a secret, for display in config listings.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8)
}
