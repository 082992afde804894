package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// defaultRateLimit is the authenticated REST quota per hour
const defaultRateLimit = 5000

// RateLimitStatus represents the current rate limit status
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	Used      int       `json:"used"`
	// Observed is false until the first response carried rate limit headers
	Observed bool `json:"observed"`
}

// RateLimitTracker tracks rate limit information from GitHub API responses
type RateLimitTracker struct {
	mu    sync.RWMutex
	limit RateLimitStatus
}

// NewRateLimitTracker creates a new rate limit tracker
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{
		limit: RateLimitStatus{
			Limit: defaultRateLimit,
		},
	}
}

// Update updates the rate limit status from HTTP response headers
func (r *RateLimitTracker) Update(resp *http.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit.Limit = val
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.limit.Remaining = val
			r.limit.Observed = true
		}
	}

	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.limit.Reset = time.Unix(val, 0)
		}
	}

	if used := resp.Header.Get("X-RateLimit-Used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			r.limit.Used = val
		}
	}
}

// GetStatus returns a copy of the current rate limit status
func (r *RateLimitTracker) GetStatus() RateLimitStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limit
}

// Exhausted reports whether the last observed quota is spent and the
// reset time is still in the future relative to now.
func (r *RateLimitTracker) Exhausted(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.limit.Observed || r.limit.Remaining > 0 {
		return false
	}
	if r.limit.Reset.IsZero() {
		return false
	}
	return r.limit.Reset.After(now)
}

// checkRateLimit fails fast, without a network call, when the tracked quota is spent.
func (c *Client) checkRateLimit() error {
	if c.rateLimitTracker == nil || !c.rateLimitTracker.Exhausted(time.Now()) {
		return nil
	}
	status := c.rateLimitTracker.GetStatus()
	return &APIError{
		StatusCode: http.StatusForbidden,
		Message:    "API rate limit exhausted until " + status.Reset.Format(time.RFC3339),
		RateLimit: &RateLimitInfo{
			Limit:     status.Limit,
			Remaining: status.Remaining,
			Reset:     status.Reset.Unix(),
		},
	}
}
