package github

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// TestNewRateLimitTracker tests rate limit tracker initialization
func TestNewRateLimitTracker(t *testing.T) {
	tracker := NewRateLimitTracker()

	status := tracker.GetStatus()

	if status.Limit != defaultRateLimit {
		t.Errorf("Limit = %v, want %v", status.Limit, defaultRateLimit)
	}

	if status.Remaining != 0 {
		t.Errorf("Remaining = %v, want %v", status.Remaining, 0)
	}
}

// TestRateLimitTracker_Update tests updating rate limit from response headers
func TestRateLimitTracker_Update(t *testing.T) {
	tracker := NewRateLimitTracker()

	// Create a mock response with rate limit headers
	h := make(http.Header)
	h.Add("X-RateLimit-Limit", "5000")
	h.Add("X-RateLimit-Remaining", "4999")
	h.Add("X-RateLimit-Used", "1")
	h.Add("X-RateLimit-Reset", "1234567890")

	resp := &http.Response{
		Header: h,
	}

	tracker.Update(resp)

	status := tracker.GetStatus()

	if status.Limit != 5000 {
		t.Errorf("Limit = %v, want %v", status.Limit, 5000)
	}

	if status.Remaining != 4999 {
		t.Errorf("Remaining = %v, want %v", status.Remaining, 4999)
	}

	if status.Used != 1 {
		t.Errorf("Used = %v, want %v", status.Used, 1)
	}

	expectedReset := time.Unix(1234567890, 0)
	if !status.Reset.Equal(expectedReset) {
		t.Errorf("Reset = %v, want %v", status.Reset, expectedReset)
	}
}

// TestRateLimitTracker_Exhausted tests quota exhaustion detection
func TestRateLimitTracker_Exhausted(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		observed  bool
		remaining int
		reset     time.Time
		want      bool
	}{
		{
			name:      "nothing observed yet",
			observed:  false,
			remaining: 0,
			reset:     now.Add(time.Hour),
			want:      false,
		},
		{
			name:      "remaining requests",
			observed:  true,
			remaining: 100,
			reset:     now.Add(time.Hour),
			want:      false,
		},
		{
			name:      "reset time in past",
			observed:  true,
			remaining: 0,
			reset:     now.Add(-time.Hour),
			want:      false,
		},
		{
			name:      "no reset time",
			observed:  true,
			remaining: 0,
			want:      false,
		},
		{
			name:      "spent until future reset",
			observed:  true,
			remaining: 0,
			reset:     now.Add(time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewRateLimitTracker()
			tracker.mu.Lock()
			tracker.limit.Observed = tt.observed
			tracker.limit.Remaining = tt.remaining
			tracker.limit.Reset = tt.reset
			tracker.mu.Unlock()

			if got := tracker.Exhausted(now); got != tt.want {
				t.Errorf("Exhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestClient_CheckRateLimit tests that a spent quota fails fast
func TestClient_CheckRateLimit(t *testing.T) {
	c := NewClient("token", WithRateLimitTracking(true))
	if err := c.checkRateLimit(); err != nil {
		t.Fatalf("fresh client should not be rate limited: %v", err)
	}

	h := make(http.Header)
	h.Add("X-RateLimit-Remaining", "0")
	h.Add("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
	c.rateLimitTracker.Update(&http.Response{Header: h})

	err := c.checkRateLimit()
	if !IsRateLimitError(err) {
		t.Fatalf("checkRateLimit() = %v, want rate limit error", err)
	}
}

// TestRateLimitStatus_ConcurrentAccess tests concurrent access to rate limit status
func TestRateLimitStatus_ConcurrentAccess(t *testing.T) {
	tracker := NewRateLimitTracker()

	// Simulate concurrent updates
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(iteration int) {
			h := make(http.Header)
			h.Add("X-RateLimit-Limit", "5000")
			h.Add("X-RateLimit-Remaining", fmt.Sprintf("%d", 4900-iteration))
			resp := &http.Response{
				Header: h,
			}
			tracker.Update(resp)
			tracker.GetStatus()
			done <- true
		}(i)
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}

	// If we get here without panic or deadlock, the test passes
	status := tracker.GetStatus()
	if status.Limit == 0 {
		t.Error("Limit should not be zero after updates")
	}
}
