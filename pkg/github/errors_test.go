package github

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
)

// TestAPIError_Error tests error message formatting
func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *APIError
		wantMsg string
	}{
		{
			name: "error with message",
			err: &APIError{
				StatusCode: 404,
				Message:    "Not found",
			},
			wantMsg: "GitHub API error (status 404): Not found",
		},
		{
			name: "error without message",
			err: &APIError{
				StatusCode: 500,
			},
			wantMsg: "GitHub API error (status 500)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.wantMsg {
				t.Errorf("APIError.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}

// TestIsRateLimitError tests rate limit error detection
func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "429 too many requests",
			err: &APIError{
				StatusCode: http.StatusTooManyRequests,
			},
			want: true,
		},
		{
			name: "403 with rate limit info",
			err: &APIError{
				StatusCode: http.StatusForbidden,
				RateLimit: &RateLimitInfo{
					Limit:     5000,
					Remaining: 0,
					Reset:     1234567890,
				},
			},
			want: true,
		},
		{
			name: "403 without rate limit info",
			err: &APIError{
				StatusCode: http.StatusForbidden,
			},
			want: false,
		},
		{
			name: "404 not found",
			err: &APIError{
				StatusCode: http.StatusNotFound,
			},
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsRateLimitError(tt.err)
			if got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestIsNotFoundError tests not found error detection
func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "404 not found",
			err: &APIError{
				StatusCode: http.StatusNotFound,
			},
			want: true,
		},
		{
			name: "403 forbidden",
			err: &APIError{
				StatusCode: http.StatusForbidden,
			},
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "non-APIError",
			err:  &testError{msg: "not an API error"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotFoundError(tt.err)
			if got != tt.want {
				t.Errorf("IsNotFoundError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestIsAuthenticationError tests authentication error detection
func TestIsAuthenticationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "401 unauthorized",
			err: &APIError{
				StatusCode: http.StatusUnauthorized,
			},
			want: true,
		},
		{
			name: "403 forbidden without rate limit",
			err: &APIError{
				StatusCode: http.StatusForbidden,
			},
			want: true,
		},
		{
			name: "403 with rate limit info",
			err: &APIError{
				StatusCode: http.StatusForbidden,
				RateLimit: &RateLimitInfo{
					Limit:     5000,
					Remaining: 0,
				},
			},
			want: false,
		},
		{
			name: "404 not found",
			err: &APIError{
				StatusCode: http.StatusNotFound,
			},
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsAuthenticationError(tt.err)
			if got != tt.want {
				t.Errorf("IsAuthenticationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestWrapError tests normalization of go-github errors
func TestWrapError(t *testing.T) {
	notFound := &github.ErrorResponse{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  "Not Found",
	}
	validation := &github.ErrorResponse{
		Response:         &http.Response{StatusCode: http.StatusUnprocessableEntity},
		Message:          "Validation Failed",
		DocumentationURL: "https://docs.github.com/rest/pulls/pulls#create-a-pull-request",
		Errors: []github.Error{
			{Resource: "PullRequest", Code: "custom", Message: "No commits between main and feature-x"},
		},
	}
	rateLimited := &github.RateLimitError{
		Rate:     github.Rate{Limit: 5000, Remaining: 0, Reset: github.Timestamp{Time: time.Unix(1700000000, 0)}},
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  "API rate limit exceeded",
	}
	retryAfter := 30 * time.Second
	abuse := &github.AbuseRateLimitError{
		Response:   &http.Response{StatusCode: http.StatusForbidden},
		Message:    "You have exceeded a secondary rate limit",
		RetryAfter: &retryAfter,
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		check      func(t *testing.T, err error)
	}{
		{
			name:       "not found",
			err:        notFound,
			wantStatus: http.StatusNotFound,
			wantMsg:    "GitHub API error (status 404): Not Found",
			check: func(t *testing.T, err error) {
				if !IsNotFoundError(err) {
					t.Error("expected IsNotFoundError")
				}
			},
		},
		{
			name:       "validation failure keeps details",
			err:        fmt.Errorf("create: %w", validation),
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "GitHub API error (status 422): Validation Failed: No commits between main and feature-x",
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.DocumentationURL == "" {
					t.Error("expected documentation URL to survive wrapping")
				}
			},
		},
		{
			name:       "rate limit",
			err:        rateLimited,
			wantStatus: http.StatusForbidden,
			wantMsg:    "GitHub API error (status 403): API rate limit exceeded",
			check: func(t *testing.T, err error) {
				if !IsRateLimitError(err) {
					t.Error("expected IsRateLimitError")
				}
				if IsAuthenticationError(err) {
					t.Error("rate limit must not be reported as authentication error")
				}
			},
		},
		{
			name:       "secondary rate limit",
			err:        fmt.Errorf("compare: %w", abuse),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "GitHub API error (status 429): You have exceeded a secondary rate limit",
			check: func(t *testing.T, err error) {
				if !IsRateLimitError(err) {
					t.Error("expected IsRateLimitError")
				}
				if IsAuthenticationError(err) {
					t.Error("secondary rate limit must not be reported as authentication error")
				}
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.RetryAfter != retryAfter {
					t.Errorf("RetryAfter = %v, want %v", apiErr.RetryAfter, retryAfter)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(tt.err)
			var apiErr *APIError
			if !errors.As(got, &apiErr) {
				t.Fatalf("wrapError() = %T, want *APIError", got)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %v, want %v", apiErr.StatusCode, tt.wantStatus)
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got.Error(), tt.wantMsg)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}

	t.Run("transport errors pass through", func(t *testing.T) {
		plain := &testError{msg: "connection refused"}
		if got := wrapError(plain); got != plain {
			t.Errorf("wrapError() = %v, want original error", got)
		}
		if wrapError(nil) != nil {
			t.Error("wrapError(nil) should be nil")
		}
	})
}

// testError is a helper for testing error detection
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
