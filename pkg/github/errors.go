package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v68/github"
)

// APIError represents a GitHub API error response
type APIError struct {
	StatusCode       int
	Message          string
	DocumentationURL string
	Errors           []APIErrorDetail
	// Rate limit information when rate limited
	RateLimit *RateLimitInfo
	// RetryAfter is the wait requested by a secondary rate limit
	RetryAfter time.Duration
}

// APIErrorDetail represents individual error details from GitHub
type APIErrorDetail struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// RateLimitInfo contains rate limit information from response headers
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Reset     int64 // Unix timestamp
}

// Error returns the error message
func (e *APIError) Error() string {
	msg := e.Message
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Errors[0].Message)
	}
	if msg != "" {
		return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
}

// IsRateLimitError returns true if the error is a rate limit error
func IsRateLimitError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return apiErr.StatusCode == http.StatusForbidden && apiErr.RateLimit != nil
}

// IsNotFoundError returns true if the error is a not found error
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthenticationError returns true if the error is an authentication error
func IsAuthenticationError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	// Rate limit errors are not auth errors
	if IsRateLimitError(err) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.StatusCode == http.StatusForbidden
}

// wrapError normalizes go-github errors into *APIError.
// Transport failures (no HTTP response) are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		apiErr := &APIError{
			StatusCode: http.StatusForbidden,
			Message:    rateErr.Message,
			RateLimit: &RateLimitInfo{
				Limit:     rateErr.Rate.Limit,
				Remaining: rateErr.Rate.Remaining,
				Reset:     rateErr.Rate.Reset.Unix(),
			},
		}
		if rateErr.Response != nil {
			apiErr.StatusCode = rateErr.Response.StatusCode
		}
		return apiErr
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		// GitHub answers secondary limits with 403; report 429 so the
		// error is never classified as an authentication failure
		apiErr := &APIError{
			StatusCode: http.StatusTooManyRequests,
			Message:    abuseErr.Message,
		}
		if abuseErr.RetryAfter != nil {
			apiErr.RetryAfter = *abuseErr.RetryAfter
		}
		return apiErr
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		apiErr := &APIError{
			Message:          respErr.Message,
			DocumentationURL: respErr.DocumentationURL,
		}
		if respErr.Response != nil {
			apiErr.StatusCode = respErr.Response.StatusCode
		}
		for _, e := range respErr.Errors {
			apiErr.Errors = append(apiErr.Errors, APIErrorDetail{
				Resource: e.Resource,
				Field:    e.Field,
				Code:     e.Code,
				Message:  e.Message,
			})
		}
		return apiErr
	}

	return err
}
