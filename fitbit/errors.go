package fitbit

import (
	"errors"
	"fmt"
)

var (
	ErrAuthInProgress  = errors.New("authorization flow is already in progress")
	ErrStateMismatch   = errors.New("authorization callback state does not match")
	ErrMissingCode     = errors.New("authorization failed, no code received")
	ErrMissingClientID = errors.New("client id and client secret are required")
)

// defaultRetryAfter is used when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 3600

type RateLimitError struct {
	RetryAfter int    // Seconds until next request is allowed
	Message    string // Error message from Fitbit API
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded: %s. Try again in %d seconds", e.Message, e.RetryAfter)
}

// APIError is any other non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to download %s: %d %s", e.Endpoint, e.StatusCode, e.Body)
}

// AuthDeniedError is returned when the consent page redirects back with an
// error instead of a code, e.g. when the user presses Deny.
type AuthDeniedError struct {
	Reason      string
	Description string
}

func (e *AuthDeniedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authorization denied: %s", e.Reason)
	}
	return fmt.Sprintf("authorization denied: %s (%s)", e.Reason, e.Description)
}
