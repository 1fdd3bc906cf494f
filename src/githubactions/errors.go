package githubactions

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidURL  = errors.New("invalid GitHub Actions URL")
	ErrAuthFailed  = errors.New("authentication failed")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

// APIError is returned for any non-200 response from the GitHub API.
type APIError struct {
	StatusCode         int
	Body               string
	RateLimitRemaining string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error %d: %s", e.StatusCode, e.Body)
}

// Is lets callers match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests ||
			(e.StatusCode == http.StatusForbidden && e.RateLimitRemaining == "0")
	}
	return false
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return &UserError{
			Message: "Invalid workflow run URL",
			Hint:    "Expected https://github.com/owner/repo/actions/runs/123 or a numeric run ID",
			Err:     err,
		}
	case errors.Is(err, ErrAuthFailed):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that GITHUB_TOKEN is valid and can read Actions data for the repository.",
			Err:     err,
		}
	case errors.Is(err, ErrNotFound):
		return &UserError{
			Message: "Not found",
			Hint:    "Check the repository (BENCH_REPO), workflow ID and run ID, and that the token has access.",
			Err:     err,
		}
	case errors.Is(err, ErrRateLimited):
		return &UserError{
			Message: "GitHub API rate limit exceeded",
			Hint:    "Wait for the rate limit window to reset or use a token with a higher quota.",
			Err:     err,
		}
	}

	return err
}
