package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch means the callback state is absent or differs from the
	// one issued for this session: a forged or expired flow.
	ErrStateMismatch = errors.New("oauth2 state mismatch")
	// ErrTokenExchange means the provider rejected the authorization code.
	ErrTokenExchange = errors.New("oauth2 token exchange failed")
	// ErrProfileFetch means the user-info endpoint answered with an error.
	ErrProfileFetch = errors.New("profile fetch failed")
	// ErrMalformedResponse means the user-info body was not the expected envelope.
	ErrMalformedResponse = errors.New("malformed profile response")
)

// Authorization is one in-flight authorization attempt. URL is where the user
// agent is sent; State (and Verifier when PKCE is on) must be kept with the
// session until the callback arrives, and used once.
type Authorization struct {
	URL      string
	State    string
	Verifier string
}

// APIError is the error body returned by the provider's REST API.
type APIError struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ProfileFetchError carries the status and parsed error body of a failed
// user-info request.
type ProfileFetchError struct {
	StatusCode int
	Body       APIError
}

func (e *ProfileFetchError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", ErrProfileFetch, e.StatusCode, e.Body.Message)
	}
	return fmt.Sprintf("%s: status %d", ErrProfileFetch, e.StatusCode)
}

func (e *ProfileFetchError) Is(target error) bool {
	return target == ErrProfileFetch
}
