package session

import "errors"

var (
	// ErrTokenInvalid is returned when the stored token is not a decodable three-part token
	ErrTokenInvalid = errors.New("session token is malformed")

	// ErrTokenExpired is returned when the stored token's expiry has passed
	ErrTokenExpired = errors.New("session token has expired")

	// ErrAuthenticationFailed is matched by every *AuthError
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrLoginInProgress is returned when a login is attempted while another is outstanding
	ErrLoginInProgress = errors.New("login already in progress")
)

// DefaultLoginMessage is shown when the exchange gives no reason
const DefaultLoginMessage = "Login failed"

// AuthError carries the user-visible reason a login was refused
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthenticationFailed}
	}
	return []error{ErrAuthenticationFailed, e.Err}
}
