package auth

import (
	"context"
	"errors"
	"time"
)

const (
	// SessionCookieName is the (unprefixed) name of the cookie that holds
	// the sealed session handle. The cookie never carries the provider
	// access token; that stays server-side.
	SessionCookieName = "session_id"

	// RevalidateInterval bounds how often an authenticated session is
	// re-checked against the provider.
	RevalidateInterval = 15 * time.Minute

	StateLifespanInMinutes = 10
)

// ErrTokenRejected means the provider no longer accepts a stored access
// token (revoked or invalidated upstream).
var ErrTokenRejected = errors.New("auth: provider rejected access token")

type Profile struct {
	Login string
	Name  string
}

// Provider is the OAuth authorization-code client. Exchange and
// FetchProfile are the only network-bound steps in the auth flow and must
// be time-bounded by their implementation.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// AuthError is a failed login attempt: the user must re-initiate login,
// nothing is retried automatically. Reason is safe to show to the user.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "authentication failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
