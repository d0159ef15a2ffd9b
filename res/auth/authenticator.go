package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ifc-query-api/res/cookie"
	"ifc-query-api/res/store"
)

// Session is the request-scoped authenticated state. It is rebuilt from
// the store on every request; no per-request state outlives the request
// except through the store and the revalidation clock.
type Session struct {
	ID          string
	User        *store.User
	AccessToken string
}

// Authenticator reconciles the cookie, the session store and the OAuth
// provider into a single answer per request: authenticated as whom, or
// not at all. All lookup misses collapse into the unauthenticated result;
// only transient store/provider failures surface as errors.
type Authenticator struct {
	logger *log.Logger

	store    store.Store
	provider Provider
	codec    *cookie.Codec

	stateSecret string

	mu           sync.Mutex
	lastVerified map[string]time.Time
}

func NewAuthenticator(logger *log.Logger, storeImpl store.Store, provider Provider, codec *cookie.Codec, stateSecret string) *Authenticator {
	return &Authenticator{
		logger:       logger,
		store:        storeImpl,
		provider:     provider,
		codec:        codec,
		stateSecret:  stateSecret,
		lastVerified: make(map[string]time.Time),
	}
}

// Resolve maps an incoming cookie value to a live session. It returns
// (nil, nil) for every dead-cookie shape alike -- absent, forged, expired
// cookie, unknown or expired session -- so the caller knows to clear the
// cookie; a non-nil error is a transient store failure and must not be
// treated as "logged out".
func (a *Authenticator) Resolve(ctx context.Context, cookieValue string) (*Session, error) {
	if cookieValue == "" {
		return nil, nil
	}

	var sessionID string
	if !a.codec.Open(cookieValue, &sessionID) || sessionID == "" {
		return nil, nil
	}

	session, err := a.store.Sessions().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	user, err := a.store.Users().Get(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// Session row without its user is unrecoverable; drop it.
		if delErr := a.store.Sessions().Delete(ctx, session.ID); delErr != nil {
			a.logger.Printf("Failed to delete orphaned session: %v", delErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return &Session{ID: session.ID, User: user, AccessToken: session.AccessToken}, nil
}

// BeginLogin returns the provider authorize URL carrying the client id,
// redirect URI and a signed state token.
func (a *Authenticator) BeginLogin() (string, error) {
	state, err := makeStateToken(a.stateSecret)
	if err != nil {
		return "", fmt.Errorf("failed to create login state: %w", err)
	}

	return a.provider.AuthCodeURL(state), nil
}

// HandleCallback runs the full login transition: verify state, exchange
// the code, fetch the profile, upsert the user, create the session and
// seal a fresh cookie value. A callback arriving while the caller already
// holds a valid session is simply a fresh login. Provider-side failures
// come back as *AuthError; the user has to re-initiate login.
func (a *Authenticator) HandleCallback(ctx context.Context, code, state string) (*Session, string, error) {
	if code == "" {
		return nil, "", &AuthError{Reason: "missing authorization code"}
	}
	if err := verifyStateToken(a.stateSecret, state); err != nil {
		return nil, "", &AuthError{Reason: "invalid or expired login state", Err: err}
	}

	accessToken, err := a.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", &AuthError{Reason: "code exchange was rejected by the provider", Err: err}
	}

	profile, err := a.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, "", &AuthError{Reason: "could not fetch the user profile", Err: err}
	}

	user, err := a.store.Users().Upsert(ctx, profile.Login, profile.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store user %s: %w", profile.Login, err)
	}

	session, err := a.store.Sessions().Create(ctx, user.Login, accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	cookieValue, err := a.codec.Seal(session.ID, store.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to seal session cookie: %w", err)
	}

	a.markVerified(session.ID)
	a.appendEvent(ctx, "login", user.Login, nil)

	return &Session{ID: session.ID, User: user, AccessToken: accessToken}, cookieValue, nil
}

// Logout deletes the session row; deleting an already-gone session is a
// no-op. The caller clears the cookie.
func (a *Authenticator) Logout(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}

	if err := a.store.Sessions().Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	a.forgetVerified(session.ID)
	a.appendEvent(ctx, "logout", session.User.Login, nil)

	return nil
}

// Revalidate re-checks a session's access token against the provider at
// most once per RevalidateInterval. A rejected token kills the session
// (returns false); a transient provider failure leaves it alone.
func (a *Authenticator) Revalidate(ctx context.Context, session *Session) (bool, error) {
	if session == nil {
		return false, nil
	}
	if !a.dueForVerification(session.ID) {
		return true, nil
	}

	profile, err := a.provider.FetchProfile(ctx, session.AccessToken)
	if errors.Is(err, ErrTokenRejected) {
		if delErr := a.store.Sessions().Delete(ctx, session.ID); delErr != nil {
			a.logger.Printf("Failed to delete revoked session: %v", delErr)
		}
		a.forgetVerified(session.ID)
		a.appendEvent(ctx, "session_revoked", session.User.Login, nil)
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("provider re-check failed: %w", err)
	}

	// Keep the directory record fresh while we have a live profile.
	if _, err := a.store.Users().Upsert(ctx, profile.Login, profile.Name); err != nil {
		a.logger.Printf("Failed to refresh user %s: %v", profile.Login, err)
	}

	a.markVerified(session.ID)
	return true, nil
}

// REVALIDATION CLOCK

func (a *Authenticator) dueForVerification(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, ok := a.lastVerified[sessionID]
	return !ok || time.Since(last) >= RevalidateInterval
}

func (a *Authenticator) markVerified(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Keep the process-local clock bounded; dropped entries just cause an
	// earlier-than-needed re-check.
	if len(a.lastVerified) > 4096 {
		for id, last := range a.lastVerified {
			if time.Since(last) >= RevalidateInterval {
				delete(a.lastVerified, id)
			}
		}
	}

	a.lastVerified[sessionID] = time.Now()
}

func (a *Authenticator) forgetVerified(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastVerified, sessionID)
}

func (a *Authenticator) appendEvent(ctx context.Context, event, user string, properties map[string]interface{}) {
	if err := a.store.Events().Append(ctx, event, user, properties); err != nil {
		a.logger.Printf("Failed to append %s event: %v", event, err)
	}
}
