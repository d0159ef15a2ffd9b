package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ifc-query-api/res/cookie"
	"ifc-query-api/res/store"
	"ifc-query-api/res/store/postgresql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testClientID    = "test-client-id"
	testSecret      = "test-cookie-secret"
	testRedirectURI = "http://localhost:8080/auth/callback"
)

// providerStub fakes the GitHub token and profile endpoints.
type providerStub struct {
	mu sync.Mutex

	validCode   string
	accessToken string
	profile     map[string]interface{}

	tokenRevoked  bool
	profileStatus int // overrides the profile response when non-zero
}

func (p *providerStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.FormValue("code") != p.validCode {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"bad_verification_code"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": p.accessToken,
			"token_type":   "bearer",
		})
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if p.profileStatus != 0 {
			w.WriteHeader(p.profileStatus)
			return
		}
		if p.tokenRevoked || r.Header.Get("Authorization") != "token "+p.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(p.profile)
	})

	return mux
}

func (p *providerStub) revokeToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRevoked = true
}

func (p *providerStub) setProfileStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profileStatus = status
}

type authFixture struct {
	authenticator *Authenticator
	store         store.Store
	codec         *cookie.Codec
	stub          *providerStub
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	storeInstance := postgresql.New(db)
	require.NoError(t, storeInstance.Migrate(log.New(io.Discard, "", 0)))

	stub := &providerStub{
		validCode:   "validcode",
		accessToken: "abc",
		profile:     map[string]interface{}{"login": "alice", "name": "Alice"},
	}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	provider := NewGitHubWithEndpoints(
		testClientID, "test-client-secret", testRedirectURI,
		server.URL+"/login/oauth/authorize",
		server.URL+"/login/oauth/access_token",
		server.URL,
	)

	codec, err := cookie.New("ifc_query_", testSecret)
	require.NoError(t, err)

	return &authFixture{
		authenticator: NewAuthenticator(log.New(io.Discard, "", 0), storeInstance, provider, codec, testSecret),
		store:         storeInstance,
		codec:         codec,
		stub:          stub,
	}
}

func (f *authFixture) login(t *testing.T) (*Session, string) {
	t.Helper()

	state, err := makeStateToken(testSecret)
	require.NoError(t, err)

	session, cookieValue, err := f.authenticator.HandleCallback(context.Background(), "validcode", state)
	require.NoError(t, err)
	return session, cookieValue
}

// Scenario: no cookie at all.
func TestResolveWithoutCookie(t *testing.T) {
	f := newAuthFixture(t)

	session, err := f.authenticator.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestResolveWithGarbageCookie(t *testing.T) {
	f := newAuthFixture(t)

	session, err := f.authenticator.Resolve(context.Background(), "not-a-sealed-cookie")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestBeginLoginURL(t *testing.T) {
	f := newAuthFixture(t)

	url, err := f.authenticator.BeginLogin()
	require.NoError(t, err)

	assert.Contains(t, url, "client_id="+testClientID)
	assert.Contains(t, url, "redirect_uri=")
	assert.Contains(t, url, "callback")
	assert.Contains(t, url, "scope=read%3Auser")
	assert.Contains(t, url, "state=")
}

func TestHandleCallbackSuccess(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, cookieValue := f.login(t)

	require.NotNil(t, session.User)
	assert.Equal(t, "alice", session.User.Login)
	assert.Equal(t, "Alice", session.User.Name)
	assert.NotEmpty(t, cookieValue)

	// User and session rows are durable.
	user, err := f.store.Users().Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	stored, err := f.store.Sessions().Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UserID)
	assert.Equal(t, "abc", stored.AccessToken)

	// The sealed cookie resolves back to the authenticated user.
	resolved, err := f.authenticator.Resolve(ctx, cookieValue)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "alice", resolved.User.Login)
}

func TestHandleCallbackBadCode(t *testing.T) {
	f := newAuthFixture(t)

	state, err := makeStateToken(testSecret)
	require.NoError(t, err)

	_, _, err = f.authenticator.HandleCallback(context.Background(), "badcode", state)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.NotEmpty(t, authErr.Reason)

	// Nothing was persisted.
	_, err = f.store.Users().Get(context.Background(), "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	f := newAuthFixture(t)

	state, err := makeStateToken(testSecret)
	require.NoError(t, err)

	_, _, err = f.authenticator.HandleCallback(context.Background(), "", state)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestHandleCallbackBadState(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.authenticator.HandleCallback(context.Background(), "validcode", "forged-state")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

// A second callback while already logged in is a fresh login, not an error.
func TestHandleCallbackRepeatedLogin(t *testing.T) {
	f := newAuthFixture(t)

	first, _ := f.login(t)
	second, _ := f.login(t)

	assert.NotEqual(t, first.ID, second.ID)

	// Both sessions are alive; re-login does not revoke earlier ones.
	_, err := f.store.Sessions().Get(context.Background(), first.ID)
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, cookieValue := f.login(t)

	require.NoError(t, f.authenticator.Logout(ctx, session))

	_, err := f.store.Sessions().Get(ctx, session.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	resolved, err := f.authenticator.Resolve(ctx, cookieValue)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// Logging out twice is harmless.
	assert.NoError(t, f.authenticator.Logout(ctx, session))
	assert.NoError(t, f.authenticator.Logout(ctx, nil))
}

func TestResolveExpiredSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, cookieValue := f.login(t)

	db := f.store.GetDB().(*gorm.DB)
	require.NoError(t, db.Exec(`UPDATE sessions SET expires_at = ? WHERE session_id = ?`,
		time.Now().UTC().Add(-time.Minute), session.ID).Error)

	resolved, err := f.authenticator.Resolve(ctx, cookieValue)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestRevalidateWithinIntervalSkipsProvider(t *testing.T) {
	f := newAuthFixture(t)

	session, _ := f.login(t)

	// Token is revoked upstream, but the login just verified it, so the
	// bounded-frequency check does not fire yet.
	f.stub.revokeToken()

	ok, err := f.authenticator.Revalidate(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevalidateRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, _ := f.login(t)

	f.stub.revokeToken()
	f.authenticator.forgetVerified(session.ID) // force the re-check

	ok, err := f.authenticator.Revalidate(ctx, session)
	require.NoError(t, err)
	assert.False(t, ok)

	// Fail closed: the session row is gone.
	_, err = f.store.Sessions().Get(ctx, session.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevalidateTransientProviderError(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, _ := f.login(t)

	f.stub.setProfileStatus(http.StatusInternalServerError)
	f.authenticator.forgetVerified(session.ID)

	ok, err := f.authenticator.Revalidate(ctx, session)
	assert.Error(t, err)
	assert.True(t, ok, "transient provider failure must not log the user out")

	_, err = f.store.Sessions().Get(ctx, session.ID)
	assert.NoError(t, err)
}

func TestResolveOrphanedSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, cookieValue := f.login(t)

	db := f.store.GetDB().(*gorm.DB)
	require.NoError(t, db.Exec(`DELETE FROM users WHERE login = ?`, "alice").Error)

	resolved, err := f.authenticator.Resolve(ctx, cookieValue)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// The orphaned row was cleaned up.
	_, err = f.store.Sessions().Get(ctx, session.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoginAppendsEvent(t *testing.T) {
	f := newAuthFixture(t)

	f.login(t)

	db := f.store.GetDB().(*gorm.DB)
	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM events WHERE event = ? AND "user" = ?`, "login", "alice").Scan(&count).Error)
	assert.EqualValues(t, 1, count)
}
