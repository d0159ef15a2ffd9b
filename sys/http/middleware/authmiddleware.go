package middleware

import (
	"context"
	"log"
	"net/http"

	"ifc-query-api/res/auth"
	"ifc-query-api/res/cookie"
	"ifc-query-api/res/store"
)

// SESSION GETTERS

type contextKey string

var contextKeyCurrentSession = contextKey("currentSession")

func GetCurrentSession(ctx context.Context) *auth.Session {
	if val := ctx.Value(contextKeyCurrentSession); val != nil {
		if currentSession, ok := val.(*auth.Session); ok {
			return currentSession
		}
	}

	return nil
}

func GetCurrentUser(ctx context.Context) *store.User {
	if session := GetCurrentSession(ctx); session != nil {
		return session.User
	}

	return nil
}

// SESSION MIDDLEWARE

// SessionMiddleware resolves the session cookie into a request-scoped
// session. Requests without a valid session pass through unauthenticated;
// stale or forged cookies are cleared on the way. Only a store outage
// stops the request.
func SessionMiddleware(logger *log.Logger, authenticator *auth.Authenticator, codec *cookie.Codec, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookieValue := readCookie(r, codec.Name(auth.SessionCookieName))
			if cookieValue == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := authenticator.Resolve(r.Context(), cookieValue)
			if err != nil {
				logger.Printf("Session resolution failed: %v", err)
				emitErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
				return
			}

			if session == nil {
				// Dead, expired or forged cookie; drop it.
				ClearSessionCookie(w, codec, secureCookies)
				next.ServeHTTP(w, r)
				return
			}

			stillValid, err := authenticator.Revalidate(r.Context(), session)
			if err != nil {
				// Transient provider trouble; the session stands.
				logger.Printf("Session revalidation deferred: %v", err)
			}
			if !stillValid {
				ClearSessionCookie(w, codec, secureCookies)
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), contextKeyCurrentSession, session))
			next.ServeHTTP(w, r)
		})
	}
}
