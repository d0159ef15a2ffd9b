package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ifc-query-api/res/auth"
	"ifc-query-api/res/cookie"
	"ifc-query-api/sys/http/middleware"
)

// AuthHandler is the thin HTTP shim over the authenticator: it moves
// cookies and redirects around and renders results, nothing more.
type AuthHandler struct {
	logger *log.Logger

	authenticator *auth.Authenticator
	codec         *cookie.Codec

	secureCookies bool
	postLoginURL  string
}

func NewAuthHandler(logger *log.Logger, authenticator *auth.Authenticator, codec *cookie.Codec, secureCookies bool, postLoginURL string) *AuthHandler {
	if postLoginURL == "" {
		postLoginURL = "/"
	}

	return &AuthHandler{
		logger:        logger,
		authenticator: authenticator,
		codec:         codec,
		secureCookies: secureCookies,
		postLoginURL:  postLoginURL,
	}
}

// Login redirects the browser to the provider's authorize URL.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.authenticator.BeginLogin()
	if err != nil {
		h.logger.Printf("Failed to begin login: %v", err)
		middleware.EmitErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Callback is the provider redirect target. A callback while a session is
// already live is treated as a fresh login and replaces the cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	session, cookieValue, err := h.authenticator.HandleCallback(r.Context(), code, state)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			h.logger.Printf("Login rejected: %s", authErr.Reason)
			middleware.EmitErrorResponse(w, http.StatusUnauthorized, "Authentication failed: "+authErr.Reason+". Please log in again.")
			return
		}

		h.logger.Printf("Login failed: %v", err)
		middleware.EmitErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
		return
	}

	h.logger.Printf("User %s logged in", session.User.Login)
	middleware.SetSessionCookie(w, h.codec, cookieValue, h.secureCookies)
	http.Redirect(w, r, h.postLoginURL, http.StatusFound)
}

// Logout deletes the current session, if any, and clears the cookie either
// way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetCurrentSession(r.Context())

	if err := h.authenticator.Logout(r.Context(), session); err != nil {
		h.logger.Printf("Logout failed: %v", err)
		middleware.EmitErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
		return
	}

	middleware.ClearSessionCookie(w, h.codec, h.secureCookies)
	http.Redirect(w, r, h.postLoginURL, http.StatusFound)
}

// Me reports the authenticated user, or 401 with a login affordance.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetCurrentUser(r.Context())
	if user == nil {
		loginURL, err := h.authenticator.BeginLogin()
		if err != nil {
			middleware.EmitErrorResponse(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please retry")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":     "Not logged in",
			"login_url": loginURL,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"login": user.Login,
		"name":  user.Name,
		"plan":  string(user.Plan),
	})
}
