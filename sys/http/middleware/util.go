package middleware

import (
	"fmt"
	"net/http"
	"time"

	"ifc-query-api/res/auth"
	"ifc-query-api/res/cookie"
	"ifc-query-api/res/store"
)

func emitErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")

	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "{\n\t\"error\": %q\n}", errorMsg)
}

// EmitErrorResponse writes a JSON error body; shared with the handlers.
func EmitErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	emitErrorResponse(w, statusCode, errorMsg)
}

// COOKIE PLUMBING

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func SetSessionCookie(w http.ResponseWriter, codec *cookie.Codec, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     codec.Name(auth.SessionCookieName),
		Value:    value,
		Path:     "/",
		MaxAge:   int(store.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, codec *cookie.Codec, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     codec.Name(auth.SessionCookieName),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
