package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderClientID = "X-Client-ID"
	CookieClientID = "client_id"

	clientCookieTTL = 24 * 30 * time.Hour
)

// GetClientID resolves the identity used to join rooms: the X-Client-ID header
// first, then the client_id cookie. When neither is present a new id is
// issued and remembered in the cookie.
func GetClientID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderClientID)); id != "" {
		return id
	}

	if cookie, err := r.Cookie(CookieClientID); err == nil {
		if id := strings.TrimSpace(cookie.Value); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	setClientIDCookie(id, w)
	return id
}

func setClientIDCookie(clientID string, w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieClientID,
		Value:    clientID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(clientCookieTTL),
	})
}
