package session

import (
	"net/http"
	"time"
)

// CookieName is the gateway session cookie.
const CookieName = "gw_session"

// CookiePolicy applies the session cookie attributes: http-only,
// SameSite=Lax, Secure in production, domain-scoped only in production.
type CookiePolicy struct {
	Production bool
	Domain     string
	MaxAge     time.Duration
}

func (p CookiePolicy) Set(w http.ResponseWriter, sessionID string) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.MaxAge.Seconds()),
	}
	if p.Production {
		cookie.Domain = p.Domain
	}
	http.SetCookie(w, cookie)
}

func (p CookiePolicy) Clear(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
	if p.Production {
		cookie.Domain = p.Domain
	}
	http.SetCookie(w, cookie)
}
