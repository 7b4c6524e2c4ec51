package server

import (
	"net/http"

	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/upstream"
)

// SessionHandler returns the current session. Legacy mode proxies the
// upstream session endpoint with the inbound cookies; oauth and mock are
// answered in-process from the session store.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch s.mode {
		case authmode.ModeLegacy:
			s.proxySession(w, r)
		case authmode.ModeOAuth:
			s.localSession(w, r)
		case authmode.ModeMock:
			// The mock backend has no session endpoint to proxy.
			writeAuthError(w, autherr.New(autherr.CodeTokenInvalid, "no session endpoint in mock mode"))
		default:
			writeAuthError(w, autherr.Newf(autherr.CodeConfiguration, "unhandled auth mode %q", s.mode))
		}
	}
}

func (s *Server) proxySession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.legacy.Forward(r.Context(), http.MethodGet, s.config.GetLegacySessionPath(), nil, "", r)
	if err != nil {
		writeError(w, err)
		return
	}

	upstream.RelaySetCookies(w, resp.SetCookies)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (s *Server) localSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		writeAuthError(w, autherr.New(autherr.CodeTokenInvalid, "no session cookie"))
		return
	}

	sess, err := s.sessions.Require(r.Context(), cookie.Value)
	if err != nil {
		// Fatal or expired sessions force re-authentication.
		if code := autherr.CodeOf(err); code == autherr.CodeTokenExpired {
			s.cookies.Clear(w)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &sess})
}
