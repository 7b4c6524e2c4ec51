package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/session"
)

// LogoutHandler revokes the session's refresh token upstream, deletes
// the stored session, and clears the cookie. Logout always succeeds from
// the caller's point of view.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if err := s.sessions.SignOut(r.Context(), cookie.Value); err != nil {
				log.Err(err).Msg("sign-out")
			}
		}

		s.cookies.Clear(w)
		writeJSON(w, http.StatusOK, loginResponse{Success: true})
	}
}
