package server

import (
	"net/http"

	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/loginflow"
)

// OAuthInitiateHandler starts the redirect flow and sends the browser to
// the provider's authorization endpoint.
func (s *Server) OAuthInitiateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect, err := s.engine.Initiate(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if redirect == nil {
			writeAuthError(w, autherr.Newf(autherr.CodeConfiguration, "mode %q has no redirect flow", s.mode))
			return
		}
		http.Redirect(w, r, redirect.URL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the redirect flow: code exchange, ID
// token verification, and session establishment.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Query for the default response mode, form body for form_post.
		if err := r.ParseForm(); err != nil {
			writeAuthError(w, autherr.Wrap(autherr.CodeOIDCError, err, "parsing callback parameters"))
			return
		}
		result, err := s.engine.HandleCallback(r.Context(), loginflow.CallbackParams{
			State:            r.Form.Get("state"),
			Code:             r.Form.Get("code"),
			Error:            r.Form.Get("error"),
			ErrorDescription: r.Form.Get("error_description"),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if result.Err != nil {
			writeAuthError(w, result.Err)
			return
		}

		sessionID, _, err := s.sessions.Establish(*result.Session)
		if err != nil {
			writeError(w, err)
			return
		}
		s.cookies.Set(w, sessionID)

		target := result.RedirectURL
		if target == "" {
			target = "/"
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}
