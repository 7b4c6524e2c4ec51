package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/upstream"
)

// switchEnvelope is the upstream reply to a tenant switch.
type switchEnvelope struct {
	Success bool            `json:"success"`
	User    json.RawMessage `json:"user"`
	Message string          `json:"message"`
}

// TenantSwitchHandler re-scopes the current session to another tenant
// the user is a member of. A request for a non-member tenant never
// mutates the session. Callers must treat the prior session as stale
// once the call resolves.
func (s *Server) TenantSwitchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeAuthError(w, autherr.Wrap(autherr.CodeValidationError, err, "parsing tenant id"))
			return
		}

		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			writeAuthError(w, autherr.New(autherr.CodeTokenInvalid, "no session cookie"))
			return
		}
		sess, err := s.sessions.Require(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, err)
			return
		}

		// Membership is checked gateway-side regardless of mode.
		if !sess.HasTenant(tenantID) {
			writeAuthError(w, autherr.Newf(autherr.CodeAccessDenied, "tenant %d is not a membership", tenantID))
			return
		}

		if s.mode == authmode.ModeLegacy {
			s.proxyTenantSwitch(w, r, cookie.Value, sess, tenantID)
			return
		}
		s.localTenantSwitch(w, cookie.Value, sess, tenantID)
	}
}

// localTenantSwitch re-scopes the stored session directly. Used for the
// mock and oauth modes, whose sessions are authoritative gateway-side.
func (s *Server) localTenantSwitch(w http.ResponseWriter, sessionID string, sess session.Session, tenantID int64) {
	if _, err := s.tenants.Get(tenantID); err != nil {
		writeAuthError(w, autherr.Wrap(autherr.CodeAccountNotFound, err, "unknown tenant"))
		return
	}

	sess.TenantID = tenantID
	if err := s.sessions.Update(sessionID, sess); err != nil {
		writeError(w, err)
		return
	}

	s.cookies.Set(w, sessionID)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &sess})
}

// proxyTenantSwitch forwards the switch to the legacy server with the
// inbound cookies and relays its Set-Cookie headers verbatim, in order.
func (s *Server) proxyTenantSwitch(w http.ResponseWriter, r *http.Request, sessionID string, sess session.Session, tenantID int64) {
	path := s.config.GetLegacyTenantSwitchPath() + "/" + strconv.FormatInt(tenantID, 10)
	resp, err := s.legacy.Forward(r.Context(), http.MethodPut, path, nil, "", r)
	if err != nil {
		// Network failure: retryable, no state mutation.
		writeError(w, err)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope switchEnvelope
		_ = json.Unmarshal(resp.Body, &envelope)
		writeAuthError(w, legacyError(resp.StatusCode, envelope.Message))
		return
	}

	var envelope switchEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		writeError(w, autherr.Wrap(autherr.CodeServerError, err, "decoding switch response"))
		return
	}

	updated, err := session.FromLegacyJSON(envelope.User)
	if err != nil {
		writeError(w, autherr.Wrap(autherr.CodeServerError, err, "decoding user document"))
		return
	}
	// Lifecycle stays with the stored session; the upstream document only
	// re-scopes identity fields.
	updated.IssuedAt = sess.IssuedAt
	updated.ExpiresAt = sess.ExpiresAt
	updated.RefreshToken = sess.RefreshToken
	updated.AccessToken = sess.AccessToken
	if err := s.sessions.Update(sessionID, updated); err != nil {
		writeError(w, err)
		return
	}

	upstream.RelaySetCookies(w, resp.SetCookies)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// legacyError maps an upstream status onto the taxonomy for non-2xx
// switch replies.
func legacyError(status int, message string) *autherr.Error {
	if message == "" {
		message = "upstream request failed"
	}
	switch {
	case status == http.StatusUnauthorized:
		return autherr.New(autherr.CodeTokenInvalid, message)
	case status == http.StatusForbidden:
		return autherr.New(autherr.CodeAccessDenied, message)
	case status == http.StatusNotFound:
		return autherr.New(autherr.CodeAccountNotFound, message)
	case status >= 500:
		return autherr.New(autherr.CodeServerError, message)
	default:
		return autherr.New(autherr.CodeUnexpectedError, message)
	}
}
