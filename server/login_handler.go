package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/lockout"
	"github.com/spearfish/auth-gateway/loginflow"
	"github.com/spearfish/auth-gateway/upstream"
)

// LoginSubmissionHandler processes the login form submission for every
// mode. The lockout store is consulted before any credential evaluation
// or upstream call.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds loginflow.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeAuthError(w, autherr.Wrap(autherr.CodeValidationError, err, "decoding login payload"))
			return
		}

		if verr := loginflow.ValidateCredentials(creds); verr != nil {
			writeAuthError(w, verr)
			return
		}

		key := lockout.Key(creds.Email, loginOrigin(r))
		status, err := s.lockouts.Check(r.Context(), key)
		if err != nil {
			writeError(w, errors.Wrap(err, "[LoginSubmissionHandler] lockout Check"))
			return
		}
		if status.Locked(s.now()) {
			writeAuthError(w, lockout.LockedError(status, s.now()))
			return
		}

		result, err := s.engine.Submit(r.Context(), loginflow.SubmitRequest{
			Credentials: creds,
			Inbound:     r,
		})
		if errors.Is(err, loginflow.ErrSubmitInFlight) {
			writeJSON(w, http.StatusConflict, loginResponse{
				Message: "a login attempt is already in progress",
			})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}

		// OAuth mode evaluates no credentials here; hand the browser the
		// authorization URL.
		if result.RedirectURL != "" && result.Session == nil {
			writeJSON(w, http.StatusOK, errorResponse{
				Error:   autherr.CodeCredentialsSignin,
				Message: "continue sign-in with the identity provider",
				Actions: []autherr.Action{{Kind: autherr.ActionRedirect, Target: result.RedirectURL}},
			})
			return
		}

		if result.Err != nil {
			s.respondLoginFailure(w, r, key, result)
			return
		}

		sessionID, established, err := s.sessions.Establish(*result.Session)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.lockouts.Reset(r.Context(), key); err != nil {
			writeError(w, errors.Wrap(err, "[LoginSubmissionHandler] lockout Reset"))
			return
		}

		upstream.RelaySetCookies(w, result.SetCookies)
		s.cookies.Set(w, sessionID)
		writeJSON(w, http.StatusOK, loginResponse{Success: true, User: &established})
	}
}

// respondLoginFailure records the failed attempt and renders the
// taxonomy error, folding in the lockout transition or warning.
func (s *Server) respondLoginFailure(w http.ResponseWriter, r *http.Request, key string, result loginflow.Result) {
	upstream.RelaySetCookies(w, result.SetCookies)

	if !countsTowardLockout(result.Err.Code) {
		writeAuthError(w, result.Err)
		return
	}

	status, err := s.lockouts.RecordFailure(r.Context(), key)
	if err != nil {
		writeError(w, errors.Wrap(err, "[respondLoginFailure] lockout RecordFailure"))
		return
	}

	if status.Locked(s.now()) {
		writeAuthError(w, lockout.LockedError(status, s.now()))
		return
	}

	e := result.Err
	if msg, ok := lockout.AttemptsWarning(status.Attempts, s.config.GetLockoutThreshold()); ok {
		e = autherr.New(e.Code, e.Message)
		e.UserMessage = fmt.Sprintf("%s %s.", e.UserMessage, msg)
	}
	writeAuthError(w, e)
}

// countsTowardLockout limits the counter to genuine credential failures;
// infrastructure and policy errors never advance the state machine.
func countsTowardLockout(code autherr.Code) bool {
	switch code {
	case autherr.CodeInvalidCredential, autherr.CodeCredentialsSignin:
		return true
	default:
		return false
	}
}

// loginOrigin scopes the lockout key to the caller's origin, falling back
// to the request host for same-origin submissions.
func loginOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return getScheme(r) + "://" + r.Host
}
