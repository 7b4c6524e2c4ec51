package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/session"
)

// loginResponse is the envelope of every credential-bearing route.
type loginResponse struct {
	Success bool             `json:"success"`
	User    *session.Session `json:"user,omitempty"`
	Message string           `json:"message,omitempty"`
}

// errorResponse is the canonical failure shape. Only registry-owned
// user-facing fields are rendered; internal messages and causes stay in
// the logs.
type errorResponse struct {
	Success    bool             `json:"success"`
	Error      autherr.Code     `json:"error"`
	Message    string           `json:"message"`
	Retryable  bool             `json:"retryable"`
	RetryAfter int              `json:"retryAfter,omitempty"`
	Actions    []autherr.Action `json:"actions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("encoding response")
	}
}

// writeAuthError renders a taxonomy error. The internal message never
// leaves the process.
func writeAuthError(w http.ResponseWriter, e *autherr.Error) {
	writeJSON(w, autherr.HTTPStatus(e.Code), errorResponse{
		Error:      e.Code,
		Message:    e.UserMessage,
		Retryable:  e.Retryable,
		RetryAfter: int(e.RetryAfter.Seconds()),
		Actions:    e.Actions,
	})
}

// writeError logs err and renders it through the taxonomy, converting
// foreign errors to the opaque Default shape.
func writeError(w http.ResponseWriter, err error) {
	log.Err(err).Msg("request failed")
	writeAuthError(w, autherr.AsError(err))
}
