package loginflow

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/upstream"
)

var _ Flow = (*LegacyFlow)(nil)

// LegacyFlow proxies credential submission to the legacy backend,
// relaying its session cookies to the browser verbatim. The gateway
// never inspects or mints tokens for this variant.
type LegacyFlow struct {
	client    *upstream.Client
	loginPath string
}

func NewLegacyFlow(client *upstream.Client, loginPath string) *LegacyFlow {
	return &LegacyFlow{client: client, loginPath: loginPath}
}

func (f *LegacyFlow) Mode() authmode.Mode { return authmode.ModeLegacy }

// Initiate is a no-op; the legacy variant is pure credential submission.
func (f *LegacyFlow) Initiate(_ context.Context) (*Redirect, error) {
	return nil, nil
}

// legacyLoginResponse is the upstream reply envelope. The user document
// rides as raw JSON so normalization owns the field mapping.
type legacyLoginResponse struct {
	Success bool            `json:"success"`
	User    json.RawMessage `json:"user"`
	Message string          `json:"message"`
}

func (f *LegacyFlow) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	if verr := ValidateCredentials(req.Credentials); verr != nil {
		return Result{Err: verr}, nil
	}

	body, err := json.Marshal(map[string]string{
		"email":    req.Credentials.Email,
		"password": req.Credentials.Password,
	})
	if err != nil {
		return Result{}, autherr.Wrap(autherr.CodeUnexpectedError, err, "encoding login payload")
	}

	resp, err := f.client.Forward(ctx, http.MethodPost, f.loginPath, body, "application/json", req.Inbound)
	if err != nil {
		return Result{}, err
	}

	var envelope legacyLoginResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return Result{}, autherr.Wrap(autherr.CodeServerError, err, "decoding login response")
	}

	if resp.StatusCode != http.StatusOK || !envelope.Success {
		return Result{
			Err:        legacyError(resp.StatusCode, envelope.Message),
			SetCookies: resp.SetCookies,
		}, nil
	}

	s, err := session.FromLegacyJSON(envelope.User)
	if err != nil {
		return Result{}, autherr.Wrap(autherr.CodeServerError, err, "decoding user document")
	}

	return Result{OK: true, Session: &s, SetCookies: resp.SetCookies}, nil
}

// HandleCallback is never reached for this variant.
func (f *LegacyFlow) HandleCallback(_ context.Context, _ CallbackParams) (Result, error) {
	return Result{Err: autherr.New(autherr.CodeUnexpectedError, "legacy flow has no callback leg")}, nil
}

// legacyError maps upstream status codes onto the error taxonomy.
// Failed credentials never reveal whether the account exists.
func legacyError(status int, message string) *autherr.Error {
	var code autherr.Code
	switch {
	case status == http.StatusUnauthorized:
		code = autherr.CodeInvalidCredential
	case status == http.StatusForbidden:
		code = autherr.CodeAccessDenied
	case status == http.StatusNotFound:
		code = autherr.CodeAccountNotFound
	case status == http.StatusLocked || status == http.StatusTooManyRequests:
		code = autherr.CodeTooManyAttempts
	case status >= 500:
		code = autherr.CodeServerError
	default:
		code = autherr.CodeCredentialsSignin
	}
	if message == "" {
		return autherr.New(code, "legacy login failed")
	}
	return autherr.New(code, message)
}
