// Package loginflow runs the per-mode login protocol behind one
// contract: mock directory lookup, OIDC authorization-code with PKCE,
// or a cookie-forwarding proxy to the legacy identity server. Every
// variant reports the same Result shape so downstream handling never
// branches on the backend.
package loginflow

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/session"
)

// Credentials are only used by the mock and legacy variants; the oauth
// variant never sees a password.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// SubmitRequest carries the credentials plus the inbound HTTP request,
// whose cookies the legacy variant forwards upstream. Inbound may be nil
// for the mock variant.
type SubmitRequest struct {
	Credentials
	Inbound *http.Request
}

// Redirect is the browser redirect target produced by Initiate.
type Redirect struct {
	URL string
}

// CallbackParams are the provider's authorization-response parameters.
type CallbackParams struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// Result is the uniform outcome of every login variant.
type Result struct {
	OK          bool
	Session     *session.Session
	Err         *autherr.Error
	RedirectURL string
	// SetCookies holds upstream Set-Cookie headers, verbatim and in
	// order, for the proxy route to relay. Legacy variant only.
	SetCookies []string
}

// Flow is the per-variant login protocol.
type Flow interface {
	Mode() authmode.Mode
	// Initiate starts the flow. Only the oauth variant produces a
	// redirect target; mock and legacy return nil.
	Initiate(ctx context.Context) (*Redirect, error)
	// Submit evaluates credentials. Credential failures land in
	// Result.Err; infrastructure failures are returned as error.
	Submit(ctx context.Context, req SubmitRequest) (Result, error)
	// HandleCallback completes the flow. oauth variant only.
	HandleCallback(ctx context.Context, params CallbackParams) (Result, error)
}

// ValidateCredentials resolves shape errors before any network call;
// a ValidationError never reaches a proxy.
func ValidateCredentials(c Credentials) *autherr.Error {
	email := strings.TrimSpace(c.Email)
	if email == "" || c.Password == "" {
		return autherr.New(autherr.CodeValidationError, "email and password are required")
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return autherr.New(autherr.CodeValidationError, "malformed email address")
	}
	return nil
}

// ErrSubmitInFlight signals a duplicate submission while one is already
// running for the same identity. The duplicate is dropped, not queued.
var ErrSubmitInFlight = errors.New("login submission already in flight")

// Engine wraps a Flow with the duplicate-submit guard. Submissions are
// serialized per credential identity.
type Engine struct {
	flow Flow

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewEngine(flow Flow) *Engine {
	return &Engine{
		flow:     flow,
		inFlight: make(map[string]struct{}),
	}
}

func (e *Engine) Mode() authmode.Mode { return e.flow.Mode() }

func (e *Engine) Initiate(ctx context.Context) (*Redirect, error) {
	return e.flow.Initiate(ctx)
}

func (e *Engine) HandleCallback(ctx context.Context, params CallbackParams) (Result, error) {
	return e.flow.HandleCallback(ctx, params)
}

// Submit runs the variant's submit unless one is already in flight for
// the same email, in which case the duplicate is rejected immediately.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	key := strings.ToLower(strings.TrimSpace(req.Email))

	e.mu.Lock()
	if _, dup := e.inFlight[key]; dup {
		e.mu.Unlock()
		return Result{}, ErrSubmitInFlight
	}
	e.inFlight[key] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inFlight, key)
		e.mu.Unlock()
	}()

	return e.flow.Submit(ctx, req)
}
