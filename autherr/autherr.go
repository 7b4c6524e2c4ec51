// Package autherr defines the canonical error taxonomy shared by every
// login variant and proxy route. Each code carries a fixed user-facing
// message, retryability, and a list of recovery actions so that callers
// never have to interpret backend-specific failures.
package autherr

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Code identifies one canonical error condition.
type Code string

const (
	CodeCredentialsSignin Code = "CredentialsSignin"
	CodeAccessDenied      Code = "AccessDenied"
	CodeVerification      Code = "Verification"
	CodeConfiguration     Code = "Configuration"
	CodeAccountNotFound   Code = "AccountNotFound"
	CodeInvalidCredential Code = "InvalidCredentials"
	CodeTooManyAttempts   Code = "TooManyAttempts"
	CodeAccountLocked     Code = "AccountLocked"
	CodeTokenExpired      Code = "TokenExpired"
	CodeTokenInvalid      Code = "TokenInvalid"
	CodeNetworkError      Code = "NetworkError"
	CodeServerError       Code = "ServerError"
	CodeValidationError   Code = "ValidationError"
	CodeProviderError     Code = "ProviderError"
	CodeOIDCError         Code = "OIDCError"
	CodeRefreshTokenError Code = "RefreshTokenError"
	CodeUnexpectedError   Code = "UnexpectedError"
	CodeDefault           Code = "Default"
)

// ActionKind tags a recovery action.
type ActionKind string

const (
	ActionRetry          ActionKind = "retry"
	ActionReset          ActionKind = "reset"
	ActionRedirect       ActionKind = "redirect"
	ActionContactSupport ActionKind = "contact_support"
	ActionChangePassword ActionKind = "change_password"
)

// Action is one recovery affordance offered to the user. Target is only
// meaningful for redirect actions.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target,omitempty"`
}

// Descriptor is the fixed record a code maps to.
type Descriptor struct {
	UserMessage string
	Retryable   bool
	RetryAfter  time.Duration
	Actions     []Action
}

var registry = map[Code]Descriptor{
	CodeCredentialsSignin: {
		UserMessage: "Sign in failed. Check the details you provided are correct.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeAccessDenied: {
		UserMessage: "You do not have permission to sign in.",
		Retryable:   false,
		Actions:     []Action{{Kind: ActionContactSupport}},
	},
	CodeVerification: {
		UserMessage: "The verification link is no longer valid. Request a new one.",
		Retryable:   false,
		Actions:     []Action{{Kind: ActionReset}},
	},
	CodeConfiguration: {
		UserMessage: "There is a problem with the server configuration.",
		Retryable:   false,
		Actions:     []Action{{Kind: ActionContactSupport}},
	},
	CodeAccountNotFound: {
		UserMessage: "No account was found with this email address.",
		Retryable:   false,
		Actions:     []Action{{Kind: ActionRedirect, Target: "/signup"}, {Kind: ActionContactSupport}},
	},
	CodeInvalidCredential: {
		UserMessage: "Incorrect email or password.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}, {Kind: ActionChangePassword}},
	},
	CodeTooManyAttempts: {
		UserMessage: "Too many attempts. Please wait before trying again.",
		Retryable:   true,
		RetryAfter:  time.Minute,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeAccountLocked: {
		UserMessage: "Account temporarily locked after repeated failed attempts.",
		Retryable:   true,
		RetryAfter:  15 * time.Minute,
		Actions:     []Action{{Kind: ActionRetry}, {Kind: ActionChangePassword}},
	},
	CodeTokenExpired: {
		UserMessage: "Your session has expired. Please sign in again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRedirect, Target: "/auth/login"}},
	},
	CodeTokenInvalid: {
		UserMessage: "Your session is no longer valid. Please sign in again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRedirect, Target: "/auth/login"}},
	},
	CodeNetworkError: {
		UserMessage: "A network error occurred. Check your connection and try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeServerError: {
		UserMessage: "Something went wrong on our side. Please try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}, {Kind: ActionContactSupport}},
	},
	CodeValidationError: {
		UserMessage: "Some fields are missing or invalid.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeProviderError: {
		UserMessage: "The identity provider returned an error. Please try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeOIDCError: {
		UserMessage: "Sign in with the identity provider failed. Please try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
	CodeRefreshTokenError: {
		UserMessage: "Your session could not be renewed. Please sign in again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRedirect, Target: "/auth/login"}},
	},
	CodeUnexpectedError: {
		UserMessage: "An unexpected error occurred. Please try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}, {Kind: ActionContactSupport}},
	},
	CodeDefault: {
		UserMessage: "Unable to sign in. Please try again.",
		Retryable:   true,
		Actions:     []Action{{Kind: ActionRetry}},
	},
}

// Lookup returns the fixed descriptor for a code. Unknown codes fall back
// to the Default descriptor.
func Lookup(code Code) Descriptor {
	if d, ok := registry[code]; ok {
		return d
	}
	return registry[CodeDefault]
}

// Error is the tagged error value that flows between the login variants,
// the session manager, and the proxy routes.
type Error struct {
	Code        Code          `json:"code"`
	Message     string        `json:"message"`
	UserMessage string        `json:"userMessage"`
	Retryable   bool          `json:"retryable"`
	RetryAfter  time.Duration `json:"retryAfter,omitempty"`
	Actions     []Action      `json:"actions"`

	cause error
}

// New builds an Error for code with the registry's fixed user-facing
// record and an internal message.
func New(code Code, message string) *Error {
	d := Lookup(code)
	return &Error{
		Code:        code,
		Message:     message,
		UserMessage: d.UserMessage,
		Retryable:   d.Retryable,
		RetryAfter:  d.RetryAfter,
		Actions:     d.Actions,
	}
}

// Newf is New with a formatted internal message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause to a new Error for code. The cause is reachable
// through errors.Unwrap but never rendered to users.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

// WithRetryAfter overrides the registry retry window, e.g. with the exact
// remaining lockout duration.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two taxonomy errors by code, so callers can test
// errors.Is(err, autherr.New(autherr.CodeAccountLocked, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the taxonomy code from anywhere in err's chain.
// Errors outside the taxonomy report Default.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDefault
}

// AsError returns err as a taxonomy *Error, converting foreign errors to
// the Default code so proxy responses always carry the canonical shape.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(CodeDefault, err, "unclassified error")
}

// HTTPStatus maps a code to the status class proxy routes respond with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeCredentialsSignin, CodeInvalidCredential, CodeTokenExpired, CodeTokenInvalid, CodeRefreshTokenError:
		return http.StatusUnauthorized
	case CodeAccessDenied, CodeVerification:
		return http.StatusForbidden
	case CodeAccountNotFound:
		return http.StatusNotFound
	case CodeTooManyAttempts, CodeAccountLocked:
		return http.StatusTooManyRequests
	case CodeNetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
