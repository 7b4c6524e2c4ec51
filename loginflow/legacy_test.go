package loginflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/upstream"
	"github.com/stretchr/testify/require"
)

const legacyLoginPath = "/api/auth/login"

func legacyServer(t *testing.T, handler http.HandlerFunc) *LegacyFlow {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := upstream.NewClient(srv.URL, 5*time.Second)
	return NewLegacyFlow(client, legacyLoginPath)
}

func TestLegacyFlowSubmitSuccess(t *testing.T) {
	var gotBody map[string]string
	flow := legacyServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, legacyLoginPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Add("Set-Cookie", "legacy_session=abc; Path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "legacy_csrf=xyz; Path=/")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user": map[string]any{
				"userId":            "legacy-7",
				"email":             "user@spearfish.io",
				"tenantId":          3,
				"primaryTenantId":   1,
				"tenantMemberships": []int64{1, 3},
				"roles":             []string{"TenantUserRole"},
			},
		})
	})

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "UserPass123!"},
	})
	require.NoError(t, err)
	require.True(t, result.OK)

	require.Equal(t, "user@spearfish.io", gotBody["email"])
	require.Equal(t, "UserPass123!", gotBody["password"])

	s := result.Session
	require.Equal(t, "legacy-7", s.UserID)
	require.Equal(t, int64(3), s.TenantID)
	require.Equal(t, session.AuthTypeLegacy, s.AuthType)

	// Upstream cookies relay verbatim and in order.
	require.Equal(t, []string{
		"legacy_session=abc; Path=/; HttpOnly",
		"legacy_csrf=xyz; Path=/",
	}, result.SetCookies)
}

func TestLegacyFlowSubmitStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   autherr.Code
	}{
		{"unauthorized", http.StatusUnauthorized, autherr.CodeInvalidCredential},
		{"forbidden", http.StatusForbidden, autherr.CodeAccessDenied},
		{"not found", http.StatusNotFound, autherr.CodeAccountNotFound},
		{"locked", http.StatusLocked, autherr.CodeTooManyAttempts},
		{"too many requests", http.StatusTooManyRequests, autherr.CodeTooManyAttempts},
		{"internal error", http.StatusInternalServerError, autherr.CodeServerError},
		{"declared failure", http.StatusOK, autherr.CodeCredentialsSignin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flow := legacyServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "upstream says no",
				})
			})

			result, err := flow.Submit(context.Background(), SubmitRequest{
				Credentials: Credentials{Email: "user@spearfish.io", Password: "pw"},
			})
			require.NoError(t, err)
			require.False(t, result.OK)
			require.NotNil(t, result.Err)
			require.Equal(t, tc.want, result.Err.Code)
			require.Equal(t, "upstream says no", result.Err.Message)
		})
	}
}

func TestLegacyFlowSubmitForwardsInboundCookies(t *testing.T) {
	var gotCookie string
	flow := legacyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("legacy_session"); err == nil {
			gotCookie = c.Value
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]any{"userId": "legacy-7", "email": "user@spearfish.io"},
		})
	})

	inbound := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	inbound.AddCookie(&http.Cookie{Name: "legacy_session", Value: "prior"})

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "pw"},
		Inbound:     inbound,
	})
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, "prior", gotCookie)
}

func TestLegacyFlowSubmitNetworkError(t *testing.T) {
	// Reserved TEST-NET-1 address, nothing listens there.
	client := upstream.NewClient("http://192.0.2.1:1", 200*time.Millisecond)
	flow := NewLegacyFlow(client, legacyLoginPath)

	_, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "user@spearfish.io", Password: "pw"},
	})
	require.Error(t, err)
	require.Equal(t, autherr.CodeNetworkError, autherr.CodeOf(err))
}

func TestLegacyFlowSubmitValidationShortCircuits(t *testing.T) {
	called := false
	flow := legacyServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	result, err := flow.Submit(context.Background(), SubmitRequest{
		Credentials: Credentials{Email: "not-an-email", Password: "pw"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Err)
	require.Equal(t, autherr.CodeValidationError, result.Err.Code)
	require.False(t, called)
}
