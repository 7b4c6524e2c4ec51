package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/directory"
	"github.com/spearfish/auth-gateway/internal/config"
	"github.com/spearfish/auth-gateway/lockout"
	"github.com/spearfish/auth-gateway/loginflow"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/tenants"
	"github.com/stretchr/testify/require"
)

func seedTenants() *tenants.InMemoryRepo {
	return tenants.NewInMemoryRepo(
		&tenants.Tenant{ID: 1, Name: "Spearfish", Type: "primary"},
		&tenants.Tenant{ID: 2, Name: "Spearfish Labs", Type: "secondary"},
	)
}

// mockServer wires the gateway in mock mode against in-memory stores.
func mockServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	users := directory.NewInMemoryRepo()
	require.NoError(t, directory.Seed(users))

	signer := loginflow.NewTokenSigner([]byte("test-secret"), "auth-gateway", time.Hour)
	manager := session.NewManager(session.NewInMemoryRepo())

	srv := New(config.New(), Deps{
		Mode:     authmode.ModeMock,
		Engine:   loginflow.NewEngine(loginflow.NewMockFlow(users, signer)),
		Sessions: manager,
		Lockouts: lockout.NewInMemoryStore(),
		Tenants:  seedTenants(),
	})
	return srv, manager
}

func postLogin(t *testing.T, srv *Server, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, RouteAuthLogin, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestLoginSuccessMockMode(t *testing.T) {
	srv, _ := mockServer(t)

	rec := postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, []string{"TenantUserRole"}, resp.User.Roles)
	require.Equal(t, int64(1), resp.User.PrimaryTenantID)

	cookie := sessionCookie(t, rec)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.False(t, cookie.Secure) // not production
}

func TestLoginValidationErrorBeforeAnyCall(t *testing.T) {
	srv, _ := mockServer(t)

	rec := postLogin(t, srv, "not-an-email", "pw")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ValidationError", string(resp.Error))
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	srv, _ := mockServer(t)

	for i := 0; i < 4; i++ {
		rec := postLogin(t, srv, "user@spearfish.io", "wrong-password")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Fifth failure trips the lock.
	rec := postLogin(t, srv, "user@spearfish.io", "wrong-password")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "AccountLocked", string(resp.Error))
	require.True(t, resp.Retryable)
	require.NotZero(t, resp.RetryAfter)

	// While locked even correct credentials are rejected.
	rec = postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginWarningWindow(t *testing.T) {
	srv, _ := mockServer(t)

	var resp errorResponse

	// Two failures: no warning yet.
	postLogin(t, srv, "user@spearfish.io", "wrong-password")
	rec := postLogin(t, srv, "user@spearfish.io", "wrong-password")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotContains(t, resp.Message, "remaining")

	// Third failure enters the warning window.
	rec = postLogin(t, srv, "user@spearfish.io", "wrong-password")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "2 attempts remaining")

	rec = postLogin(t, srv, "user@spearfish.io", "wrong-password")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Message, "1 attempt remaining")
}

func TestLoginSuccessResetsLockoutCounter(t *testing.T) {
	srv, _ := mockServer(t)

	for i := 0; i < 4; i++ {
		postLogin(t, srv, "user@spearfish.io", "wrong-password")
	}
	rec := postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	require.Equal(t, http.StatusOK, rec.Code)

	// Counter is back at zero: one more failure does not lock.
	rec = postLogin(t, srv, "user@spearfish.io", "wrong-password")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRouteMockModeUnauthorized(t *testing.T) {
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodGet, RouteAuthSession, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantSwitchValidMembership(t *testing.T) {
	srv, _ := mockServer(t)

	login := postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	cookie := sessionCookie(t, login)

	req := httptest.NewRequest(http.MethodPut, "/auth/tenant/2", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, int64(2), resp.User.TenantID)
}

func TestTenantSwitchNonMemberNeverMutates(t *testing.T) {
	srv, manager := mockServer(t)

	login := postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	cookie := sessionCookie(t, login)

	req := httptest.NewRequest(http.MethodPut, "/auth/tenant/99", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "AccessDenied", string(resp.Error))

	stored, err := manager.Get(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.TenantID)
}

func TestTenantSwitchWithoutSession(t *testing.T) {
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodPut, "/auth/tenant/2", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	srv, manager := mockServer(t)

	login := postLogin(t, srv, "user@spearfish.io", "UserPass123!")
	cookie := sessionCookie(t, login)

	req := httptest.NewRequest(http.MethodPost, RouteAuthLogout, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := sessionCookie(t, rec)
	require.Equal(t, -1, cleared.MaxAge)

	_, err := manager.Get(cookie.Value)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestHealthzReportsMode(t *testing.T) {
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodGet, RouteHealthz, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string   `json:"status"`
		Mode     string   `json:"mode"`
		Features []string `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "mock", body.Mode)
	require.Contains(t, body.Features, "instant_login")
}

func TestOAuthInitiateUnavailableInMockMode(t *testing.T) {
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodGet, RouteAuthInitiate, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Configuration", string(resp.Error))
}

func TestCorsPreflightAllowedOrigin(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.spearfish.io")
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodOptions, RouteAuthLogin, nil)
	req.Header.Set("Origin", "https://app.spearfish.io")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, "https://app.spearfish.io", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsPreflightDisallowedOrigin(t *testing.T) {
	srv, _ := mockServer(t)

	req := httptest.NewRequest(http.MethodOptions, RouteAuthLogin, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
