package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/autherr"
)

const (
	// DefaultMaxAge is how long a session lives without renewal.
	DefaultMaxAge = 12 * time.Hour
	// DefaultRenewAfter is the elapsed age after which the next check
	// rolls the session forward (maxAge minus the refresh margin).
	DefaultRenewAfter = 11 * time.Hour
)

// tokenEndpointResponse is the refresh grant reply. refresh_token is
// optional: present means the old one is rotated out, absent means it
// stays valid.
type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Manager drives the session lifecycle: issuance, refresh rotation,
// expiry checks, and sign-out revocation.
type Manager struct {
	repo       Repo
	httpClient *http.Client

	tokenURL  string
	revokeURL string
	clientID  string

	maxAge     time.Duration
	renewAfter time.Duration
	now        func() time.Time

	// inflight coalesces concurrent refreshes per session: two parallel
	// refreshes against a rotating backend would invalidate each other.
	mu       sync.Mutex
	inflight map[string]*refreshCall
}

type refreshCall struct {
	done    chan struct{}
	session Session
	err     error
}

type ManagerOption func(*Manager)

// WithEndpoints sets the upstream token and revocation endpoints used
// for refresh and sign-out.
func WithEndpoints(tokenURL, revokeURL, clientID string) ManagerOption {
	return func(m *Manager) {
		m.tokenURL = tokenURL
		m.revokeURL = revokeURL
		m.clientID = clientID
	}
}

// WithHTTPClient overrides the transport (primarily for testing).
func WithHTTPClient(httpClient *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = httpClient }
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLifetime overrides the session max age and renewal point.
func WithLifetime(maxAge, renewAfter time.Duration) ManagerOption {
	return func(m *Manager) {
		m.maxAge = maxAge
		m.renewAfter = renewAfter
	}
}

func NewManager(repo Repo, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:       repo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxAge:     DefaultMaxAge,
		renewAfter: DefaultRenewAfter,
		now:        time.Now,
		inflight:   make(map[string]*refreshCall),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Establish stamps lifecycle fields onto a freshly normalized session,
// stores it, and returns the new session ID.
func (m *Manager) Establish(s Session) (string, Session, error) {
	now := m.now()
	s.IssuedAt = now
	s.ExpiresAt = now.Add(m.maxAge)

	sessionID := uuid.New().String()
	if err := m.repo.Upsert(sessionID, s); err != nil {
		return "", Session{}, errors.Wrap(err, "[Manager.Establish] Upsert")
	}
	return sessionID, s, nil
}

// Update replaces a stored session, e.g. after a tenant switch.
func (m *Manager) Update(sessionID string, s Session) error {
	return errors.Wrap(m.repo.Upsert(sessionID, s), "[Manager.Update] Upsert")
}

// Get returns the stored session without lifecycle checks.
func (m *Manager) Get(sessionID string) (Session, error) {
	return m.repo.Get(sessionID)
}

// NeedsRefresh reports whether the session is due for renewal: elapsed
// age past the renewal point and a refresh token on hand.
func (m *Manager) NeedsRefresh(s Session) bool {
	return s.RefreshToken != "" && m.now().Sub(s.IssuedAt) > m.renewAfter
}

// Require is the protected-resource check. It loads the session, forces
// re-authentication on fatal or expired sessions, and transparently
// renews a session that is due.
func (m *Manager) Require(ctx context.Context, sessionID string) (Session, error) {
	s, err := m.repo.Get(sessionID)
	if err != nil {
		return Session{}, autherr.Wrap(autherr.CodeTokenInvalid, err, "unknown session")
	}

	if s.FatalError != "" {
		return Session{}, autherr.New(autherr.CodeTokenExpired, "session marked fatal, re-authentication required")
	}
	if s.Expired(m.now()) {
		return Session{}, autherr.New(autherr.CodeTokenExpired, "session max age exceeded")
	}
	if m.NeedsRefresh(s) {
		return m.Refresh(ctx, sessionID)
	}
	return s, nil
}

// Refresh renews the session at the token endpoint. Concurrent callers
// for the same session share a single upstream call; the coalesced
// response wins for all of them. A failed refresh is fatal for the
// session and is never retried here.
func (m *Manager) Refresh(ctx context.Context, sessionID string) (Session, error) {
	m.mu.Lock()
	if call, ok := m.inflight[sessionID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.session, call.err
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	m.inflight[sessionID] = call
	m.mu.Unlock()

	call.session, call.err = m.refresh(ctx, sessionID)
	close(call.done)

	m.mu.Lock()
	delete(m.inflight, sessionID)
	m.mu.Unlock()

	return call.session, call.err
}

func (m *Manager) refresh(ctx context.Context, sessionID string) (Session, error) {
	s, err := m.repo.Get(sessionID)
	if err != nil {
		return Session{}, autherr.Wrap(autherr.CodeTokenInvalid, err, "unknown session")
	}
	if s.RefreshToken == "" {
		return Session{}, autherr.New(autherr.CodeRefreshTokenError, "no refresh token held")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.RefreshToken)
	form.Set("client_id", m.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, errors.Wrap(err, "[Manager.refresh] NewRequest")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Session{}, m.markFatal(sessionID, s, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Session{}, m.markFatal(sessionID, s, errors.Errorf("token endpoint returned %d", resp.StatusCode))
	}

	var tokenResp tokenEndpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Session{}, m.markFatal(sessionID, s, err)
	}

	now := m.now()
	s.AccessToken = tokenResp.AccessToken
	s.IssuedAt = now
	s.ExpiresAt = now.Add(m.maxAge)
	// Rotation: a returned refresh token replaces the old one in the
	// same store write; absent means the old one stays valid. The two
	// are never both held.
	if tokenResp.RefreshToken != "" {
		s.RefreshToken = tokenResp.RefreshToken
	}

	if err := m.repo.Upsert(sessionID, s); err != nil {
		return Session{}, errors.Wrap(err, "[Manager.refresh] Upsert")
	}
	return s, nil
}

// markFatal records the unrecoverable refresh failure on the stored
// session so every later check forces re-authentication.
func (m *Manager) markFatal(sessionID string, s Session, cause error) error {
	s.FatalError = autherr.CodeRefreshTokenError
	if err := m.repo.Upsert(sessionID, s); err != nil {
		log.Err(err).Str("session_id", sessionID).Msg("failed to persist fatal refresh state")
	}
	return autherr.Wrap(autherr.CodeRefreshTokenError, cause, "refresh failed")
}

// SignOut revokes the refresh token upstream and destroys the session.
// Revocation is best effort: the local session dies either way.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	s, err := m.repo.Get(sessionID)
	if err == nil && s.RefreshToken != "" && m.revokeURL != "" {
		form := url.Values{}
		form.Set("token", s.RefreshToken)
		form.Set("client_id", m.clientID)

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
		if reqErr == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if resp, doErr := m.httpClient.Do(req); doErr != nil {
				log.Err(doErr).Msg("refresh token revocation failed")
			} else {
				resp.Body.Close()
			}
		}
	}

	return errors.Wrap(m.repo.Delete(sessionID), "[Manager.SignOut] Delete")
}
