// Package session owns the canonical, backend-agnostic Session shape and
// its lifecycle: issuance, refresh rotation, expiry, and normalization of
// the three upstream response shapes.
package session

import (
	"time"

	"github.com/spearfish/auth-gateway/autherr"
)

// AuthType records which backend established a session and therefore
// which fields are meaningful.
type AuthType string

const (
	AuthTypeMock   AuthType = "mock"
	AuthTypeOAuth  AuthType = "oauth"
	AuthTypeLegacy AuthType = "legacy"
)

// Session is the canonical server-issued proof of authentication. Every
// login variant normalizes into this one shape so downstream code never
// branches on the backend.
type Session struct {
	UserID            string    `json:"userId"`
	Email             string    `json:"email"`
	TenantID          int64     `json:"tenantId"`
	PrimaryTenantID   int64     `json:"primaryTenantId"`
	TenantMemberships []int64   `json:"tenantMemberships"`
	Roles             []string  `json:"roles"`
	AuthType          AuthType  `json:"authType"`
	IssuedAt          time.Time `json:"issuedAt"`
	ExpiresAt         time.Time `json:"expiresAt"`

	// Tokens are held gateway-side only and never serialized to clients.
	RefreshToken string `json:"-"`
	AccessToken  string `json:"-"`

	// FatalError marks a session that can no longer be renewed; the next
	// protected-resource check must force re-authentication.
	FatalError autherr.Code `json:"fatalError,omitempty"`
}

// HasTenant reports whether tenantID is one of the session's memberships.
func (s *Session) HasTenant(tenantID int64) bool {
	for _, id := range s.TenantMemberships {
		if id == tenantID {
			return true
		}
	}
	return false
}

// Expired reports whether the session has outlived its max age.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
