package session

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// The three upstream shapes all normalize through pure transforms into
// the one canonical Session. Fields absent upstream default to their zero
// values (tenantId 0, roles empty) rather than propagating null.

// ProviderClaims is the claim set the OIDC provider places in the ID
// token and userinfo responses.
type ProviderClaims struct {
	Sub               string   `json:"sub"`
	Email             string   `json:"email"`
	TenantID          int64    `json:"tenant_id"`
	PrimaryTenantID   int64    `json:"primary_tenant_id"`
	TenantMemberships []int64  `json:"tenant_memberships"`
	Roles             []string `json:"roles"`
	Nonce             string   `json:"nonce"`
}

// LegacyDoc is the session JSON shape of the legacy identity server.
type LegacyDoc struct {
	UserID            string   `json:"userId"`
	Email             string   `json:"email"`
	TenantID          int64    `json:"tenantId"`
	PrimaryTenantID   int64    `json:"primaryTenantId"`
	TenantMemberships []int64  `json:"tenantMemberships"`
	Roles             []string `json:"roles"`
}

// MockDoc is the JSON shape of the in-process mock directory.
type MockDoc struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
	PrimaryTenantID   int64    `json:"primary_tenant_id"`
	TenantMemberships []int64  `json:"tenant_memberships"`
}

// FromProviderClaims normalizes OIDC claims. The active tenant falls back
// to the primary tenant when the provider does not scope the token.
func FromProviderClaims(claims ProviderClaims) Session {
	tenantID := claims.TenantID
	if tenantID == 0 {
		tenantID = claims.PrimaryTenantID
	}
	return Session{
		UserID:            claims.Sub,
		Email:             claims.Email,
		TenantID:          tenantID,
		PrimaryTenantID:   claims.PrimaryTenantID,
		TenantMemberships: nonNilInts(claims.TenantMemberships),
		Roles:             nonNilStrings(claims.Roles),
		AuthType:          AuthTypeOAuth,
	}
}

// FromLegacyDoc normalizes the legacy server's session document.
func FromLegacyDoc(doc LegacyDoc) Session {
	return Session{
		UserID:            doc.UserID,
		Email:             doc.Email,
		TenantID:          doc.TenantID,
		PrimaryTenantID:   doc.PrimaryTenantID,
		TenantMemberships: nonNilInts(doc.TenantMemberships),
		Roles:             nonNilStrings(doc.Roles),
		AuthType:          AuthTypeLegacy,
	}
}

// FromLegacyJSON parses and normalizes legacy session JSON.
func FromLegacyJSON(data []byte) (Session, error) {
	var doc LegacyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Session{}, errors.Wrap(err, "[FromLegacyJSON] unmarshal")
	}
	return FromLegacyDoc(doc), nil
}

// FromMockDoc normalizes a mock directory account. Login lands on the
// primary tenant.
func FromMockDoc(doc MockDoc) Session {
	return Session{
		UserID:            doc.ID,
		Email:             doc.Email,
		TenantID:          doc.PrimaryTenantID,
		PrimaryTenantID:   doc.PrimaryTenantID,
		TenantMemberships: nonNilInts(doc.TenantMemberships),
		Roles:             nonNilStrings(doc.Roles),
		AuthType:          AuthTypeMock,
	}
}

// FromMockJSON parses and normalizes mock directory JSON.
func FromMockJSON(data []byte) (Session, error) {
	var doc MockDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Session{}, errors.Wrap(err, "[FromMockJSON] unmarshal")
	}
	return FromMockDoc(doc), nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilInts(in []int64) []int64 {
	if in == nil {
		return []int64{}
	}
	return in
}
