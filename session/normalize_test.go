package session_test

import (
	"encoding/json"
	"testing"

	"github.com/spearfish/auth-gateway/session"
	"github.com/stretchr/testify/require"
)

func TestFromProviderClaims(t *testing.T) {
	s := session.FromProviderClaims(session.ProviderClaims{
		Sub:               "user-1",
		Email:             "user@spearfish.io",
		PrimaryTenantID:   1,
		TenantMemberships: []int64{1, 2},
		Roles:             []string{"TenantUserRole"},
	})

	require.Equal(t, session.AuthTypeOAuth, s.AuthType)
	require.Equal(t, int64(1), s.TenantID, "unscoped token lands on the primary tenant")
	require.Equal(t, []string{"TenantUserRole"}, s.Roles)
	require.Equal(t, []int64{1, 2}, s.TenantMemberships)
}

func TestFromProviderClaimsScopedToken(t *testing.T) {
	s := session.FromProviderClaims(session.ProviderClaims{
		Sub:             "user-1",
		TenantID:        2,
		PrimaryTenantID: 1,
	})
	require.Equal(t, int64(2), s.TenantID)
}

func TestAbsentFieldsDefaultToZeroValues(t *testing.T) {
	legacy, err := session.FromLegacyJSON([]byte(`{"userId":"u-9","email":"x@spearfish.io"}`))
	require.NoError(t, err)
	require.Equal(t, int64(0), legacy.TenantID)
	require.NotNil(t, legacy.Roles)
	require.Empty(t, legacy.Roles)
	require.NotNil(t, legacy.TenantMemberships)
	require.Empty(t, legacy.TenantMemberships)

	oauth := session.FromProviderClaims(session.ProviderClaims{Sub: "u-9"})
	require.NotNil(t, oauth.Roles)
	require.NotNil(t, oauth.TenantMemberships)

	mock := session.FromMockDoc(session.MockDoc{ID: "u-9"})
	require.NotNil(t, mock.Roles)
	require.NotNil(t, mock.TenantMemberships)
}

func TestFromLegacyJSONMalformed(t *testing.T) {
	_, err := session.FromLegacyJSON([]byte(`{"userId":`))
	require.Error(t, err)
}

// Round-trip law: tenantId, roles, and authType survive
// normalize -> serialize -> normalize for every upstream shape.
func TestNormalizationRoundTrip(t *testing.T) {
	sessions := map[string]session.Session{
		"legacy": session.FromLegacyDoc(session.LegacyDoc{
			UserID:            "u-1",
			TenantID:          3,
			PrimaryTenantID:   1,
			TenantMemberships: []int64{1, 3},
			Roles:             []string{"TenantUserRole", "BillingRole"},
		}),
		"oauth": session.FromProviderClaims(session.ProviderClaims{
			Sub:               "u-1",
			TenantID:          3,
			PrimaryTenantID:   1,
			TenantMemberships: []int64{1, 3},
			Roles:             []string{"TenantUserRole"},
		}),
		"mock": session.FromMockDoc(session.MockDoc{
			ID:                "u-1",
			PrimaryTenantID:   1,
			TenantMemberships: []int64{1},
			Roles:             []string{"TenantUserRole"},
		}),
	}

	for name, original := range sessions {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(original)
			require.NoError(t, err)

			var decoded session.Session
			require.NoError(t, json.Unmarshal(data, &decoded))

			require.Equal(t, original.TenantID, decoded.TenantID)
			require.Equal(t, original.Roles, decoded.Roles)
			require.Equal(t, original.AuthType, decoded.AuthType)
		})
	}
}

func TestTokensNeverSerialize(t *testing.T) {
	s := session.FromMockDoc(session.MockDoc{ID: "u-1"})
	s.RefreshToken = "rt-secret"
	s.AccessToken = "at-secret"

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NotContains(t, string(data), "rt-secret")
	require.NotContains(t, string(data), "at-secret")
}

func TestHasTenant(t *testing.T) {
	s := session.Session{TenantMemberships: []int64{1, 2}}
	require.True(t, s.HasTenant(2))
	require.False(t, s.HasTenant(3))
}
