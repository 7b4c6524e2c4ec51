package authmode_test

import (
	"testing"

	"github.com/spearfish/auth-gateway/authmode"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want authmode.Mode
	}{
		{"mock", "mock", authmode.ModeMock},
		{"oauth", "oauth", authmode.ModeOAuth},
		{"legacy", "legacy", authmode.ModeLegacy},
		{"uppercase", "MOCK", authmode.ModeMock},
		{"mixed case with whitespace", "  Legacy ", authmode.ModeLegacy},
		{"unset defaults to oauth", "", authmode.ModeOAuth},
		{"unrecognized defaults to oauth", "saml", authmode.ModeOAuth},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, authmode.Parse(tc.raw))
		})
	}
}

func TestResolveFresh(t *testing.T) {
	t.Setenv(authmode.EnvVar, "legacy")
	require.Equal(t, authmode.ModeLegacy, authmode.ResolveFresh())

	t.Setenv(authmode.EnvVar, "nonsense")
	require.Equal(t, authmode.ModeOAuth, authmode.ResolveFresh())
}

func TestResolveIsIdempotent(t *testing.T) {
	first := authmode.Resolve()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, authmode.Resolve())
	}
}

func TestSupports(t *testing.T) {
	require.True(t, authmode.Supports(authmode.ModeOAuth, authmode.FeaturePKCE))
	require.True(t, authmode.Supports(authmode.ModeOAuth, authmode.FeatureRefreshRotation))
	require.True(t, authmode.Supports(authmode.ModeLegacy, authmode.FeaturePasswordReset))
	require.True(t, authmode.Supports(authmode.ModeMock, authmode.FeatureInstantLogin))

	require.False(t, authmode.Supports(authmode.ModeMock, authmode.FeaturePKCE))
	require.False(t, authmode.Supports(authmode.ModeOAuth, authmode.FeaturePasswordReset))
	require.False(t, authmode.Supports(authmode.ModeLegacy, "unknown_feature"))
	require.False(t, authmode.Supports("unknown_mode", authmode.FeaturePKCE))
}

func TestFeatures(t *testing.T) {
	require.Equal(t, []authmode.Feature{authmode.FeaturePKCE, authmode.FeatureRefreshRotation},
		authmode.Features(authmode.ModeOAuth))
	require.Equal(t, []authmode.Feature{authmode.FeatureInstantLogin},
		authmode.Features(authmode.ModeMock))
	require.Empty(t, authmode.Features("unknown_mode"))
}
