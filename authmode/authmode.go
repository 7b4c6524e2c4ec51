// Package authmode resolves which credential backend the gateway runs
// against. The mode is read once from the environment and cached for the
// lifetime of the process; there is no hot reload.
package authmode

import (
	"os"
	"strings"
	"sync"
)

// Mode selects the active credential backend.
type Mode string

const (
	// ModeMock authenticates against the in-process directory. Local and
	// test execution only.
	ModeMock Mode = "mock"
	// ModeOAuth runs the authorization-code flow with PKCE against a
	// standards OIDC provider.
	ModeOAuth Mode = "oauth"
	// ModeLegacy proxies credentials and cookies to the legacy identity
	// server.
	ModeLegacy Mode = "legacy"
)

// EnvVar is the single configuration variable that selects the mode.
const EnvVar = "AUTH_MODE"

var (
	resolveOnce sync.Once
	resolved    Mode
)

// Resolve returns the process-wide Mode. The environment is read on the
// first call only; repeated calls return the same value.
func Resolve() Mode {
	resolveOnce.Do(func() {
		resolved = Parse(os.Getenv(EnvVar))
	})
	return resolved
}

// ResolveFresh reads the environment on every call, bypassing the cache.
// Intended for tests.
func ResolveFresh() Mode {
	return Parse(os.Getenv(EnvVar))
}

// Parse maps a raw configuration string to a Mode. Matching is
// case-insensitive; unset or unrecognized values default to ModeOAuth.
func Parse(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeMock):
		return ModeMock
	case string(ModeOAuth):
		return ModeOAuth
	case string(ModeLegacy):
		return ModeLegacy
	default:
		return ModeOAuth
	}
}

// Feature names a capability a backend may or may not provide.
type Feature string

const (
	FeaturePKCE            Feature = "pkce"
	FeaturePasswordReset   Feature = "password_reset"
	FeatureRefreshRotation Feature = "refresh_rotation"
	FeatureInstantLogin    Feature = "instant_login"
)

var capabilities = map[Mode]map[Feature]bool{
	ModeMock: {
		FeatureInstantLogin: true,
	},
	ModeOAuth: {
		FeaturePKCE:            true,
		FeatureRefreshRotation: true,
	},
	ModeLegacy: {
		FeaturePasswordReset: true,
	},
}

// Supports answers capability queries for gating behaviour elsewhere.
// Unknown modes and unknown features return false.
func Supports(mode Mode, feature Feature) bool {
	return capabilities[mode][feature]
}

// Features lists the capabilities of a mode in a stable order.
func Features(mode Mode) []Feature {
	all := []Feature{FeaturePKCE, FeaturePasswordReset, FeatureRefreshRotation, FeatureInstantLogin}
	out := make([]Feature, 0, len(all))
	for _, f := range all {
		if Supports(mode, f) {
			out = append(out, f)
		}
	}
	return out
}
