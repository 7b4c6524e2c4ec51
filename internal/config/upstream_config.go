package config

import "time"

// UpstreamConfig locates the legacy identity server that the proxy
// routes forward to when the gateway runs in legacy mode.
type UpstreamConfig interface {
	GetLegacyBaseURL() string
	GetLegacyLoginPath() string
	GetLegacySessionPath() string
	GetLegacyTenantSwitchPath() string
	GetUpstreamTimeout() time.Duration
}

type Upstream struct{}

var _ UpstreamConfig = Upstream{}

func (Upstream) GetLegacyBaseURL() string {
	return GetEnv("LEGACY_BASE_URL", "http://localhost:9090")
}

func (Upstream) GetLegacyLoginPath() string {
	return GetEnv("LEGACY_LOGIN_PATH", "/api/auth/login")
}

func (Upstream) GetLegacySessionPath() string {
	return GetEnv("LEGACY_SESSION_PATH", "/api/auth/session")
}

func (Upstream) GetLegacyTenantSwitchPath() string {
	return GetEnv("LEGACY_TENANT_SWITCH_PATH", "/api/auth/tenant")
}

func (Upstream) GetUpstreamTimeout() time.Duration {
	return 30 * time.Second
}
