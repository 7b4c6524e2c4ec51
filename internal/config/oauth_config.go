package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetScopes() []string
	GetStateLength() int
	GetAuthStateTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (OAuth) GetClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "auth-gateway")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (o OAuth) GetRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/auth/callback")
}

func (OAuth) GetScopes() []string {
	scopes := GetEnv("OIDC_SCOPES", "openid profile email offline_access")
	return strings.Fields(scopes)
}

func (OAuth) GetStateLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetAuthStateTimeout bounds how long a started authorization flow may
// stay pending before its state is discarded.
func (OAuth) GetAuthStateTimeout() time.Duration {
	return 15 * time.Minute
}
