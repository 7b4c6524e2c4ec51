// Package config exposes the gateway configuration as small composable
// interfaces backed by environment variables with sensible defaults.
package config

type Config interface {
	EnvConfig
	UpstreamConfig
	OAuthConfig
	SecurityConfig
	CorsConfig
}

type mainConfig struct {
	EnvVars
	Upstream
	OAuth
	Security
	Cors
}

func New() Config {
	return mainConfig{}
}
