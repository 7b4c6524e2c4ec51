package config

import "time"

type SecurityConfig interface {
	IsProduction() bool
	GetCookieDomain() string
	GetMaxSessionAge() time.Duration
	GetSessionRenewAfter() time.Duration
	GetLockoutThreshold() int
	GetLockoutDuration() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) IsProduction() bool {
	return EnvVars{}.GetEnv() == "PROD"
}

// GetCookieDomain is only applied in production; development cookies are
// host-scoped.
func (Security) GetCookieDomain() string {
	return GetEnv("COOKIE_DOMAIN", "")
}

func (Security) GetMaxSessionAge() time.Duration {
	return 12 * time.Hour
}

// GetSessionRenewAfter is the elapsed age after which the next session
// check rolls the session forward.
func (Security) GetSessionRenewAfter() time.Duration {
	return 11 * time.Hour
}

func (Security) GetLockoutThreshold() int {
	return 5
}

func (Security) GetLockoutDuration() time.Duration {
	return 15 * time.Minute
}
