package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Session
	RouteAuthSession = "/auth/session"

	// Auth Routes - OAuth flow legs
	RouteAuthInitiate = "/auth/oauth/initiate"
	RouteAuthCallback = "/auth/callback"

	// Tenant Routes
	RouteTenantSwitch = "/auth/tenant/{id}"

	// Operational Routes
	RouteHealthz = "/healthz"
)
