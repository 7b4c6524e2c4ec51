package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/internal/config"
	"github.com/spearfish/auth-gateway/lockout"
	"github.com/spearfish/auth-gateway/loginflow"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/tenants"
	"github.com/spearfish/auth-gateway/upstream"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	mode     authmode.Mode
	engine   *loginflow.Engine
	sessions *session.Manager
	cookies  session.CookiePolicy
	lockouts lockout.Store
	tenants  tenants.Repo
	legacy   *upstream.Client
	now      func() time.Time
}

type Option func(*Server)

// WithNowFunc sets the clock used for lockout evaluation (testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Deps are the wired collaborators the server routes against. Legacy may
// be nil for the mock and oauth modes.
type Deps struct {
	Mode     authmode.Mode
	Engine   *loginflow.Engine
	Sessions *session.Manager
	Lockouts lockout.Store
	Tenants  tenants.Repo
	Legacy   *upstream.Client
}

func New(cfg config.Config, deps Deps, options ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		mode:     deps.Mode,
		engine:   deps.Engine,
		sessions: deps.Sessions,
		lockouts: deps.Lockouts,
		tenants:  deps.Tenants,
		legacy:   deps.Legacy,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.env = cfg.GetEnv()
	s.cookies = session.CookiePolicy{
		Production: cfg.IsProduction(),
		Domain:     cfg.GetCookieDomain(),
		MaxAge:     cfg.GetMaxSessionAge(),
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Info().Str("path", parts[0]).Msg("route")
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
