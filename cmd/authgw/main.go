package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/redis/go-redis/v9"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/directory"
	"github.com/spearfish/auth-gateway/internal/config"
	"github.com/spearfish/auth-gateway/lockout"
	"github.com/spearfish/auth-gateway/loginflow"
	"github.com/spearfish/auth-gateway/loginflow/authstate"
	"github.com/spearfish/auth-gateway/server"
	"github.com/spearfish/auth-gateway/session"
	"github.com/spearfish/auth-gateway/tenants"
	"github.com/spearfish/auth-gateway/upstream"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	deps, err := wireDeps(context.Background(), c)
	if err != nil {
		return fmt.Errorf("wireDeps: %w", err)
	}
	log.Printf("Auth mode: %s\n", deps.Mode)

	httpServer := &http.Server{Addr: c.GetPort(), Handler: server.New(c, deps)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// wireDeps assembles the mode-specific login flow and the shared
// session/lockout storage. REDIS_ADDR switches storage from in-memory
// to Redis.
func wireDeps(ctx context.Context, c config.Config) (server.Deps, error) {
	mode := authmode.Resolve()

	sessionRepo, lockoutStore := newStores(c)

	managerOptions := []session.ManagerOption{
		session.WithLifetime(c.GetMaxSessionAge(), c.GetSessionRenewAfter()),
	}

	var engine *loginflow.Engine
	var legacyClient *upstream.Client

	switch mode {
	case authmode.ModeMock:
		users := directory.NewInMemoryRepo()
		if err := directory.Seed(users); err != nil {
			return server.Deps{}, fmt.Errorf("seeding directory: %w", err)
		}
		signer := loginflow.NewTokenSigner([]byte(c.GetClientSecret()), c.GetClientID(), c.GetMaxSessionAge())
		engine = loginflow.NewEngine(loginflow.NewMockFlow(users, signer))

	case authmode.ModeOAuth:
		tokenURL, revokeURL, err := discoverEndpoints(ctx, c.GetIssuerURL())
		if err != nil {
			return server.Deps{}, err
		}
		managerOptions = append(managerOptions, session.WithEndpoints(tokenURL, revokeURL, c.GetClientID()))

		flow := loginflow.NewOAuthFlow(loginflow.OAuthConfig{
			IssuerURL:    c.GetIssuerURL(),
			ClientID:     c.GetClientID(),
			ClientSecret: c.GetClientSecret(),
			RedirectURL:  c.GetRedirectURL(),
			Scopes:       c.GetScopes(),
			StateLength:  c.GetStateLength(),
			StateTimeout: c.GetAuthStateTimeout(),
		}, authstate.NewInMemoryRepo())
		engine = loginflow.NewEngine(flow)

	case authmode.ModeLegacy:
		legacyClient = upstream.NewClient(c.GetLegacyBaseURL(), c.GetUpstreamTimeout())
		engine = loginflow.NewEngine(loginflow.NewLegacyFlow(legacyClient, c.GetLegacyLoginPath()))

	default:
		return server.Deps{}, fmt.Errorf("unhandled auth mode %q", mode)
	}

	return server.Deps{
		Mode:     mode,
		Engine:   engine,
		Sessions: session.NewManager(sessionRepo, managerOptions...),
		Lockouts: lockoutStore,
		Tenants: tenants.NewInMemoryRepo(
			&tenants.Tenant{ID: 1, Name: "Spearfish", Type: "primary"},
			&tenants.Tenant{ID: 2, Name: "Spearfish Labs", Type: "secondary"},
		),
		Legacy: legacyClient,
	}, nil
}

func newStores(c config.Config) (session.Repo, lockout.Store) {
	addr := c.GetRedisAddr()
	if addr == "" {
		return session.NewInMemoryRepo(), lockout.NewInMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: c.GetRedisPassword(),
	})
	return session.NewRedisRepo(client, c.GetMaxSessionAge()),
		lockout.NewRedisStore(client,
			lockout.WithRedisThreshold(c.GetLockoutThreshold()),
			lockout.WithRedisLockDuration(c.GetLockoutDuration()))
}

// discoverEndpoints resolves the token and revocation endpoints from the
// provider's discovery document.
func discoverEndpoints(ctx context.Context, issuerURL string) (string, string, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return "", "", fmt.Errorf("oidc.NewProvider: %w", err)
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return "", "", fmt.Errorf("discovery claims: %w", err)
	}
	return provider.Endpoint().TokenURL, extra.RevocationEndpoint, nil
}

func listenAndServe(httpServer *http.Server) error {
	log.Printf("Server listening on %s\n", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
