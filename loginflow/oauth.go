package loginflow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spearfish/auth-gateway/autherr"
	"github.com/spearfish/auth-gateway/authmode"
	"github.com/spearfish/auth-gateway/loginflow/authstate"
	"github.com/spearfish/auth-gateway/session"
	"golang.org/x/oauth2"
)

const codeChallengeMethodS256 = "S256"

// OAuthConfig locates the OIDC provider and describes this client.
type OAuthConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StateLength  int
	StateTimeout time.Duration
}

var _ Flow = (*OAuthFlow)(nil)

// OAuthFlow runs the authorization-code flow with mandatory S256 PKCE.
// No password ever touches this client; Submit only hands back the
// redirect target.
type OAuthFlow struct {
	cfg        OAuthConfig
	states     authstate.Repo
	httpClient *http.Client
	now        func() time.Time

	// Discovery is fetched once and cached for the process lifetime.
	mu       sync.Mutex
	provider *oidc.Provider
	oauthCfg *oauth2.Config
}

type OAuthFlowOption func(*OAuthFlow)

// WithOAuthHTTPClient overrides the transport used for discovery and
// token exchange (primarily for testing).
func WithOAuthHTTPClient(httpClient *http.Client) OAuthFlowOption {
	return func(f *OAuthFlow) { f.httpClient = httpClient }
}

func WithOAuthNowFunc(now func() time.Time) OAuthFlowOption {
	return func(f *OAuthFlow) { f.now = now }
}

func NewOAuthFlow(cfg OAuthConfig, states authstate.Repo, options ...OAuthFlowOption) *OAuthFlow {
	if cfg.StateLength == 0 {
		cfg.StateLength = 32
	}
	if cfg.StateTimeout == 0 {
		cfg.StateTimeout = 15 * time.Minute
	}
	f := &OAuthFlow{
		cfg:    cfg,
		states: states,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *OAuthFlow) Mode() authmode.Mode { return authmode.ModeOAuth }

// discoveryClaims are the discovery-document fields the gateway depends
// on. Absence of any is a configuration error, not a degraded mode.
type discoveryClaims struct {
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint"`
	CodeChallengeMethods  []string `json:"code_challenge_methods_supported"`
}

func (f *OAuthFlow) discover(ctx context.Context) (*oidc.Provider, *oauth2.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provider != nil {
		return f.provider, f.oauthCfg, nil
	}

	if f.httpClient != nil {
		ctx = oidc.ClientContext(ctx, f.httpClient)
	}

	provider, err := oidc.NewProvider(ctx, f.cfg.IssuerURL)
	if err != nil {
		return nil, nil, autherr.Wrap(autherr.CodeConfiguration, err, "fetching discovery document")
	}

	var claims discoveryClaims
	if err := provider.Claims(&claims); err != nil {
		return nil, nil, autherr.Wrap(autherr.CodeConfiguration, err, "parsing discovery document")
	}
	if claims.AuthorizationEndpoint == "" || claims.TokenEndpoint == "" || claims.UserinfoEndpoint == "" {
		return nil, nil, autherr.New(autherr.CodeConfiguration, "discovery document missing required endpoints")
	}
	if !supportsS256(claims.CodeChallengeMethods) {
		return nil, nil, autherr.New(autherr.CodeConfiguration, "provider does not advertise S256 code challenge support")
	}

	f.provider = provider
	f.oauthCfg = &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  f.cfg.RedirectURL,
		Scopes:       f.cfg.Scopes,
	}
	return f.provider, f.oauthCfg, nil
}

func supportsS256(methods []string) bool {
	for _, m := range methods {
		if m == codeChallengeMethodS256 {
			return true
		}
	}
	return false
}

// Initiate builds the authorization URL with response_type=code, the
// scope list, and an S256 proof-key challenge, storing the verifier and
// nonce under the state parameter.
func (f *OAuthFlow) Initiate(ctx context.Context) (*Redirect, error) {
	_, oauthCfg, err := f.discover(ctx)
	if err != nil {
		return nil, err
	}

	verifier := generateRandomString(f.cfg.StateLength)
	state := generateRandomString(f.cfg.StateLength)
	nonce := generateRandomString(f.cfg.StateLength)

	if err := f.states.Upsert(state, &authstate.State{
		CodeVerifier: verifier,
		Nonce:        nonce,
		CreatedAt:    f.now(),
	}); err != nil {
		return nil, autherr.Wrap(autherr.CodeUnexpectedError, err, "storing flow state")
	}

	authURL := oauthCfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", codeChallengeMethodS256),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
	return &Redirect{URL: authURL}, nil
}

// Submit hands back the redirect target; the oauth variant never
// evaluates credentials.
func (f *OAuthFlow) Submit(ctx context.Context, _ SubmitRequest) (Result, error) {
	redirect, err := f.Initiate(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{RedirectURL: redirect.URL}, nil
}

// HandleCallback exchanges the authorization code for tokens, verifies
// the ID token and nonce, and normalizes the claims into a Session.
func (f *OAuthFlow) HandleCallback(ctx context.Context, params CallbackParams) (Result, error) {
	if params.Error != "" {
		code := autherr.CodeProviderError
		if params.Error == "access_denied" {
			code = autherr.CodeAccessDenied
		}
		return Result{Err: autherr.Newf(code, "%s: %s", params.Error, params.ErrorDescription)}, nil
	}
	if params.Code == "" || params.State == "" {
		return Result{Err: autherr.New(autherr.CodeOIDCError, "missing code or state parameter")}, nil
	}

	flowState, err := f.states.Get(params.State)
	if err != nil {
		return Result{Err: autherr.Wrap(autherr.CodeOIDCError, err, "unknown state parameter")}, nil
	}
	// State is single use regardless of outcome.
	_ = f.states.Delete(params.State)

	if f.now().Sub(flowState.CreatedAt) > f.cfg.StateTimeout {
		return Result{Err: autherr.New(autherr.CodeOIDCError, "authorization flow expired")}, nil
	}

	provider, oauthCfg, err := f.discover(ctx)
	if err != nil {
		return Result{}, err
	}
	if f.httpClient != nil {
		ctx = oidc.ClientContext(ctx, f.httpClient)
	}

	oauth2Token, err := oauthCfg.Exchange(ctx, params.Code,
		oauth2.SetAuthURLParam("code_verifier", flowState.CodeVerifier),
	)
	if err != nil {
		return Result{}, autherr.Wrap(autherr.CodeOIDCError, err, "token exchange failed")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return Result{}, autherr.New(autherr.CodeOIDCError, "no ID token in token response")
	}

	idToken, err := provider.Verifier(&oidc.Config{ClientID: f.cfg.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return Result{}, autherr.Wrap(autherr.CodeTokenInvalid, err, "ID token verification failed")
	}

	var claims session.ProviderClaims
	if err := idToken.Claims(&claims); err != nil {
		return Result{}, autherr.Wrap(autherr.CodeOIDCError, err, "extracting ID token claims")
	}
	if claims.Nonce != flowState.Nonce {
		return Result{}, autherr.New(autherr.CodeOIDCError, "nonce mismatch")
	}

	s := session.FromProviderClaims(claims)
	s.RefreshToken = oauth2Token.RefreshToken
	s.AccessToken = oauth2Token.AccessToken

	return Result{OK: true, Session: &s, RedirectURL: flowState.ReturnURL}, nil
}

// generateRandomString creates a random base64url string.
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// generateCodeChallenge creates a PKCE code challenge from a verifier.
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
