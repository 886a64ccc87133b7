package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"

	"github.com/onboardhq/hr-assistant/msgraph/tokencache"
)

// Reserved OAuth2 scopes the authenticator always requests on top of the
// configured resource scopes. offline_access is required for refresh tokens
// on the v2.0 endpoint.
var reservedScopes = []string{"openid", "profile", "offline_access"}

// Endpoints holds the identity provider URLs the device flow talks to.
// Normally resolved through OIDC discovery; tests inject them directly.
type Endpoints struct {
	DeviceAuthURL string
	TokenURL      string
}

// Options configures an Authenticator.
type Options struct {
	ClientID  string
	Authority string // OIDC issuer, e.g. https://login.microsoftonline.com/consumers/v2.0
	Scopes    []string
	Timeout   time.Duration

	// Endpoints overrides discovery when set.
	Endpoints *Endpoints

	Cache *tokencache.Cache
	Store *tokencache.FileStore
}

// Authenticator owns the device-flow lifecycle and the silent token path for
// a single app registration. It never blocks on interactive input: callers
// drive the flow through InitiateDeviceFlow and repeated PollDeviceFlow calls.
type Authenticator struct {
	clientID  string
	scopes    []string
	endpoints Endpoints
	client    *http.Client
	verifier  *oidc.IDTokenVerifier

	cache *tokencache.Cache
	store *tokencache.FileStore
}

// New builds an Authenticator, resolving the provider endpoints through OIDC
// discovery unless opts.Endpoints is set.
func New(ctx context.Context, opts Options) (*Authenticator, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("msgraph.New: client id is required")
	}
	if opts.Cache == nil || opts.Store == nil {
		return nil, fmt.Errorf("msgraph.New: cache and store are required")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	a := &Authenticator{
		clientID: opts.ClientID,
		scopes:   append(append([]string{}, opts.Scopes...), reservedScopes...),
		client:   &http.Client{Timeout: timeout},
		cache:    opts.Cache,
		store:    opts.Store,
	}

	if opts.Endpoints != nil {
		a.endpoints = *opts.Endpoints
		return a, nil
	}

	provider, err := oidc.NewProvider(ctx, opts.Authority)
	if err != nil {
		return nil, fmt.Errorf("msgraph.New: discover authority %q: %w", opts.Authority, err)
	}
	endpoint := provider.Endpoint()
	if endpoint.DeviceAuthURL == "" {
		return nil, fmt.Errorf("msgraph.New: authority %q does not advertise a device authorization endpoint", opts.Authority)
	}
	a.endpoints = Endpoints{DeviceAuthURL: endpoint.DeviceAuthURL, TokenURL: endpoint.TokenURL}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: opts.ClientID})
	return a, nil
}

// tokenResponse is the provider's token endpoint response, RFC 6749 wire
// format plus the RFC 8628 device-flow error codes.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// postTokenRequest issues one form-encoded request to the token endpoint and
// decodes the response. Provider error codes come back inside tokenResponse;
// err is only set for transport or decoding failures.
func (a *Authenticator) postTokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &tr, nil
}

func (a *Authenticator) scopeString() string {
	return strings.Join(a.scopes, " ")
}

// persistCache saves the cache after any operation that may have mutated it.
// Persistence failures are logged, never fatal: correctness does not depend
// on the write, only re-authentication after restart does.
func (a *Authenticator) persistCache() {
	if err := a.store.Save(a.cache); err != nil {
		log.Error().Err(err).Msg("token cache save failed")
	}
}

// Logout clears the persisted cache and all accounts.
func (a *Authenticator) Logout() error {
	return a.store.Clear(a.cache)
}
