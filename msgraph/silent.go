package msgraph

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// expiryMargin is how long before the recorded expiry a cached access token
// stops counting as valid, so tokens are not handed out mid-request death.
const expiryMargin = 2 * time.Minute

// AcquireToken returns a usable bearer token or ErrAuthenticationRequired.
// It is for code paths that require a user already logged in (calendar tools
// invoked from chat) rather than being responsible for initiating login.
func (a *Authenticator) AcquireToken(ctx context.Context) (string, error) {
	return a.acquireSilent(ctx)
}

// AcquireTokenSilent tries the cache/refresh path and reports plain failure
// instead of an error: "not authenticated" is an expected state, not a fault.
func (a *Authenticator) AcquireTokenSilent(ctx context.Context) (string, bool) {
	token, err := a.acquireSilent(ctx)
	if err != nil {
		return "", false
	}
	return token, true
}

// IsAuthenticated is cheap enough to call on every page load: when the cached
// access token is still valid no network round trip happens.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	_, ok := a.AcquireTokenSilent(ctx)
	return ok
}

// acquireSilent resolves a token for the first cached account. The service
// fronts a single local user, so one account is the steady state.
func (a *Authenticator) acquireSilent(ctx context.Context) (string, error) {
	accounts := a.cache.Accounts()
	if len(accounts) == 0 {
		return "", ErrAuthenticationRequired
	}

	acct := accounts[0]
	tok, ok := a.cache.Token(acct.HomeAccountID)
	if !ok {
		return "", ErrAuthenticationRequired
	}

	if tok.AccessToken != "" && time.Until(tok.Expiry) > expiryMargin {
		return tok.AccessToken, nil
	}

	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: cached token expired and no refresh token", ErrAuthenticationRequired)
	}

	refreshed, err := a.refreshToken(ctx, tok)
	if err != nil {
		// Expired refresh token, revoked consent, network failure: all of
		// them mean the same thing to the caller.
		log.Warn().Err(err).Str("account", acct.Username).Msg("silent token acquisition failed")
		return "", fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
	}

	a.cache.Put(acct, refreshed, a.scopes)
	a.persistCache()
	log.Info().Str("account", acct.Username).Msg("access token refreshed from cache")
	return refreshed.AccessToken, nil
}

// refreshToken redeems a refresh token for a fresh access token.
func (a *Authenticator) refreshToken(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {a.clientID},
		"refresh_token": {tok.RefreshToken},
		"scope":         {a.scopeString()},
	}

	tr, err := a.postTokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		if tr.Error != "" {
			return nil, fmt.Errorf("token refresh rejected: %s: %s", tr.Error, tr.ErrorDescription)
		}
		return nil, fmt.Errorf("token refresh returned no access token")
	}

	return &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Expiry:       time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
