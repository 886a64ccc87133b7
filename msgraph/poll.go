package msgraph

import (
	"context"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/onboardhq/hr-assistant/msgraph/tokencache"
)

// PollStatus is the state a poll left the flow in.
type PollStatus string

const (
	// StatusPending means the user has not finished the browser step yet.
	// This is the expected repeated outcome, not an error.
	StatusPending PollStatus = "pending"
	// StatusAuthenticated is the terminal success state.
	StatusAuthenticated PollStatus = "authenticated"
	// StatusExpired means the device code's validity window elapsed.
	StatusExpired PollStatus = "expired"
	// StatusError covers declined and other terminal provider errors.
	StatusError PollStatus = "error"
	// StatusInvalidFlow means the descriptor is malformed (no device code).
	StatusInvalidFlow PollStatus = "invalid_flow"
	// StatusNotFound means the flow id is unknown to the registry.
	StatusNotFound PollStatus = "not_found"
)

// PollResult is the tagged outcome of advancing a device flow by one step.
type PollResult struct {
	Status           PollStatus
	Token            *oauth2.Token
	ErrorCode        string
	ErrorDescription string
}

// Terminal reports whether the flow is finished, successfully or not.
func (r PollResult) Terminal() bool {
	return r.Status != StatusPending
}

const restartMessage = "The authentication code has expired. Please start a new authentication flow."

// PollDeviceFlow advances one outstanding device flow by exactly one token
// endpoint round trip. It never blocks beyond that request and never panics:
// transport and parsing failures are reported as a retryable pending result
// so the client keeps polling.
func (a *Authenticator) PollDeviceFlow(ctx context.Context, flow *DeviceFlow) PollResult {
	if flow == nil || flow.DeviceCode == "" {
		return PollResult{
			Status:           StatusInvalidFlow,
			ErrorCode:        "invalid_flow",
			ErrorDescription: "invalid device flow structure",
		}
	}

	form := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {a.clientID},
		"device_code": {flow.DeviceCode},
	}

	tr, err := a.postTokenRequest(ctx, form)
	if err != nil {
		// Timeouts and decode failures are retryable, never flow expiry.
		log.Warn().Err(err).Msg("device flow poll failed, will retry")
		return PollResult{Status: StatusPending}
	}

	switch {
	case tr.AccessToken != "":
		return a.completeFlow(tr)
	case tr.Error == "authorization_pending" || tr.Error == "slow_down":
		return PollResult{Status: StatusPending}
	case tr.Error == "expired_token":
		log.Warn().Msg("device code expired")
		return PollResult{
			Status:           StatusExpired,
			ErrorCode:        tr.Error,
			ErrorDescription: restartMessage,
		}
	case tr.Error != "":
		// Declined, bad verification code, etc. Preserve the provider's
		// code and description verbatim for diagnostics.
		log.Warn().Str("error", tr.Error).Str("description", tr.ErrorDescription).
			Msg("device flow authentication error")
		desc := tr.ErrorDescription
		if desc == "" {
			desc = "Error: " + tr.Error
		}
		return PollResult{Status: StatusError, ErrorCode: tr.Error, ErrorDescription: desc}
	default:
		return PollResult{Status: StatusPending}
	}
}

// completeFlow caches the freshly issued token and persists the cache.
func (a *Authenticator) completeFlow(tr *tokenResponse) PollResult {
	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Expiry:       time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	a.cache.Put(a.accountFromTokens(tr), tok, a.scopes)
	a.persistCache()
	log.Info().Msg("access token acquired via device flow")
	return PollResult{Status: StatusAuthenticated, Token: tok}
}

// accountFromTokens derives the cached account identity from the token claims.
// The id token is preferred; signature verification is not needed here because
// the token came straight from the provider over TLS and is only used to label
// the local cache entry.
func (a *Authenticator) accountFromTokens(tr *tokenResponse) tokencache.Account {
	raw := tr.IDToken
	if raw == "" {
		raw = tr.AccessToken
	}

	acct := tokencache.Account{HomeAccountID: "default"}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		log.Debug().Err(err).Msg("token is not a parseable JWT, using default account")
		return acct
	}

	oid, _ := claims["oid"].(string)
	tid, _ := claims["tid"].(string)
	if oid != "" && tid != "" {
		acct.HomeAccountID = oid + "." + tid
	} else if sub, _ := claims["sub"].(string); sub != "" {
		acct.HomeAccountID = sub
	}
	if username, _ := claims["preferred_username"].(string); username != "" {
		acct.Username = username
	}
	if name, _ := claims["name"].(string); name != "" {
		acct.Name = name
	}
	return acct
}
