package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// DeviceFlow is the provider-issued descriptor governing one authentication
// attempt. Immutable once issued; discarded when the flow reaches a terminal
// state.
type DeviceFlow struct {
	// DeviceCode is the secret the poller presents to the token endpoint.
	DeviceCode string `json:"device_code"`
	// UserCode is the short code the user types at the verification URL.
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	// Message is the provider's ready-made instruction for display.
	Message string `json:"message"`
	// ExpiresIn is the descriptor's validity window in seconds from issuance.
	ExpiresIn int `json:"expires_in"`
	// Interval is the minimum number of seconds between polls.
	Interval int `json:"interval"`
}

// InitiateDeviceFlow starts a new device-code authorization request. It makes
// exactly one network call and does not touch the token cache.
func (a *Authenticator) InitiateDeviceFlow(ctx context.Context) (*DeviceFlow, error) {
	form := url.Values{
		"client_id": {a.clientID},
		"scope":     {a.scopeString()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.DeviceAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrFlowInitiationFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlowInitiationFailed, err)
	}
	defer resp.Body.Close()

	var flow struct {
		DeviceFlow
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&flow); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrFlowInitiationFailed, err)
	}

	// A usable flow always carries both codes. Anything else means the app
	// registration does not support the device grant or the request failed.
	if flow.UserCode == "" || flow.DeviceCode == "" {
		if flow.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrFlowInitiationFailed, flow.Error, flow.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: provider returned no device/user code (status %d)", ErrFlowInitiationFailed, resp.StatusCode)
	}

	if flow.ExpiresIn == 0 {
		flow.ExpiresIn = 900
	}
	if flow.Interval == 0 {
		flow.Interval = 5
	}

	log.Info().Str("user_code", flow.UserCode).Msg("device flow initiated")
	return &flow.DeviceFlow, nil
}
