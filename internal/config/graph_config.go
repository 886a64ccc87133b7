package config

import "time"

// GraphConfig carries the Microsoft identity platform settings used by the
// device-flow authenticator and the Graph client.
type GraphConfig interface {
	GetGraphClientID() string
	GetGraphTenantID() string
	GetGraphAuthority() string
	GetGraphScopes() []string
	GetTokenCacheFile() string
	GetProviderTimeout() time.Duration
	GetFlowSweepInterval() time.Duration
}

type Graph struct{}

var _ GraphConfig = Graph{}

func (Graph) GetGraphClientID() string {
	return GetEnv("MS_GRAPH_CLIENT_ID", "")
}

// GetGraphTenantID defaults to "consumers": the app registration targets
// personal Microsoft accounts.
func (Graph) GetGraphTenantID() string {
	return GetEnv("MS_GRAPH_TENANT_ID", "consumers")
}

func (g Graph) GetGraphAuthority() string {
	return "https://login.microsoftonline.com/" + g.GetGraphTenantID() + "/v2.0"
}

// GetGraphScopes is the fixed scope set requested by every flow: profile read
// plus read/write calendar access.
func (Graph) GetGraphScopes() []string {
	return []string{"User.Read", "Calendars.ReadWrite"}
}

func (Graph) GetTokenCacheFile() string {
	return GetEnv("TOKEN_CACHE_FILE", "ms_graph_token_cache.bin")
}

// GetProviderTimeout bounds every round trip to the identity provider. This is
// a request timeout, distinct from the device code's own expires_in window.
func (Graph) GetProviderTimeout() time.Duration {
	return 15 * time.Second
}

func (Graph) GetFlowSweepInterval() time.Duration {
	return time.Minute
}
