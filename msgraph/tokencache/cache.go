package tokencache

import (
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Account identifies a cached identity. HomeAccountID is the provider's stable
// account key (oid.tid for Microsoft accounts); Username is the human-readable
// login hint.
type Account struct {
	HomeAccountID string `json:"home_account_id"`
	Username      string `json:"username"`
	Name          string `json:"name,omitempty"`
}

type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

type serializedCache struct {
	Accounts []Account              `json:"accounts"`
	Tokens   map[string]cachedToken `json:"tokens"`
}

// Cache holds zero or more cached accounts and their tokens. It is the sole
// in-process source of truth for "is some account logged in". The serialized
// form is opaque to callers; only this package reads it.
type Cache struct {
	mu       sync.Mutex
	accounts []Account
	tokens   map[string]cachedToken
	dirty    bool
}

func New() *Cache {
	return &Cache{tokens: make(map[string]cachedToken)}
}

// Accounts returns a copy of the cached accounts, oldest first.
func (c *Cache) Accounts() []Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Account, len(c.accounts))
	copy(out, c.accounts)
	return out
}

// Token returns the token cached for the given account, or false if none.
func (c *Cache) Token(homeAccountID string) (*oauth2.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct, ok := c.tokens[homeAccountID]
	if !ok {
		return nil, false
	}
	return &oauth2.Token{
		AccessToken:  ct.AccessToken,
		RefreshToken: ct.RefreshToken,
		TokenType:    ct.TokenType,
		Expiry:       ct.Expiry,
	}, true
}

// Put stores or replaces the token for an account and marks the cache dirty.
// A token with an empty refresh token keeps the previously cached refresh
// token: Microsoft does not always rotate it on silent renewal.
func (c *Cache) Put(acct Account, tok *oauth2.Token, scopes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	refresh := tok.RefreshToken
	if refresh == "" {
		if prev, ok := c.tokens[acct.HomeAccountID]; ok {
			refresh = prev.RefreshToken
		}
	}

	if _, ok := c.tokens[acct.HomeAccountID]; !ok {
		c.accounts = append(c.accounts, acct)
	}
	c.tokens[acct.HomeAccountID] = cachedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}
	c.dirty = true
}

// RemoveAll empties the cache and marks it dirty.
func (c *Cache) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = nil
	c.tokens = make(map[string]cachedToken)
	c.dirty = true
}

// HasStateChanged reports whether the cache content changed since the last
// successful load or save.
func (c *Cache) HasStateChanged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Marshal serializes the cache. The result is an opaque blob owned by this
// package.
func (c *Cache) Marshal() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(serializedCache{Accounts: c.accounts, Tokens: c.tokens})
}

// Unmarshal replaces the cache content with a previously marshaled blob and
// clears the dirty flag.
func (c *Cache) Unmarshal(data []byte) error {
	var sc serializedCache
	if err := json.Unmarshal(data, &sc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts = sc.Accounts
	c.tokens = sc.Tokens
	if c.tokens == nil {
		c.tokens = make(map[string]cachedToken)
	}
	c.dirty = false
	return nil
}

func (c *Cache) markSaved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}
