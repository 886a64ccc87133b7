package tokencache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/onboardhq/hr-assistant/msgraph/tokencache"
)

var testAccount = tokencache.Account{
	HomeAccountID: "oid-1.tid-1",
	Username:      "jane.doe@example.com",
	Name:          "Jane Doe",
}

func newToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       time.Now().UTC().Add(time.Hour),
	}
}

func TestCacheStartsEmptyAndClean(t *testing.T) {
	c := tokencache.New()

	require.Empty(t, c.Accounts())
	require.False(t, c.HasStateChanged())

	_, ok := c.Token(testAccount.HomeAccountID)
	require.False(t, ok)
}

func TestPutStoresAccountAndMarksDirty(t *testing.T) {
	c := tokencache.New()
	c.Put(testAccount, newToken("access-1", "refresh-1"), []string{"User.Read"})

	require.True(t, c.HasStateChanged())

	accounts := c.Accounts()
	require.Len(t, accounts, 1)
	require.Equal(t, testAccount, accounts[0])

	tok, ok := c.Token(testAccount.HomeAccountID)
	require.True(t, ok)
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestPutReplacesTokenWithoutDuplicatingAccount(t *testing.T) {
	c := tokencache.New()
	c.Put(testAccount, newToken("access-1", "refresh-1"), nil)
	c.Put(testAccount, newToken("access-2", "refresh-2"), nil)

	require.Len(t, c.Accounts(), 1)

	tok, ok := c.Token(testAccount.HomeAccountID)
	require.True(t, ok)
	require.Equal(t, "access-2", tok.AccessToken)
	require.Equal(t, "refresh-2", tok.RefreshToken)
}

func TestPutKeepsPreviousRefreshTokenWhenOmitted(t *testing.T) {
	c := tokencache.New()
	c.Put(testAccount, newToken("access-1", "refresh-1"), nil)

	// Microsoft does not always rotate the refresh token on renewal.
	c.Put(testAccount, newToken("access-2", ""), nil)

	tok, ok := c.Token(testAccount.HomeAccountID)
	require.True(t, ok)
	require.Equal(t, "access-2", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestRemoveAllEmptiesCache(t *testing.T) {
	c := tokencache.New()
	c.Put(testAccount, newToken("access-1", "refresh-1"), nil)

	c.RemoveAll()

	require.Empty(t, c.Accounts())
	require.True(t, c.HasStateChanged())

	_, ok := c.Token(testAccount.HomeAccountID)
	require.False(t, ok)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	c := tokencache.New()
	c.Put(testAccount, newToken("access-1", "refresh-1"), []string{"User.Read", "Calendars.ReadWrite"})

	data, err := c.Marshal()
	require.NoError(t, err)

	restored := tokencache.New()
	require.NoError(t, restored.Unmarshal(data))

	// A freshly loaded cache has nothing to persist.
	require.False(t, restored.HasStateChanged())

	accounts := restored.Accounts()
	require.Len(t, accounts, 1)
	require.Equal(t, testAccount, accounts[0])

	tok, ok := restored.Token(testAccount.HomeAccountID)
	require.True(t, ok)
	require.Equal(t, "access-1", tok.AccessToken)
	require.Equal(t, "refresh-1", tok.RefreshToken)
}

func TestUnmarshalRejectsCorruptBlob(t *testing.T) {
	c := tokencache.New()
	require.Error(t, c.Unmarshal([]byte("not json")))
}
