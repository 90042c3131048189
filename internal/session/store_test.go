package session

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/config"
)

func TestStorePersistsCookiesAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cfg := config.SessionConfig{Dir: dir}

	store, err := NewStore(cfg)
	require.NoError(t, err)

	jar, err := store.JarFor("https://example.com/page")
	require.NoError(t, err)
	jar.SetCookies(domainURL("example.com"), []*http.Cookie{
		{Name: "session", Value: "abc123"},
	})
	require.NoError(t, store.Persist("https://example.com/page"))

	store2, err := NewStore(cfg)
	require.NoError(t, err)
	jar2, err := store2.JarFor("https://example.com/other")
	require.NoError(t, err)

	cookies := jar2.Cookies(domainURL("example.com"))
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc123", cookies[0].Value)
}

func TestStoreClearRemovesSession(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(config.SessionConfig{Dir: dir})
	require.NoError(t, err)

	jar, err := store.JarFor("https://example.com/")
	require.NoError(t, err)
	jar.SetCookies(domainURL("example.com"), []*http.Cookie{{Name: "a", Value: "b"}})
	require.NoError(t, store.Persist("https://example.com/"))

	require.NoError(t, store.Clear("example.com"))

	store2, err := NewStore(config.SessionConfig{Dir: dir})
	require.NoError(t, err)
	jar2, err := store2.JarFor("https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, jar2.Cookies(domainURL("example.com")))
}
