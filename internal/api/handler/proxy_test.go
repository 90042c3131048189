package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/searchscrape/internal/config"
	"github.com/use-agent/searchscrape/internal/models"
	"github.com/use-agent/searchscrape/internal/proxy"
)

func TestProxyControlGrabAddsEndpoint(t *testing.T) {
	pool, err := proxy.NewPool(config.ProxyConfig{})
	require.NoError(t, err)
	handler := ProxyControl(pool, nil)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]string{"action": "grab", "endpoint": "proxy.example.com:8080"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/proxy", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var env models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)

	raw, _ := json.Marshal(env.Data)
	var status proxy.Status
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, 1, status.Total)
}

func TestProxyControlGrabRequiresEndpoint(t *testing.T) {
	pool, err := proxy.NewPool(config.ProxyConfig{})
	require.NoError(t, err)
	handler := ProxyControl(pool, nil)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]string{"action": "grab"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/proxy", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyControlListAndStatus(t *testing.T) {
	pool, err := proxy.NewPool(config.ProxyConfig{})
	require.NoError(t, err)
	pool.Add("proxy.example.com:8080", models.ProxySchemeHTTP)
	handler := ProxyControl(pool, nil)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]string{"action": "list"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/proxy", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var env models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	raw, _ := json.Marshal(env.Data)
	var list []models.Proxy
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
}

func TestProxyControlSwitchWithEmptyPoolFails(t *testing.T) {
	pool, err := proxy.NewPool(config.ProxyConfig{})
	require.NoError(t, err)
	handler := ProxyControl(pool, nil)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]string{"action": "switch"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/proxy", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestProxyControlUnknownAction(t *testing.T) {
	pool, err := proxy.NewPool(config.ProxyConfig{})
	require.NoError(t, err)
	handler := ProxyControl(pool, nil)

	c, rec := newTestContext(t)
	body, _ := json.Marshal(map[string]string{"action": "nuke"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/proxy", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
