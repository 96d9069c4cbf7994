package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{Name: "test", BaseURL: srv.URL, KeyID: "key", Secret: "secret"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://x"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_GetSendsAuthAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		assert.Equal(t, "iex", r.URL.Query().Get("feed"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	var out map[string]string
	require.NoError(t, c.Get(context.Background(), "/v2/clock", url.Values{"feed": {"iex"}}, &out))
	assert.Equal(t, "ok", out["status"])
}

func TestClient_PostsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "AAPL", body["symbol"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})
	var out struct{ ID string }
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/v2/orders", nil, map[string]string{"symbol": "AAPL"}, &out))
	assert.Equal(t, "1", out.ID)
}

func TestClient_APIErrorAndBreaker(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	})
	ctx := context.Background()
	var apiErr *APIError
	for i := 0; i < 5; i++ {
		err := c.Get(ctx, "/v2/x", nil, nil)
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	}
	err := c.Get(ctx, "/v2/x", nil, nil)
	assert.True(t, BreakerOpen(err))
	assert.Equal(t, 5, calls)
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad symbol", http.StatusUnprocessableEntity)
	})
	for i := 0; i < 8; i++ {
		err := c.Get(context.Background(), "/v2/x", nil, nil)
		assert.False(t, BreakerOpen(err))
	}
}
