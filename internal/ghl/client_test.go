package ghl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghl-mcp/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		APIBaseURL:     srv.URL + "/v1",
		WebhookBaseURL: srv.URL + "/hooks",
		APIKey:         "secret",
		SubAccountID:   "loc-1",
		RequestTimeout: 2 * time.Second,
	}
	return New(cfg, nil), srv
}

func TestCallSendsAuthAndLocation(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contact":{"id":"c123","name":"Test User"}}`))
	})

	res, err := c.Call(context.Background(), http.MethodGet, "/contacts/c123", nil, nil)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v1/contacts/c123", got.URL.Path)
	assert.Equal(t, "loc-1", got.URL.Query().Get("locationId"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, APIVersion, got.Header.Get("Version"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))

	encoded, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact":{"id":"c123","name":"Test User"}}`, string(encoded))
}

func TestCallKeepsExplicitLocation(t *testing.T) {
	var query url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{}`))
	})

	params := url.Values{"locationId": {"other"}, "pipelineId": {"p1"}}
	_, err := c.Call(context.Background(), http.MethodGet, "opportunities/", params, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, query["locationId"])
	assert.Equal(t, "p1", query.Get("pipelineId"))
}

func TestCallEncodesBody(t *testing.T) {
	var method string
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"note123","body":"hello"}`))
	})

	_, err := c.Call(context.Background(), http.MethodPost, "/contacts/c123/notes", nil, map[string]any{"body": "hello"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, map[string]any{"body": "hello"}, body)
}

func TestCallPreservesNumbers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"monetaryValue":12345678901234567890}`))
	})

	res, err := c.Call(context.Background(), http.MethodGet, "/opportunities/o1", nil, nil)
	require.NoError(t, err)
	encoded, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, `{"monetaryValue":12345678901234567890}`, string(encoded))
}

func TestCallUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "not found"}`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/contacts/missing-id", nil, nil)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusNotFound, upErr.StatusCode)
	assert.Equal(t, `{"message": "not found"}`, string(upErr.Body))
	assert.Equal(t, "not found", upErr.Message)
	assert.True(t, upErr.IsNotFound())
	assert.False(t, upErr.IsAuthError())
	assert.Equal(t, "UpstreamError", upErr.Kind())
}

func TestCallRejectedAPIKey(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg": "Invalid JWT"}`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/contacts/c1", nil, nil)
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.IsAuthError())
	assert.False(t, upErr.IsNotFound())
	assert.Equal(t, "Invalid JWT", upErr.Message)
}

func TestCallDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/funnels/", nil, nil)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, http.StatusOK, decErr.StatusCode)
	assert.Equal(t, "<html>oops</html>", string(decErr.Body))
}

func TestCallTrailingGarbageIsDecodeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"a":1} trailing`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/funnels/", nil, nil)
	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestCallEmptyBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	res, err := c.Call(context.Background(), http.MethodGet, "/funnels/", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestCallTransportError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Call(context.Background(), http.MethodGet, "/contacts/c1", nil, nil)
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "TransportError", trErr.Kind())
	assert.False(t, trErr.Timeout())
}

func TestCallTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.HTTP = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Call(context.Background(), http.MethodGet, "/contacts/c1", nil, nil)
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	assert.True(t, trErr.Timeout())
}

func TestTriggerWebhookByURL(t *testing.T) {
	var got map[string]any
	var auth string
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("Success"))
	})

	res, err := c.TriggerWebhook(context.Background(), srv.URL+"/custom", map[string]any{"test": "data"})
	require.NoError(t, err)
	assert.Empty(t, auth)
	assert.Equal(t, map[string]any{"test": "data"}, got)

	out := res.(map[string]any)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, http.StatusOK, out["statusCode"])
	assert.Equal(t, "Success", out["response"])
}

func TestTriggerWebhookByID(t *testing.T) {
	var path string
	var body []byte
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	res, err := c.TriggerWebhook(context.Background(), "wh-42", nil)
	require.NoError(t, err)
	assert.Equal(t, "/hooks/loc-1/webhook-trigger/wh-42", path)
	assert.JSONEq(t, `{}`, string(body))
	assert.Equal(t, map[string]any{"ok": true}, res.(map[string]any)["response"])
}

func TestTriggerWebhookUpstreamError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad hook", http.StatusBadRequest)
	})

	_, err := c.TriggerWebhook(context.Background(), srv.URL+"/hook", map[string]any{})
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
}

func TestTriggerWebhookRejectsBadURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.TriggerWebhook(context.Background(), "ftp://example.com/x", nil)
	require.Error(t, err)
	_, err = c.TriggerWebhook(context.Background(), "  ", nil)
	require.Error(t, err)
}
