package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:9090")
	assert.NotNil(t, c)
	assert.Equal(t, "http://localhost:9090", c.baseURL)
}

func TestWithToken(t *testing.T) {
	c := New("http://localhost:9090")
	authed := c.WithToken("abc")
	assert.Empty(t, c.token)
	assert.Equal(t, "abc", authed.token)
}

func TestSetToken(t *testing.T) {
	c := New("http://localhost:9090")
	c.SetToken("xyz")
	assert.Equal(t, "xyz", c.token)
}

func TestDoUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now(),
			"data":      map[string]any{"message": "hi"},
		})
	}))
	defer server.Close()

	var out struct {
		Message string `json:"message"`
	}
	err := New(server.URL).do(context.Background(), http.MethodGet, "/x", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Message)
}

func TestDoSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := New(server.URL).WithToken("secret").do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.NoError(t, err)
}

func TestDoReturnsProblemError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title":  "Conflict",
			"status": http.StatusConflict,
			"detail": "namespace lock already held",
		})
	}))
	defer server.Close()

	err := New(server.URL).do(context.Background(), http.MethodPost, "/x", nil, nil)
	require.Error(t, err)

	var problemErr *ProblemError
	require.ErrorAs(t, err, &problemErr)
	assert.True(t, problemErr.IsConflict())
	assert.Equal(t, "namespace lock already held", problemErr.Detail)
}

func TestDoPostMarshalsBody(t *testing.T) {
	type reqBody struct {
		Name string `json:"name"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rb reqBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rb))
		assert.Equal(t, "node-1", rb.Name)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"data":   map[string]any{"id": 7},
		})
	}))
	defer server.Close()

	var out struct {
		ID int `json:"id"`
	}
	err := New(server.URL).do(context.Background(), http.MethodPost, "/x", reqBody{Name: "node-1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.ID)
}

func TestHealthDetailedDecodesUptime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now(),
			"data": map[string]any{
				"service":    "nse-relay",
				"started_at": time.Now().Add(-time.Hour).Format(time.RFC3339),
				"uptime":     "1h0m0s",
				"uptime_sec": 3600,
			},
		})
	}))
	defer server.Close()

	detail, err := New(server.URL).HealthDetailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nse-relay", detail.Service)
	assert.Equal(t, int64(3600), detail.UptimeSec)
}
