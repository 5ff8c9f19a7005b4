package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vietddude/keypool/internal/pool"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", "secret-key", time.Second)
	require.NoError(t, err)

	body, err := c.Get(context.Background(), "/v1/me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"42"}`, string(body))
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      int
		rateLimit bool
	}{
		{"plain 429", http.StatusTooManyRequests, "", 429, true},
		{"provider code in errors array", http.StatusBadRequest, `{"errors":[{"code":88,"message":"Limit reached"}]}`, 88, true},
		{"provider code flat", http.StatusForbidden, `{"code":88,"message":"slow down"}`, 88, true},
		{"429 with other provider code", http.StatusTooManyRequests, `{"code":34,"message":"nope"}`, 429, true},
		{"server error", http.StatusInternalServerError, "upstream broke", 500, false},
		{"not found", http.StatusNotFound, `{"code":34,"message":"page does not exist"}`, 34, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, "k", time.Second)
			require.NoError(t, err)

			_, err = c.Get(context.Background(), "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code())
			assert.Equal(t, tt.rateLimit, pool.IsRateLimit(err))
		})
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url", "k", 0)
	assert.Error(t, err)
}
