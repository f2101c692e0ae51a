package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_ErrorClassification(t *testing.T) {
	var status atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"status":false,"message":"nope"}`))
	}))
	defer srv.Close()

	newClient := func() *apiClient {
		return newAPIClient("paystack", srv.URL, "sk_test", 2*time.Second)
	}

	status.Store(http.StatusBadRequest)
	_, err := newClient().call(context.Background(), "test op", http.MethodPost, "/x", map[string]any{"a": 1})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.False(t, perr.Retryable)
	assert.False(t, IsRetryable(err))

	status.Store(http.StatusInternalServerError)
	_, err = newClient().call(context.Background(), "test op", http.MethodPost, "/x", nil)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	assert.True(t, IsRetryable(err))
}

func TestAPIClient_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newAPIClient("flutterwave", srv.URL, "sk_test", time.Second)
	_, err := c.call(context.Background(), "test op", http.MethodGet, "/x", nil)
	assert.True(t, IsRetryable(err))
	assert.True(t, IsProviderError(err))
}

func TestAPIClient_BreakerOpensOnConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newAPIClient("paystack", srv.URL, "sk_test", time.Second)
	for i := 0; i < 5; i++ {
		_, err := c.call(context.Background(), "test op", http.MethodGet, "/x", nil)
		require.Error(t, err)
	}
	require.Equal(t, int64(5), hits.Load())

	// Breaker is open now: the request is rejected locally and still reads as
	// a retryable provider failure to callers.
	_, err := c.call(context.Background(), "test op", http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int64(5), hits.Load())
}

func TestAPIClient_BusinessRejectionsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newAPIClient("paystack", srv.URL, "sk_test", time.Second)
	for i := 0; i < 8; i++ {
		_, err := c.call(context.Background(), "test op", http.MethodGet, "/x", nil)
		require.Error(t, err)
		assert.False(t, IsRetryable(err))
	}
	// Every call reached the server; the breaker never opened.
	assert.Equal(t, int64(8), hits.Load())
}

func TestProviderErrorFormatting(t *testing.T) {
	err := &ProviderError{Provider: "paystack", Op: "disable subscription", StatusCode: 404, Err: errors.New("not found")}
	assert.Contains(t, err.Error(), "paystack")
	assert.Contains(t, err.Error(), "status=404")
	assert.ErrorIs(t, err, err.Err)
}
