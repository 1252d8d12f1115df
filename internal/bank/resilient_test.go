package bank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ficmart/paygate/internal/config"
	"github.com/ficmart/paygate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBankConfig(baseURL string) config.BankConfig {
	return config.BankConfig{
		BaseURL:        baseURL,
		ConnectTimeout: 500 * time.Millisecond,
		ReadTimeout:    500 * time.Millisecond,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		Breaker: config.BreakerConfig{
			FailureThreshold: 3,
			Window:           time.Minute,
			Cooldown:         50 * time.Millisecond,
		},
	}
}

func TestResilientClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"authorized": true, "authorization_code": "auth-1"}`))
	}))
	defer srv.Close()

	client := NewResilientClient(testBankConfig(srv.URL))
	resp, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})

	require.NoError(t, err)
	authorized, present := resp.Authorized()
	assert.True(t, present)
	assert.True(t, authorized)
	assert.Equal(t, "auth-1", resp.AuthorizationCode())
}

func TestResilientClient_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"authorized": true}`))
	}))
	defer srv.Close()

	client := NewResilientClient(testBankConfig(srv.URL))
	resp, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})

	require.NoError(t, err)
	authorized, _ := resp.Authorized()
	assert.True(t, authorized)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestResilientClient_DoesNotRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewResilientClient(testBankConfig(srv.URL))
	resp, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})

	require.NoError(t, err, "resilient client never surfaces an error to the caller")
	assert.True(t, resp.Indeterminate())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResilientClient_FallsBackOnRetryExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewResilientClient(testBankConfig(srv.URL))
	resp, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})

	require.NoError(t, err)
	assert.True(t, resp.Indeterminate())
	authorized, present := resp.Authorized()
	assert.True(t, present)
	assert.False(t, authorized)
}

func TestResilientClient_ShortCircuitsWhenBreakerOpen(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testBankConfig(srv.URL)
	cfg.Breaker.FailureThreshold = 1
	client := NewResilientClient(cfg)

	// First call's first failed attempt trips the breaker (threshold 1),
	// so it returns the fallback without retrying.
	_, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})
	require.NoError(t, err)
	callsAfterFirst := atomic.LoadInt32(&calls)

	// Second call should short-circuit without hitting the network again.
	resp, err := client.ProcessPayment(context.Background(), domain.BankRequest{"amount": 1000})
	require.NoError(t, err)
	assert.True(t, resp.Indeterminate())
	assert.Equal(t, callsAfterFirst, atomic.LoadInt32(&calls), "breaker should short-circuit the second call")
}
