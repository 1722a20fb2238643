package fx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gastopro/internal/log"
)

func newTestClient(baseURL string) *Client {
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentFX})
	return NewClient(baseURL, 2*time.Second, logger)
}

func TestLatestLiveRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates": {"USD": 0.00105, "EUR": 0.00095}}`))
	}))
	defer srv.Close()

	rates, live := newTestClient(srv.URL).Latest(context.Background())
	assert.True(t, live)
	assert.Equal(t, 0.00105, rates.USD)
	assert.Equal(t, 0.00095, rates.EUR)
}

func TestLatestFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rates, live := newTestClient(srv.URL).Latest(context.Background())
	assert.False(t, live)
	assert.Equal(t, FallbackRates, rates)
}

func TestLatestFallsBackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	rates, live := newTestClient(srv.URL).Latest(context.Background())
	assert.False(t, live)
	assert.Equal(t, FallbackRates, rates)
}

func TestLatestFallsBackOnMissingRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates": {"USD": 0}}`))
	}))
	defer srv.Close()

	rates, live := newTestClient(srv.URL).Latest(context.Background())
	assert.False(t, live)
	assert.Equal(t, FallbackRates, rates)
}

func TestLatestFallsBackOnUnreachableHost(t *testing.T) {
	rates, live := newTestClient("http://127.0.0.1:1").Latest(context.Background())
	assert.False(t, live)
	assert.Equal(t, FallbackRates, rates)
}
