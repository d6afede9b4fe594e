package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/pkg/errors"
)

// captureLogs redirects the default logger into a buffer for one test
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Setenv("LOG_LEVEL", "debug")
	buf := &bytes.Buffer{}
	logger.InitWithWriter(buf)
	t.Cleanup(func() { logger.InitWithWriter(&bytes.Buffer{}) })
	return buf
}

func newTestFetcher(cacheSvc *MockCacheService) *HTTPFetcher {
	f := NewHTTPFetcher(helpers.NewClient(2*time.Second), 3, 5*time.Millisecond, nil, time.Minute)
	if cacheSvc != nil {
		f.CacheSvc = cacheSvc
	}
	return f
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><h1>Offres</h1></body></html>`))
	}))
	defer server.Close()

	status, doc, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, doc)
	assert.Equal(t, "Offres", doc.Find("h1").Text())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchGivesUpOnServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	status, doc, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Nil(t, doc)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	status, doc, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, doc)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRateLimitBlock(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	fetcher := newTestFetcher(mockCache)

	status, _, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)

	value, err := mockCache.Get(fetcher.CacheKey)
	require.NoError(t, err)
	assert.Equal(t, "120", string(value))

	// the block short-circuits the next request
	status, doc, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Nil(t, doc)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRateLimitLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "90")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	logs := captureLogs(t)

	status, _, err := newTestFetcher(nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, logs.String(), "[rate_limit] fetcher: rate limited for 1m30s")
}

func TestFetchFailingCacheDoesNotBlock(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	mockCache.err = fmt.Errorf("memcache: connection refused")
	fetcher := newTestFetcher(mockCache)
	logs := captureLogs(t)

	status, _, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, logs.String(), "[cache] fetcher: rate limit block")

	status, _, err = fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, logs.String(), "[cache] fetcher: rate limit lookup")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchMalformedURLNotRetried(t *testing.T) {
	fetcher := newTestFetcher(nil)
	fetcher.RetryDelay = time.Minute

	start := time.Now()
	_, doc, err := fetcher.Fetch(context.Background(), "http://bad host/")
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.NotContains(t, err.Error(), "failed after")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, doc, err := newTestFetcher(nil).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := newTestFetcher(nil)
	fetcher.RetryDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := fetcher.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestFetchLimiterPacesRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer server.Close()

	fetcher := newTestFetcher(nil)
	fetcher.Limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		status, _, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// a limiter wait that cannot finish before the deadline fails fast
	fetcher.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	fetcher.Limiter.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := fetcher.Fetch(ctx, server.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
