package tor_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/internal/infrastructure/transport/tor"
)

var testOpts = tor.ClientOpts{
	Timeout:        5 * time.Second,
	RetryBaseDelay: time.Millisecond,
	RetryMaxDelay:  5 * time.Millisecond,
}

func TestSendAndRetry(t *testing.T) {
	t.Run("expected status", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/api/v4/notificationTokens", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, `{"token":"abc"}`, string(body))
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			},
		))
		defer server.Close()

		client := newTestClient(t, server.URL+"/")
		resp, err := client.SendAndRetry(
			context.Background(), http.MethodPut, http.StatusOK,
			"/api/v4/notificationTokens", tor.DefaultMaxRetries,
			&tor.Content{Type: "application/json", Data: []byte(`{"token":"abc"}`)},
		)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))
		require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("unexpected status is not retried", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(http.StatusInternalServerError)
			},
		))
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything",
			tor.DefaultMaxRetries, nil,
		)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("retry bound", func(t *testing.T) {
		var hits int32
		server := newDroppingServer(t, &hits, -1)
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 2, nil,
		)
		require.Nil(t, resp)
		require.ErrorIs(t, err, tor.ErrTransient)

		var transientErr *tor.TransientError
		require.True(t, errors.As(err, &transientErr))
		require.Equal(t, 3, transientErr.Attempts)
		require.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		var hits int32
		server := newDroppingServer(t, &hits, 2)
		defer server.Close()

		client := newTestClient(t, server.URL)
		resp, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 2, nil,
		)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, int32(3), atomic.LoadInt32(&hits))
	})

	t.Run("zero retries", func(t *testing.T) {
		var hits int32
		server := newDroppingServer(t, &hits, -1)
		defer server.Close()

		client := newTestClient(t, server.URL)
		_, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 0, nil,
		)
		require.ErrorIs(t, err, tor.ErrTransient)
		require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("connection refused", func(t *testing.T) {
		client := newTestClient(t, "http://"+closedAddress(t))
		_, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 2, nil,
		)
		require.ErrorIs(t, err, tor.ErrTransient)
	})

	t.Run("proxy unavailable", func(t *testing.T) {
		opts := testOpts
		opts.Socks5Addr = closedAddress(t)
		opts.IsolationTag = "wallet"
		client, err := tor.NewClient(func() string {
			return "http://testwnp3fugjln6vh5vpj7mvq3lkqqwjj3c2aafyu7laxz42kgwh2rad.onion"
		}, opts)
		require.NoError(t, err)

		_, err = client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 1, nil,
		)
		require.ErrorIs(t, err, tor.ErrTransient)
	})

	t.Run("non transient failure", func(t *testing.T) {
		client := newTestClient(t, "ftp://localhost")
		_, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 2, nil,
		)
		require.Error(t, err)
		require.NotErrorIs(t, err, tor.ErrTransient)
	})

	t.Run("empty base uri", func(t *testing.T) {
		client := newTestClient(t, "")
		_, err := client.SendAndRetry(
			context.Background(), http.MethodGet, http.StatusOK, "anything", 2, nil,
		)
		require.ErrorIs(t, err, tor.ErrEmptyBaseURI)
	})
}

func TestSendAndRetryCancellation(t *testing.T) {
	t.Run("before first attempt", func(t *testing.T) {
		var hits int32
		server := newDroppingServer(t, &hits, -1)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := newTestClient(t, server.URL)
		_, err := client.SendAndRetry(ctx, http.MethodGet, http.StatusOK, "anything", 2, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, atomic.LoadInt32(&hits))
	})

	t.Run("during backoff", func(t *testing.T) {
		var hits int32
		server := newDroppingServer(t, &hits, -1)
		defer server.Close()

		opts := testOpts
		opts.RetryBaseDelay = time.Minute
		opts.RetryMaxDelay = time.Minute
		client, err := tor.NewClient(func() string { return server.URL }, opts)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err = client.SendAndRetry(ctx, http.MethodGet, http.StatusOK, "anything", 2, nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Less(t, time.Since(start), 10*time.Second)
		require.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})
}

func TestNewClient(t *testing.T) {
	_, err := tor.NewClient(nil, testOpts)
	require.ErrorIs(t, err, tor.ErrMissingBaseURI)

	opts := testOpts
	opts.Socks5Addr = "not-an-address"
	_, err = tor.NewClient(func() string { return "http://localhost" }, opts)
	require.Error(t, err)

	opts = testOpts
	opts.Timeout = -time.Second
	_, err = tor.NewClient(func() string { return "http://localhost" }, opts)
	require.Error(t, err)

	client, err := tor.NewClient(func() string { return "http://localhost" }, tor.ClientOpts{
		Socks5Addr: "127.0.0.1:9050",
	})
	require.NoError(t, err)
	require.NotNil(t, client)
}

// newDroppingServer returns a server that drops the connection of the first
// failures requests without answering. A negative number drops every request.
func newDroppingServer(t *testing.T, hits *int32, failures int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			count := atomic.AddInt32(hits, 1)
			if failures >= 0 && count > failures {
				w.WriteHeader(http.StatusOK)
				return
			}
			hijacker, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer does not support hijacking")
				return
			}
			conn, _, err := hijacker.Hijack()
			if err != nil {
				t.Error(err)
				return
			}
			conn.Close()
		},
	))
}

func closedAddress(t *testing.T) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func newTestClient(t *testing.T, baseURI string) *tor.Client {
	client, err := tor.NewClient(func() string { return baseURI }, testOpts)
	require.NoError(t, err)
	return client
}
