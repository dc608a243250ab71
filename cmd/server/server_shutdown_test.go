package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"example.com/tweetfeed/internal/media"
	"example.com/tweetfeed/internal/service"
	"example.com/tweetfeed/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// freeAddr reserves a local port for the server under test.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// TestServer_GracefulShutdown verifies that Run serves requests and returns
// once its context is cancelled.
func TestServer_GracefulShutdown(t *testing.T) {
	mockStore := store.NewMock()
	ms, err := media.New(afero.NewMemMapFs(), "images", "http://localhost", 1024)
	require.NoError(t, err)
	s := New(Deps{
		Auth:   service.NewAuthService(mockStore, service.AuthOptions{Secret: "test-secret"}),
		Users:  service.NewUserService(mockStore, nil),
		Tweets: service.NewTweetService(mockStore, nil),
		Media:  ms,
	})

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, s, Options{Addr: addr}) }()

	// Make a request before shutdown to ensure the server is running
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	// Wait for shutdown to complete or timeout
	select {
	case err := <-done:
		require.NoError(t, err)
		mockStore.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shutdown gracefully within the expected time")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	mockStore := store.NewMock()
	ms, err := media.New(afero.NewMemMapFs(), "images", "http://localhost", 1024)
	require.NoError(t, err)
	s := New(Deps{
		Auth:   service.NewAuthService(mockStore, service.AuthOptions{Secret: "x"}),
		Users:  service.NewUserService(mockStore, nil),
		Tweets: service.NewTweetService(mockStore, nil),
		Media:  ms,
	})

	err = Run(context.Background(), s, Options{Addr: l.Addr().String()})
	require.Error(t, err)
}
