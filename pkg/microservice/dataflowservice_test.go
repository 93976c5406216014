package microservice_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/illmade-knight/go-sentiment-flow/pkg/microservice"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseServer_StartAndShutdown(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), ":0")
	require.NoError(t, server.Start())

	port := server.GetHTTPPort()
	require.NotEqual(t, ":0", port, "a real port should be reported after Start")

	resp, err := http.Get(fmt.Sprintf("http://localhost%s/healthz", port))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	_, err = http.Get(fmt.Sprintf("http://localhost%s/healthz", port))
	assert.Error(t, err, "server should not accept connections after shutdown")
}

func TestBaseServer_MetricsEndpoint(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), ":0")
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	resp, err := http.Get(fmt.Sprintf("http://localhost%s/metrics", server.GetHTTPPort()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines", "standard runtime metrics should be exposed")
}

func TestBaseServer_MuxAcceptsRegistrations(t *testing.T) {
	server := microservice.NewBaseServer(zerolog.Nop(), ":0")
	server.Mux().HandleFunc("/custom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	resp, err := http.Get(fmt.Sprintf("http://localhost%s/custom", server.GetHTTPPort()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestBaseServer_PortInUse(t *testing.T) {
	first := microservice.NewBaseServer(zerolog.Nop(), ":0")
	require.NoError(t, first.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = first.Shutdown(ctx)
	})

	second := microservice.NewBaseServer(zerolog.Nop(), first.GetHTTPPort())
	assert.Error(t, second.Start())
}
