package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxhall/voxhall/server"
	"github.com/voxhall/voxhall/server/test"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()

	for k, v := range kv {
		os.Setenv(server.EnvPrefix+k, v)
	}
}

func TestStartMissingConfig(t *testing.T) {
	defer test.UnsetEnvPrefix(server.EnvPrefix)
	setEnv(t, map[string]string{
		"BIND_PORT":   "0",
		"AUTH_SECRET": "main-secret",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := start(ctx, test.NewLogger(), []string{"-c", "/missing/file.yml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestStartMissingSecret(t *testing.T) {
	defer test.UnsetEnvPrefix(server.EnvPrefix)
	setEnv(t, map[string]string{
		"BIND_PORT": "0",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := start(ctx, test.NewLogger(), []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
}

func TestStartWrongPort(t *testing.T) {
	defer test.UnsetEnvPrefix(server.EnvPrefix)
	setEnv(t, map[string]string{
		"BIND_PORT":   "100000",
		"AUTH_SECRET": "main-secret",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := start(ctx, test.NewLogger(), []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestStart(t *testing.T) {
	defer test.UnsetEnvPrefix(server.EnvPrefix)

	l, err := net.ListenTCP("tcp", &net.TCPAddr{
		IP:   net.ParseIP("127.0.0.1"),
		Port: 0,
	})
	require.NoError(t, err, "listener")
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	setEnv(t, map[string]string{
		"BIND_HOST":   "127.0.0.1",
		"BIND_PORT":   strconv.Itoa(port),
		"AUTH_SECRET": "main-secret",
	})

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 2*time.Second)
	ctx, cancel := context.WithCancel(timeoutCtx)

	defer cancelTimeout()
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		errCh <- start(ctx, test.NewLogger(), []string{})
	}()

	var r *http.Response

	// Keep trying until the server finally starts.
	for i := 0; i < 30; i++ {
		r, err = http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/probes/liveness")
		if err != nil {
			time.Sleep(20 * time.Millisecond)

			continue
		}

		r.Body.Close()

		break
	}

	if assert.NoError(t, err) {
		assert.Equal(t, 200, r.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-timeoutCtx.Done():
		require.Fail(t, "timed out")
	}
}
