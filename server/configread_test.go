package server_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxhall/voxhall/server"
	"github.com/voxhall/voxhall/server/store"
	"github.com/voxhall/voxhall/server/test"
)

func TestReadConfig(t *testing.T) {
	defer test.UnsetEnvPrefix(server.EnvPrefix)

	c, err := server.ReadConfig([]string{})
	assert.Nil(t, err, "error reading config")
	assert.Equal(t, 3000, c.BindPort)
	assert.Equal(t, "token", c.Auth.CookieName)
	assert.Equal(t, 7*24*time.Hour, c.Auth.MaxAge)
	assert.Equal(t, "", c.Auth.Secret)
	assert.Equal(t, store.TypeMemory, c.Store.Type)
	assert.Equal(t, 5*time.Second, c.Limits.HandshakeTimeout)
	assert.Equal(t, 64, c.Limits.SendQueueSize)
	assert.Equal(t, 10.0, c.Limits.MessagesPerSecond)
	assert.Equal(t, 20, c.Limits.Burst)
	assert.Equal(t, 20*time.Second, c.Limits.PingInterval)
	assert.Equal(t, int64(65536), c.Limits.ReadLimit)
	assert.False(t, c.Signaling.RequireMembership)
}

func TestReadConfigFiles(t *testing.T) {
	var c server.Config
	err := server.ReadConfigFiles([]string{"config_example.yml"}, &c)
	assert.Nil(t, err, "Error should be nil")
	assert.Equal(t, "/test", c.BaseURL)
	assert.Equal(t, "127.0.0.1", c.BindHost)
	assert.Equal(t, 3001, c.BindPort)
	assert.Equal(t, "test.pem", c.TLS.Cert)
	assert.Equal(t, "test.key", c.TLS.Key)
	assert.Equal(t, "test-secret", c.Auth.Secret)
	assert.Equal(t, "session", c.Auth.CookieName)
	assert.Equal(t, 24*time.Hour, c.Auth.MaxAge)
	assert.Equal(t, store.TypeRedis, c.Store.Type)
	assert.Equal(t, 500, c.Store.MaxHistory)
	assert.Equal(t, "localhost", c.Store.Redis.Host)
	assert.Equal(t, 6379, c.Store.Redis.Port)
	assert.Equal(t, "voxhall", c.Store.Redis.Prefix)
	assert.Equal(t, "test-token", c.Prometheus.AccessToken)
	assert.Equal(t, 3*time.Second, c.Limits.HandshakeTimeout)
	assert.Equal(t, 32, c.Limits.SendQueueSize)
	assert.Equal(t, 5.0, c.Limits.MessagesPerSecond)
	assert.Equal(t, 10, c.Limits.Burst)
	assert.Equal(t, 15*time.Second, c.Limits.PingInterval)
	assert.Equal(t, int64(32768), c.Limits.ReadLimit)
	assert.True(t, c.Signaling.RequireMembership)
}

func TestReadConfigFiles_Error(t *testing.T) {
	var c server.Config
	err := server.ReadConfigFiles([]string{"config_missing.yml"}, &c)
	require.NotNil(t, err, "error should be defined")
	assert.Regexp(t, "no such file", err.Error())
}

func TestReadYAML_error(t *testing.T) {
	yaml := "gfakjhglakjhlakdhgl"
	reader := strings.NewReader(yaml)
	var c server.Config
	err := server.ReadConfigYAML(reader, &c)
	require.NotNil(t, err, "err should be defined")
	assert.Regexp(t, "decode yaml", err.Error())
}

func TestReadFromEnv(t *testing.T) {
	prefix := "VOXHALLTEST_"
	defer test.UnsetEnvPrefix(prefix)
	os.Setenv(prefix+"BASE_URL", "/test")
	os.Setenv(prefix+"BIND_PORT", "4000")
	os.Setenv(prefix+"TLS_CERT", "test.pem")
	os.Setenv(prefix+"TLS_KEY", "test.key")
	os.Setenv(prefix+"AUTH_SECRET", "env-secret")
	os.Setenv(prefix+"AUTH_COOKIE_NAME", "sid")
	os.Setenv(prefix+"AUTH_MAX_AGE", "1h")
	os.Setenv(prefix+"STORE_TYPE", "redis")
	os.Setenv(prefix+"STORE_REDIS_HOST", "redis")
	os.Setenv(prefix+"STORE_REDIS_PORT", "6380")
	os.Setenv(prefix+"STORE_REDIS_PREFIX", "vh")
	os.Setenv(prefix+"PROMETHEUS_ACCESS_TOKEN", "prom")
	os.Setenv(prefix+"LIMITS_HANDSHAKE_TIMEOUT", "2s")
	os.Setenv(prefix+"LIMITS_SEND_QUEUE_SIZE", "8")
	os.Setenv(prefix+"LIMITS_MESSAGES_PER_SECOND", "2.5")
	os.Setenv(prefix+"LIMITS_BURST", "3")
	os.Setenv(prefix+"LIMITS_PING_INTERVAL", "1m")
	os.Setenv(prefix+"LIMITS_READ_LIMIT", "1024")
	os.Setenv(prefix+"SIGNALING_REQUIRE_MEMBERSHIP", "true")

	var c server.Config
	server.InitConfig(&c)
	server.ReadConfigFromEnv(prefix, &c)

	assert.Equal(t, "/test", c.BaseURL)
	assert.Equal(t, 4000, c.BindPort)
	assert.Equal(t, "test.pem", c.TLS.Cert)
	assert.Equal(t, "test.key", c.TLS.Key)
	assert.Equal(t, "env-secret", c.Auth.Secret)
	assert.Equal(t, "sid", c.Auth.CookieName)
	assert.Equal(t, time.Hour, c.Auth.MaxAge)
	assert.Equal(t, store.TypeRedis, c.Store.Type)
	assert.Equal(t, "redis", c.Store.Redis.Host)
	assert.Equal(t, 6380, c.Store.Redis.Port)
	assert.Equal(t, "vh", c.Store.Redis.Prefix)
	assert.Equal(t, "prom", c.Prometheus.AccessToken)
	assert.Equal(t, 2*time.Second, c.Limits.HandshakeTimeout)
	assert.Equal(t, 8, c.Limits.SendQueueSize)
	assert.Equal(t, 2.5, c.Limits.MessagesPerSecond)
	assert.Equal(t, 3, c.Limits.Burst)
	assert.Equal(t, time.Minute, c.Limits.PingInterval)
	assert.Equal(t, int64(1024), c.Limits.ReadLimit)
	assert.True(t, c.Signaling.RequireMembership)
}

func TestReadFromEnv_keepsFileValues(t *testing.T) {
	prefix := "VOXHALLTEST_"
	defer test.UnsetEnvPrefix(prefix)
	os.Setenv(prefix+"STORE_TYPE", "bogus")
	os.Setenv(prefix+"BIND_PORT", "not-a-number")

	var c server.Config
	server.InitConfig(&c)
	c.Signaling.RequireMembership = true

	server.ReadConfigFromEnv(prefix, &c)

	assert.Equal(t, store.TypeMemory, c.Store.Type)
	assert.Equal(t, 3000, c.BindPort)
	assert.True(t, c.Signaling.RequireMembership)
}
