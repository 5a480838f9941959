package server

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/auth"
	"github.com/voxhall/voxhall/server/store"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment variable read by ReadConfig.
const EnvPrefix = "VOXHALL_"

func ReadConfigFile(filename string, c *Config) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "read config file: %s", filename)
	}

	defer f.Close()

	err = ReadConfigYAML(f, c)

	return errors.Annotatef(err, "read yaml config: %s", filename)
}

func ReadConfigFiles(filenames []string, c *Config) (err error) {
	for _, filename := range filenames {
		err = ReadConfigFile(filename, c)
		if err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func InitConfig(c *Config) {
	c.BindPort = 3000
	c.Auth.CookieName = auth.DefaultCookieName
	c.Auth.MaxAge = auth.DefaultMaxAge
	c.Store.Type = store.TypeMemory
	c.Store.MaxHistory = store.DefaultMaxHistory
	c.Store.Redis.Host = "localhost"
	c.Store.Redis.Port = 6379
	c.Store.Redis.Prefix = store.DefaultPrefix
	c.Limits.HandshakeTimeout = 5 * time.Second
	c.Limits.SendQueueSize = 64
	c.Limits.MessagesPerSecond = 10
	c.Limits.Burst = 20
	c.Limits.PingInterval = 20 * time.Second
	c.Limits.ReadLimit = 65536
}

// ReadConfig layers the files over the defaults and then applies the
// environment.
func ReadConfig(filenames []string) (c Config, err error) {
	InitConfig(&c)
	err = ReadConfigFiles(filenames, &c)
	ReadConfigFromEnv(EnvPrefix, &c)

	return c, errors.Trace(err)
}

func ReadConfigYAML(reader io.Reader, c *Config) error {
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(c); err != nil {
		return errors.Annotatef(err, "decode yaml")
	}

	return nil
}

func ReadConfigFromEnv(prefix string, c *Config) {
	setEnvString(&c.BaseURL, prefix+"BASE_URL")
	setEnvString(&c.BindHost, prefix+"BIND_HOST")
	setEnvInt(&c.BindPort, prefix+"BIND_PORT")
	setEnvString(&c.TLS.Cert, prefix+"TLS_CERT")
	setEnvString(&c.TLS.Key, prefix+"TLS_KEY")

	setEnvString(&c.Auth.Secret, prefix+"AUTH_SECRET")
	setEnvString(&c.Auth.CookieName, prefix+"AUTH_COOKIE_NAME")
	setEnvDuration(&c.Auth.MaxAge, prefix+"AUTH_MAX_AGE")

	setEnvStoreType(&c.Store.Type, prefix+"STORE_TYPE")
	setEnvInt(&c.Store.MaxHistory, prefix+"STORE_MAX_HISTORY")
	setEnvString(&c.Store.Redis.Host, prefix+"STORE_REDIS_HOST")
	setEnvInt(&c.Store.Redis.Port, prefix+"STORE_REDIS_PORT")
	setEnvString(&c.Store.Redis.Prefix, prefix+"STORE_REDIS_PREFIX")

	setEnvString(&c.Prometheus.AccessToken, prefix+"PROMETHEUS_ACCESS_TOKEN")

	setEnvDuration(&c.Limits.HandshakeTimeout, prefix+"LIMITS_HANDSHAKE_TIMEOUT")
	setEnvInt(&c.Limits.SendQueueSize, prefix+"LIMITS_SEND_QUEUE_SIZE")
	setEnvFloat(&c.Limits.MessagesPerSecond, prefix+"LIMITS_MESSAGES_PER_SECOND")
	setEnvInt(&c.Limits.Burst, prefix+"LIMITS_BURST")
	setEnvDuration(&c.Limits.PingInterval, prefix+"LIMITS_PING_INTERVAL")
	setEnvInt64(&c.Limits.ReadLimit, prefix+"LIMITS_READ_LIMIT")

	setEnvBool(&c.Signaling.RequireMembership, prefix+"SIGNALING_REQUIRE_MEMBERSHIP")
}

func setEnvString(dest *string, name string) {
	value := os.Getenv(name)
	if value != "" {
		*dest = value
	}
}

func setEnvInt(dest *int, name string) {
	value, err := strconv.Atoi(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}

func setEnvInt64(dest *int64, name string) {
	value, err := strconv.ParseInt(os.Getenv(name), 10, 64)
	if err == nil {
		*dest = value
	}
}

func setEnvFloat(dest *float64, name string) {
	value, err := strconv.ParseFloat(os.Getenv(name), 64)
	if err == nil {
		*dest = value
	}
}

func setEnvDuration(dest *time.Duration, name string) {
	value, err := time.ParseDuration(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}

func setEnvBool(dest *bool, name string) {
	val := os.Getenv(name)

	// Only set the value when the variable is explicitly "true" or "false",
	// an unset variable keeps what the file configured.
	switch val {
	case "true":
		*dest = true
	case "false":
		*dest = false
	}
}

func setEnvStoreType(storeType *store.Type, name string) {
	value := os.Getenv(name)
	switch store.Type(value) {
	case store.TypeRedis:
		*storeType = store.TypeRedis
	case store.TypeMemory:
		*storeType = store.TypeMemory
	}
}
