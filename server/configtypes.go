package server

import (
	"time"

	"github.com/voxhall/voxhall/server/store"
)

type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	CookieName string        `yaml:"cookie_name"`
	MaxAge     time.Duration `yaml:"max_age"`
}

type RedisConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

type StoreConfig struct {
	Type       store.Type  `yaml:"type"`
	MaxHistory int         `yaml:"max_history"`
	Redis      RedisConfig `yaml:"redis"`
}

type PrometheusConfig struct {
	AccessToken string `yaml:"access_token"`
}

type LimitsConfig struct {
	// HandshakeTimeout bounds how long an unauthenticated connection may take
	// to send its request headers.
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	SendQueueSize     int           `yaml:"send_queue_size"`
	MessagesPerSecond float64       `yaml:"messages_per_second"`
	Burst             int           `yaml:"burst"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	ReadLimit         int64         `yaml:"read_limit"`
}

type SignalingConfig struct {
	RequireMembership bool `yaml:"require_membership"`
}

type Config struct {
	BaseURL    string           `yaml:"base_url"`
	BindHost   string           `yaml:"bind_host"`
	BindPort   int              `yaml:"bind_port"`
	TLS        TLSConfig        `yaml:"tls"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Limits     LimitsConfig     `yaml:"limits"`
	Signaling  SignalingConfig  `yaml:"signaling"`
}
