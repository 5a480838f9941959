// Package store persists chat messages. It is the narrow write/read
// contract the dispatch layer needs from the message database.
package store

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
)

// ErrUnavailable is the cause of every error caused by the backing storage.
var ErrUnavailable = errors.New("storage unavailable")

const (
	DefaultMaxHistory = 1000
	DefaultPrefix     = "voxhall"
)

// NewMessage is the input of PersistMessage.
type NewMessage struct {
	ChannelID identifiers.ChannelID
	UserID    identifiers.UserID
	Username  string
	Content   string
}

// Persisted contains the values assigned by the store at insert time.
type Persisted struct {
	ID        int64
	CreatedAt time.Time
}

// Record is a stored message.
type Record struct {
	ID        int64                 `json:"id"`
	ChannelID identifiers.ChannelID `json:"channelId"`
	UserID    identifiers.UserID    `json:"userId"`
	Username  string                `json:"username"`
	Content   string                `json:"content"`
	CreatedAt time.Time             `json:"createdAt"`
}

type Store interface {
	// PersistMessage stores msg and returns its id and creation time.
	PersistMessage(ctx context.Context, msg NewMessage) (Persisted, error)
	// History returns up to limit of the latest messages, oldest first.
	History(ctx context.Context, channelID identifiers.ChannelID, limit int) ([]Record, error)
	Close() error
}

type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

type RedisParams struct {
	Host   string
	Port   int
	Prefix string
}

type Params struct {
	Log        logger.Logger
	Type       Type
	Redis      RedisParams
	MaxHistory int
}

// New creates the store selected by params.Type. Memory is the default.
func New(params Params) Store {
	log := params.Log.WithNamespaceAppended("store")

	if params.MaxHistory <= 0 {
		params.MaxHistory = DefaultMaxHistory
	}

	switch params.Type {
	case TypeRedis:
		addr := net.JoinHostPort(params.Redis.Host, strconv.Itoa(params.Redis.Port))

		prefix := params.Redis.Prefix
		if prefix == "" {
			prefix = DefaultPrefix
		}

		log.Info("Using RedisStore", logger.Ctx{
			"addr":   addr,
			"prefix": prefix,
		})

		client := redis.NewClient(&redis.Options{
			Addr: addr,
		})

		return NewRedisStore(RedisStoreParams{
			Log:        log,
			Client:     client,
			Prefix:     prefix,
			MaxHistory: params.MaxHistory,
		})
	case TypeMemory:
		fallthrough
	default:
		log.Info("Using MemoryStore", nil)

		return NewMemoryStore(MemoryStoreParams{
			MaxHistory: params.MaxHistory,
		})
	}
}
