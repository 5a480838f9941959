package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
)

type RedisStoreParams struct {
	Log        logger.Logger
	Client     *redis.Client
	Prefix     string
	MaxHistory int
	// Now defaults to time.Now.
	Now func() time.Time
}

// RedisStore assigns message ids with INCR and keeps each channel's latest
// messages in a capped list, so several server processes can share one
// history.
type RedisStore struct {
	log        logger.Logger
	client     *redis.Client
	prefix     string
	maxHistory int
	now        func() time.Time
}

var _ Store = &RedisStore{}

func NewRedisStore(params RedisStoreParams) *RedisStore {
	if params.MaxHistory <= 0 {
		params.MaxHistory = DefaultMaxHistory
	}

	if params.Now == nil {
		params.Now = time.Now
	}

	return &RedisStore{
		log:        params.Log.WithNamespaceAppended("redis"),
		client:     params.Client,
		prefix:     params.Prefix,
		maxHistory: params.MaxHistory,
		now:        params.Now,
	}
}

func (r *RedisStore) sequenceKey() string {
	return r.prefix + ":messages:seq"
}

// TODO escape channel ids containing ":".
func (r *RedisStore) channelKey(channelID identifiers.ChannelID) string {
	return r.prefix + ":channel:" + string(channelID) + ":messages"
}

func (r *RedisStore) PersistMessage(ctx context.Context, msg NewMessage) (Persisted, error) {
	client := r.client.WithContext(ctx)

	id, err := client.Incr(r.sequenceKey()).Result()
	if err != nil {
		return Persisted{}, errors.Wrapf(err, ErrUnavailable, "incr %s", r.sequenceKey())
	}

	record := Record{
		ID:        id,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: r.now().UTC(),
	}

	b, err := json.Marshal(record)
	if err != nil {
		return Persisted{}, errors.Annotate(err, "marshal record")
	}

	key := r.channelKey(msg.ChannelID)

	_, err = client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.RPush(key, b)
		pipe.LTrim(key, int64(-r.maxHistory), -1)

		return nil
	})
	if err != nil {
		return Persisted{}, errors.Wrapf(err, ErrUnavailable, "rpush %s", key)
	}

	r.log.Trace("Persisted message", logger.Ctx{
		"channel_id": msg.ChannelID,
		"message_id": id,
	})

	return Persisted{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (r *RedisStore) History(ctx context.Context, channelID identifiers.ChannelID, limit int) ([]Record, error) {
	if limit <= 0 || limit > r.maxHistory {
		limit = r.maxHistory
	}

	key := r.channelKey(channelID)

	values, err := r.client.WithContext(ctx).LRange(key, int64(-limit), -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, ErrUnavailable, "lrange %s", key)
	}

	records := make([]Record, 0, len(values))

	for _, value := range values {
		var record Record

		if err := json.Unmarshal([]byte(value), &record); err != nil {
			r.log.Error("Skip corrupt record", errors.Trace(err), logger.Ctx{
				"channel_id": channelID,
			})

			continue
		}

		records = append(records, record)
	}

	return records, nil
}

func (r *RedisStore) Close() error {
	return errors.Trace(r.client.Close())
}
