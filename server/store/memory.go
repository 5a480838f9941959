package store

import (
	"context"
	"sync"
	"time"

	"github.com/voxhall/voxhall/server/identifiers"
)

type MemoryStoreParams struct {
	MaxHistory int
	// Now defaults to time.Now.
	Now func() time.Time
}

// MemoryStore keeps the latest messages of every channel in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	lastID     int64
	channels   map[identifiers.ChannelID][]Record
	maxHistory int
	now        func() time.Time
}

var _ Store = &MemoryStore{}

func NewMemoryStore(params MemoryStoreParams) *MemoryStore {
	if params.MaxHistory <= 0 {
		params.MaxHistory = DefaultMaxHistory
	}

	if params.Now == nil {
		params.Now = time.Now
	}

	return &MemoryStore{
		channels:   map[identifiers.ChannelID][]Record{},
		maxHistory: params.MaxHistory,
		now:        params.Now,
	}
}

func (m *MemoryStore) PersistMessage(ctx context.Context, msg NewMessage) (Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++

	record := Record{
		ID:        m.lastID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: m.now().UTC(),
	}

	records := append(m.channels[msg.ChannelID], record)
	if over := len(records) - m.maxHistory; over > 0 {
		records = append([]Record(nil), records[over:]...)
	}

	m.channels[msg.ChannelID] = records

	return Persisted{
		ID:        record.ID,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (m *MemoryStore) History(ctx context.Context, channelID identifiers.ChannelID, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.channels[channelID]

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	ret := make([]Record, len(records))
	copy(ret, records)

	return ret, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
