package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/store"
	"github.com/voxhall/voxhall/server/test"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time {
	return testTime
}

func newMessage(channelID identifiers.ChannelID, content string) store.NewMessage {
	return store.NewMessage{
		ChannelID: channelID,
		UserID:    7,
		Username:  "alice",
		Content:   content,
	}
}

// testStore runs the behaviour every Store implementation must share.
func testStore(t *testing.T, s store.Store) {
	t.Helper()

	ctx := context.Background()

	p1, err := s.PersistMessage(ctx, newMessage("5", "one"))
	require.NoError(t, err)

	p2, err := s.PersistMessage(ctx, newMessage("6", "two"))
	require.NoError(t, err)

	p3, err := s.PersistMessage(ctx, newMessage("5", "three"))
	require.NoError(t, err)

	assert.Less(t, p1.ID, p2.ID)
	assert.Less(t, p2.ID, p3.ID)
	assert.Equal(t, testTime, p1.CreatedAt)

	records, err := s.History(ctx, "5", 10)
	require.NoError(t, err)

	assert.Equal(t, []store.Record{{
		ID:        p1.ID,
		ChannelID: "5",
		UserID:    7,
		Username:  "alice",
		Content:   "one",
		CreatedAt: testTime,
	}, {
		ID:        p3.ID,
		ChannelID: "5",
		UserID:    7,
		Username:  "alice",
		Content:   "three",
		CreatedAt: testTime,
	}}, records)

	records, err = s.History(ctx, "5", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "three", records[0].Content)

	records, err = s.History(ctx, "404", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryStoreParams{
		Now: fixedNow,
	})
	defer s.Close()

	testStore(t, s)
}

func TestMemoryStore_MaxHistory(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryStoreParams{
		MaxHistory: 2,
		Now:        fixedNow,
	})

	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		_, err := s.PersistMessage(ctx, newMessage("1", content))
		require.NoError(t, err)
	}

	records, err := s.History(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Content)
	assert.Equal(t, "c", records[1].Content)
}

func TestMemoryStore_HistoryIsCopy(t *testing.T) {
	s := store.NewMemoryStore(store.MemoryStoreParams{})

	ctx := context.Background()

	_, err := s.PersistMessage(ctx, newMessage("1", "a"))
	require.NoError(t, err)

	records, err := s.History(ctx, "1", 10)
	require.NoError(t, err)

	records[0].Content = "changed"

	records, err = s.History(ctx, "1", 10)
	require.NoError(t, err)
	assert.Equal(t, "a", records[0].Content)
}

func TestNew_memoryByDefault(t *testing.T) {
	s := store.New(store.Params{
		Log: test.NewLogger(),
	})
	defer s.Close()

	assert.IsType(t, &store.MemoryStore{}, s)
}
