package presence_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/outcome"
	"github.com/voxhall/voxhall/server/presence"
	"github.com/voxhall/voxhall/server/registry"
	"github.com/voxhall/voxhall/server/test"
	"go.uber.org/goleak"
)

type identities map[identifiers.ConnID]identifiers.Identity

func (i identities) Identity(connID identifiers.ConnID) (identifiers.Identity, bool) {
	identity, ok := i[connID]

	return identity, ok
}

var (
	c1 = identifiers.Identity{ConnID: "c1", UserID: 1, Username: "alice"}
	c2 = identifiers.Identity{ConnID: "c2", UserID: 2, Username: "bob"}
	c3 = identifiers.Identity{ConnID: "c3", UserID: 3, Username: "carol"}
)

type fixture struct {
	rooms    *registry.Registry
	emitter  *test.Emitter
	presence *presence.Service
}

func newFixture(known identities) fixture {
	f := fixture{
		rooms:   registry.New(),
		emitter: test.NewEmitter("c1", "c2", "c3"),
	}

	f.presence = presence.New(presence.Params{
		Log:      test.NewLogger(),
		Rooms:    f.rooms,
		Emitter:  f.emitter,
		Resolver: known,
	})

	return f
}

func allKnown() identities {
	return identities{
		"c1": c1,
		"c2": c2,
		"c3": c3,
	}
}

func TestService_Join_roster(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	assert.Equal(t, outcome.Sent(), f.presence.Join(c1, "9"))
	assert.Equal(t, []message.Message{
		message.NewVoicePeers("9", []message.Peer{}),
	}, f.emitter.Messages("c1"))

	assert.Equal(t, outcome.Sent(), f.presence.Join(c2, "9"))
	assert.Equal(t, []message.Message{
		message.NewVoicePeers("9", []message.Peer{{SocketID: "c1", Username: "alice"}}),
	}, f.emitter.Messages("c2"))
	assert.Equal(t, []message.Message{
		message.NewUserJoined("9", "c2", "bob"),
	}, f.emitter.Messages("c1"))

	assert.Equal(t, outcome.Sent(), f.presence.Join(c3, "9"))
	assert.Equal(t, []message.Message{
		message.NewVoicePeers("9", []message.Peer{
			{SocketID: "c1", Username: "alice"},
			{SocketID: "c2", Username: "bob"},
		}),
	}, f.emitter.Messages("c3"))
	assert.Equal(t, []message.Message{message.NewUserJoined("9", "c3", "carol")}, f.emitter.Messages("c1"))
	assert.Equal(t, []message.Message{message.NewUserJoined("9", "c3", "carol")}, f.emitter.Messages("c2"))
}

func TestService_Join_twice(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	f.presence.Join(c1, "9")
	f.presence.Join(c2, "9")
	f.emitter.Messages("c1")
	f.emitter.Messages("c2")

	assert.Equal(t, outcome.Sent(), f.presence.Join(c2, "9"))

	assert.Equal(t, []message.Message{
		message.NewVoicePeers("9", []message.Peer{{SocketID: "c1", Username: "alice"}}),
	}, f.emitter.Messages("c2"), "roster is sent again")
	assert.Empty(t, f.emitter.Messages("c1"), "no second announcement")
	assert.Equal(t, []identifiers.ConnID{"c1", "c2"}, f.rooms.MembersOf("9", identifiers.RoomKindVoice))
}

func TestService_Join_placeholderUsername(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(identities{"c2": c2})

	f.rooms.JoinVoice("c1", "9")

	f.presence.Join(c2, "9")

	assert.Equal(t, []message.Message{
		message.NewVoicePeers("9", []message.Peer{{SocketID: "c1", Username: presence.PlaceholderUsername}}),
	}, f.emitter.Messages("c2"))
}

func TestService_Leave(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	f.presence.Join(c1, "9")
	f.presence.Join(c2, "9")
	f.emitter.Messages("c1")
	f.emitter.Messages("c2")

	assert.Equal(t, outcome.Sent(), f.presence.Leave(c2, "9"))
	assert.Equal(t, []message.Message{message.NewUserLeft("9", "c2")}, f.emitter.Messages("c1"))
	assert.Empty(t, f.emitter.Messages("c2"))

	assert.Equal(t, outcome.Dropped(outcome.ReasonNotPresent), f.presence.Leave(c2, "9"))
	assert.Equal(t, 0, f.emitter.Total())

	assert.Equal(t, outcome.Sent(), f.presence.Leave(c1, "9"))
	assert.False(t, f.rooms.HasRoom("9", identifiers.RoomKindVoice), "empty room is removed")
	assert.Equal(t, 0, f.emitter.Total())
}

func TestService_Disconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	f.presence.Join(c1, "9")
	f.presence.Join(c2, "9")
	f.emitter.Messages("c1")
	f.emitter.Messages("c2")

	assert.Equal(t, []identifiers.ChannelID{"9"}, f.presence.Disconnect("c1"))

	assert.Equal(t, []message.Message{message.NewUserLeft("9", "c1")}, f.emitter.Messages("c2"))
	assert.Equal(t, []identifiers.ConnID{"c2"}, f.rooms.MembersOf("9", identifiers.RoomKindVoice))

	assert.Empty(t, f.presence.Disconnect("c1"), "second disconnect is a no-op")
	assert.Equal(t, 0, f.emitter.Total())
}

func TestService_Disconnect_drift(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	f.presence.Join(c2, "9")
	f.presence.Join(c3, "10")
	f.presence.Join(c1, "9")
	f.presence.Join(c1, "10")
	f.emitter.Messages("c2")
	f.emitter.Messages("c3")

	assert.Equal(t, []identifiers.ChannelID{"10", "9"}, f.presence.Disconnect("c1"))

	assert.Equal(t, []message.Message{message.NewUserLeft("9", "c1")}, f.emitter.Messages("c2"))
	assert.Equal(t, []message.Message{message.NewUserLeft("10", "c1")}, f.emitter.Messages("c3"))
}

func TestService_LeaveRacesDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(allKnown())

	f.presence.Join(c1, "9")
	f.presence.Join(c2, "9")
	f.emitter.Messages("c1")
	f.emitter.Messages("c2")

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		f.presence.Leave(c1, "9")
	}()

	go func() {
		defer wg.Done()
		f.presence.Disconnect("c1")
	}()

	wg.Wait()

	assert.Equal(t, []message.Message{message.NewUserLeft("9", "c1")}, f.emitter.Messages("c2"), "exactly one departure")
	assert.Equal(t, []identifiers.ConnID{"c2"}, f.rooms.MembersOf("9", identifiers.RoomKindVoice))
}
