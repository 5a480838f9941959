// Package chat implements the message pipeline: a chat message is
// normalized, persisted and only then broadcast to the text room.
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/outcome"
	"github.com/voxhall/voxhall/server/store"
)

// MaxContentLength is the maximum number of characters of a chat message.
const MaxContentLength = 2000

// Emitter delivers outbound messages to live connections.
type Emitter interface {
	Emit(connID identifiers.ConnID, msg message.Message) error
	Broadcast(connIDs []identifiers.ConnID, msg message.Message) error
}

// Rooms lists the members of a room.
type Rooms interface {
	MembersOf(channelID identifiers.ChannelID, kind identifiers.RoomKind) []identifiers.ConnID
}

type Params struct {
	Log     logger.Logger
	Store   store.Store
	Rooms   Rooms
	Emitter Emitter
}

type Pipeline struct {
	log     logger.Logger
	store   store.Store
	rooms   Rooms
	emitter Emitter
	locks   *channelLocks
}

func New(params Params) *Pipeline {
	return &Pipeline{
		log:     params.Log.WithNamespaceAppended("chat"),
		store:   params.Store,
		rooms:   params.Rooms,
		emitter: params.Emitter,
		locks:   newChannelLocks(),
	}
}

// Send normalizes content and, when it is not empty, persists it and
// broadcasts the persisted message to every member of the text room,
// including the sender.
//
// Two sends to the same channel are broadcast in the order their
// persistence completed.
func (p *Pipeline) Send(
	ctx context.Context,
	sender identifiers.Identity,
	channelID identifiers.ChannelID,
	content json.RawMessage,
) outcome.Outcome {
	log := p.log.WithCtx(logger.Ctx{
		"conn_id":    sender.ConnID,
		"channel_id": channelID,
	})

	text := Normalize(content)
	if text == "" {
		log.Debug("Dropped empty message", nil)
		prometheusChatOutcomes.WithLabelValues(outcome.StatusDropped.String()).Inc()

		return outcome.Dropped(outcome.ReasonEmptyContent)
	}

	unlock := p.locks.lock(channelID)
	defer unlock()

	persisted, err := p.store.PersistMessage(ctx, store.NewMessage{
		ChannelID: channelID,
		UserID:    sender.UserID,
		Username:  sender.Username,
		Content:   text,
	})
	if err != nil {
		err = errors.Annotatef(err, "persist message in channel %s", channelID)

		log.Error("Persist message", err, nil)
		prometheusChatOutcomes.WithLabelValues(outcome.StatusFailed.String()).Inc()

		if emitErr := p.emitter.Emit(
			sender.ConnID,
			message.NewSendError(channelID, string(outcome.ReasonPersistence)),
		); emitErr != nil {
			log.Debug("Emit send error", logger.Ctx{
				"err": emitErr,
			})
		}

		return outcome.Failed(outcome.ReasonPersistence, err)
	}

	msg := message.NewMessageNew(message.Chat{
		ID:        persisted.ID,
		ChannelID: channelID,
		UserID:    sender.UserID,
		Username:  sender.Username,
		Content:   text,
		CreatedAt: persisted.CreatedAt,
	})

	members := p.rooms.MembersOf(channelID, identifiers.RoomKindText)

	if err := p.emitter.Broadcast(members, msg); err != nil {
		// Members that went away are not a failure of the send.
		log.Debug("Broadcast incomplete", logger.Ctx{
			"err": err,
		})
	}

	log.Trace("Sent message", logger.Ctx{
		"message_id": persisted.ID,
		"members":    len(members),
	})
	prometheusChatOutcomes.WithLabelValues(outcome.StatusSent.String()).Inc()

	return outcome.Sent()
}

// Normalize coerces raw content to text, trims surrounding whitespace and
// caps the result at MaxContentLength characters. JSON strings are decoded,
// null becomes empty and any other JSON value is used verbatim.
func Normalize(raw json.RawMessage) string {
	var text string

	trimmed := strings.TrimSpace(string(raw))

	switch {
	case trimmed == "" || trimmed == "null":
	case trimmed[0] == '"':
		if err := json.Unmarshal([]byte(trimmed), &text); err != nil {
			text = trimmed
		}
	default:
		text = trimmed
	}

	text = strings.TrimSpace(text)

	return truncate(text, MaxContentLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0

	for i := range s {
		if n == max {
			return s[:i]
		}

		n++
	}

	return s
}

// channelLocks serializes persist and fan-out per channel. Locks are
// reference counted and removed when nobody holds or waits for them.
type channelLocks struct {
	mu    sync.Mutex
	locks map[identifiers.ChannelID]*channelLock
}

type channelLock struct {
	sync.Mutex
	refs int
}

func newChannelLocks() *channelLocks {
	return &channelLocks{
		locks: map[identifiers.ChannelID]*channelLock{},
	}
}

func (c *channelLocks) lock(channelID identifiers.ChannelID) (unlock func()) {
	c.mu.Lock()

	l, ok := c.locks[channelID]
	if !ok {
		l = &channelLock{}
		c.locks[channelID] = l
	}

	l.refs++

	c.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		c.mu.Lock()

		l.refs--
		if l.refs == 0 {
			delete(c.locks, channelID)
		}

		c.mu.Unlock()
	}
}
