// Package dispatch owns the table of live connections. It routes every
// inbound event to the chat pipeline, the presence service or the
// signaling relay, and delivers their outbound events.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/chat"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/multierr"
	"github.com/voxhall/voxhall/server/outcome"
	"github.com/voxhall/voxhall/server/presence"
	"github.com/voxhall/voxhall/server/registry"
	"github.com/voxhall/voxhall/server/signaling"
	"github.com/voxhall/voxhall/server/store"
	"golang.org/x/time/rate"
)

var (
	ErrConnNotFound  = errors.New("connection not found")
	ErrDuplicateConn = errors.New("duplicate connection")
)

// Writer delivers messages to a single connection. Write must not block
// for long since it is called while fanning out to many connections.
type Writer interface {
	Write(msg message.Message) error
}

type Params struct {
	Log   logger.Logger
	Rooms *registry.Registry
	Store store.Store

	// MessagesPerSecond and Burst limit message:send per connection. A zero
	// MessagesPerSecond disables the limit.
	MessagesPerSecond float64
	Burst             int

	RequireMembership bool
}

type conn struct {
	identity identifiers.Identity
	writer   Writer
	limiter  *rate.Limiter
}

type Core struct {
	log      logger.Logger
	rooms    *registry.Registry
	chat     *chat.Pipeline
	presence *presence.Service
	relay    *signaling.Relay

	limit rate.Limit
	burst int

	mu    sync.RWMutex
	conns map[identifiers.ConnID]*conn
}

func New(params Params) *Core {
	log := params.Log.WithNamespaceAppended("dispatch")

	limit := rate.Inf
	if params.MessagesPerSecond > 0 {
		limit = rate.Limit(params.MessagesPerSecond)
	}

	burst := params.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Core{
		log:   log,
		rooms: params.Rooms,
		limit: limit,
		burst: burst,
		conns: map[identifiers.ConnID]*conn{},
	}

	c.chat = chat.New(chat.Params{
		Log:     log,
		Store:   params.Store,
		Rooms:   params.Rooms,
		Emitter: c,
	})

	c.presence = presence.New(presence.Params{
		Log:      log,
		Rooms:    params.Rooms,
		Emitter:  c,
		Resolver: c,
	})

	c.relay = signaling.New(signaling.Params{
		Log:               log,
		Emitter:           c,
		Rooms:             params.Rooms,
		RequireMembership: params.RequireMembership,
	})

	return c
}

// Connect adds an authenticated connection to the table. From now on it
// can receive events.
func (c *Core) Connect(identity identifiers.Identity, writer Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.conns[identity.ConnID]; ok {
		return errors.Annotatef(ErrDuplicateConn, "connect %s", identity.ConnID)
	}

	c.conns[identity.ConnID] = &conn{
		identity: identity,
		writer:   writer,
		limiter:  rate.NewLimiter(c.limit, c.burst),
	}

	prometheusConnections.Inc()

	c.log.Info("Connected", logger.Ctx{
		"conn_id":  identity.ConnID,
		"user_id":  identity.UserID,
		"username": identity.Username,
	})

	return nil
}

// Disconnect removes the connection from the table and from every room,
// announcing departures from voice rooms. It is safe to call more than once.
func (c *Core) Disconnect(connID identifiers.ConnID) {
	c.mu.Lock()
	_, ok := c.conns[connID]
	delete(c.conns, connID)
	c.mu.Unlock()

	channelIDs := c.presence.Disconnect(connID)

	if !ok {
		return
	}

	prometheusConnections.Dec()

	c.log.Info("Disconnected", logger.Ctx{
		"conn_id":     connID,
		"voice_rooms": channelIDs,
	})
}

// Identity returns the identity of a live connection.
func (c *Core) Identity(connID identifiers.ConnID) (identifiers.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conn, ok := c.conns[connID]
	if !ok {
		return identifiers.Identity{}, false
	}

	return conn.identity, true
}

// Size returns the number of live connections.
func (c *Core) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.conns)
}

func (c *Core) writer(connID identifiers.ConnID) (Writer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conn, ok := c.conns[connID]
	if !ok {
		return nil, false
	}

	return conn.writer, true
}

// Emit sends msg to a single connection.
func (c *Core) Emit(connID identifiers.ConnID, msg message.Message) error {
	writer, ok := c.writer(connID)
	if !ok {
		return errors.Annotatef(ErrConnNotFound, "emit %s to %s", msg.Type, connID)
	}

	return errors.Annotatef(writer.Write(msg), "emit %s to %s", msg.Type, connID)
}

// Broadcast sends msg to every connection in connIDs. It does not stop at
// the first failure.
func (c *Core) Broadcast(connIDs []identifiers.ConnID, msg message.Message) error {
	errs := multierr.New()

	for _, connID := range connIDs {
		errs.Add(c.Emit(connID, msg))
	}

	return errors.Trace(errs.Err())
}

// Handle routes a single inbound event. A failure or panic while handling
// one event never affects other events or connections.
func (c *Core) Handle(ctx context.Context, connID identifiers.ConnID, msg message.Message) (res outcome.Outcome) {
	log := c.log.WithCtx(logger.Ctx{
		"conn_id": connID,
		"type":    msg.Type,
	})

	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic handling %s: %v", msg.Type, r)

			log.Error("Recovered from panic", err, logger.Ctx{
				"stack": string(debug.Stack()),
			})

			res = outcome.Failed(outcome.ReasonInternal, err)
		}

		prometheusEvents.WithLabelValues(string(msg.Type), res.Status.String()).Inc()

		log.Trace(fmt.Sprintf("Handled: %s", res), nil)
	}()

	c.mu.RLock()
	conn, ok := c.conns[connID]
	c.mu.RUnlock()

	if !ok {
		return outcome.Failed(outcome.ReasonInternal, errors.Annotatef(ErrConnNotFound, "handle %s", msg.Type))
	}

	return c.route(ctx, conn, msg)
}

func (c *Core) route(ctx context.Context, conn *conn, msg message.Message) outcome.Outcome {
	identity := conn.identity
	payload := msg.Payload

	switch msg.Type {
	case message.TypeChannelJoin:
		if !validChannel(payload.Channel) {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		c.rooms.JoinText(identity.ConnID, payload.Channel.ChannelID)

		return outcome.Sent()
	case message.TypeChannelLeave:
		if !validChannel(payload.Channel) {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		if !c.rooms.LeaveText(identity.ConnID, payload.Channel.ChannelID) {
			return outcome.Dropped(outcome.ReasonNotMember)
		}

		return outcome.Sent()
	case message.TypeMessageSend:
		if payload.Send == nil || payload.Send.ChannelID == "" {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		if !conn.limiter.Allow() {
			c.log.Debug("Rate limited", logger.Ctx{
				"conn_id": identity.ConnID,
			})

			return outcome.Dropped(outcome.ReasonRateLimited)
		}

		return c.chat.Send(ctx, identity, payload.Send.ChannelID, payload.Send.Content)
	case message.TypeVoiceJoin:
		if !validChannel(payload.Channel) {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		return c.presence.Join(identity, payload.Channel.ChannelID)
	case message.TypeVoiceLeave:
		if !validChannel(payload.Channel) {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		return c.presence.Leave(identity, payload.Channel.ChannelID)
	case message.TypeOffer, message.TypeAnswer, message.TypeICE:
		if payload.Signal == nil {
			return outcome.Dropped(outcome.ReasonInvalidPayload)
		}

		return c.relay.Forward(msg.Type, identity.ConnID, *payload.Signal)
	default:
		return outcome.Dropped(outcome.ReasonInvalidPayload)
	}
}

func validChannel(ch *message.Channel) bool {
	return ch != nil && ch.ChannelID != ""
}
