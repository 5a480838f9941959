package test

import (
	"sync"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/multierr"
)

// ErrNotConnected is returned by Emitter for connections that were never
// added with Connect.
var ErrNotConnected = errors.New("not connected")

// Emitter records outbound messages per connection.
type Emitter struct {
	mu        sync.Mutex
	connected map[identifiers.ConnID]struct{}
	messages  map[identifiers.ConnID][]message.Message
}

func NewEmitter(connIDs ...identifiers.ConnID) *Emitter {
	e := &Emitter{
		connected: map[identifiers.ConnID]struct{}{},
		messages:  map[identifiers.ConnID][]message.Message{},
	}

	for _, connID := range connIDs {
		e.Connect(connID)
	}

	return e
}

func (e *Emitter) Connect(connID identifiers.ConnID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.connected[connID] = struct{}{}
}

func (e *Emitter) Disconnect(connID identifiers.ConnID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.connected, connID)
}

func (e *Emitter) Emit(connID identifiers.ConnID, msg message.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.connected[connID]; !ok {
		return errors.Annotatef(ErrNotConnected, "emit to %s", connID)
	}

	e.messages[connID] = append(e.messages[connID], msg)

	return nil
}

func (e *Emitter) Broadcast(connIDs []identifiers.ConnID, msg message.Message) error {
	errs := multierr.New()

	for _, connID := range connIDs {
		errs.Add(e.Emit(connID, msg))
	}

	return errors.Trace(errs.Err())
}

// Messages returns the messages emitted to connID and forgets them.
func (e *Emitter) Messages(connID identifiers.ConnID) []message.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	msgs := e.messages[connID]
	delete(e.messages, connID)

	return msgs
}

// Total returns the number of messages not yet collected with Messages.
func (e *Emitter) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0

	for _, msgs := range e.messages {
		total += len(msgs)
	}

	return total
}
