package peer

import (
	"sync"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/multierr"
)

// ConnFactory creates the peer connection for a new session.
type ConnFactory func(remote identifiers.ConnID) (Conn, error)

// Sender delivers a message to the dispatch server.
type Sender func(msg message.Message) error

type SessionsParams struct {
	Log     logger.Logger
	NewConn ConnFactory
	Send    Sender
}

// Sessions owns the Session of every remote connection a client talks to.
// A session is created by the first signal from a peer, or by an offer to a
// roster entry, and removed when the peer leaves or the client leaves the
// voice room.
type Sessions struct {
	log     logger.Logger
	newConn ConnFactory
	send    Sender

	mu       sync.Mutex
	sessions map[identifiers.ConnID]*Session
}

func NewSessions(params SessionsParams) *Sessions {
	return &Sessions{
		log:      params.Log.WithNamespaceAppended("sessions"),
		newConn:  params.NewConn,
		send:     params.Send,
		sessions: map[identifiers.ConnID]*Session{},
	}
}

// Get returns the session for remote, if any.
func (s *Sessions) Get(remote identifiers.ConnID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[remote]

	return session, ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Sessions) getOrCreate(remote identifiers.ConnID, channelID identifiers.ChannelID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[remote]; ok {
		return session, nil
	}

	conn, err := s.newConn(remote)
	if err != nil {
		return nil, errors.Annotatef(err, "new peer connection: %s", remote)
	}

	session := NewSession(s.log, remote, channelID, conn)
	s.sessions[remote] = session

	s.log.Info("Session created", logger.Ctx{
		"remote_conn_id": remote,
		"channel_id":     channelID,
	})

	return session, nil
}

// Handle applies a message received from the dispatch server. Messages
// unrelated to peer sessions are ignored.
func (s *Sessions) Handle(msg message.Message) error {
	switch msg.Type {
	case message.TypeVoicePeers:
		return errors.Trace(s.handlePeers(msg.Payload.Peers))
	case message.TypeVoiceUserLeft:
		if left := msg.Payload.UserLeft; left != nil {
			return errors.Trace(s.Remove(left.SocketID))
		}

		return nil
	case message.TypeOffer, message.TypeAnswer, message.TypeICE:
		return errors.Trace(s.handleSignal(msg.Type, msg.Payload.Signal))
	default:
		return nil
	}
}

// handlePeers offers a connection to every member already in the room.
func (s *Sessions) handlePeers(peers *message.Peers) error {
	if peers == nil {
		return nil
	}

	errs := multierr.New()

	for _, p := range peers.Peers {
		session, err := s.getOrCreate(p.SocketID, peers.ChannelID)
		if err != nil {
			errs.Add(err)

			continue
		}

		offer, err := session.Offer()
		if err != nil {
			errs.Add(errors.Annotatef(err, "offer to %s", p.SocketID))

			continue
		}

		errs.Add(errors.Annotatef(s.send(offer), "send offer to %s", p.SocketID))
	}

	return errors.Trace(errs.Err())
}

func (s *Sessions) handleSignal(typ message.Type, signal *message.Signal) error {
	if signal == nil || signal.From == "" {
		return errors.Errorf("signal %s without sender", typ)
	}

	session, err := s.getOrCreate(signal.From, signal.ChannelID)
	if err != nil {
		return errors.Trace(err)
	}

	reply, err := session.Signal(typ, *signal)
	if err != nil {
		return errors.Annotatef(err, "signal from %s", signal.From)
	}

	if reply == nil {
		return nil
	}

	return errors.Annotatef(s.send(*reply), "send %s to %s", reply.Type, signal.From)
}

// Remove closes and forgets the session for remote.
func (s *Sessions) Remove(remote identifiers.ConnID) error {
	s.mu.Lock()
	session, ok := s.sessions[remote]
	delete(s.sessions, remote)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	s.log.Info("Session removed", logger.Ctx{
		"remote_conn_id": remote,
	})

	return errors.Trace(session.Close())
}

// Leave closes every session in the voice room channelID.
func (s *Sessions) Leave(channelID identifiers.ChannelID) error {
	s.mu.Lock()

	var closing []*Session

	for remote, session := range s.sessions {
		if session.ChannelID() == channelID {
			closing = append(closing, session)
			delete(s.sessions, remote)
		}
	}

	s.mu.Unlock()

	return errors.Trace(closeAll(closing))
}

// Close closes every session.
func (s *Sessions) Close() error {
	s.mu.Lock()

	closing := make([]*Session, 0, len(s.sessions))

	for _, session := range s.sessions {
		closing = append(closing, session)
	}

	s.sessions = map[identifiers.ConnID]*Session{}

	s.mu.Unlock()

	return errors.Trace(closeAll(closing))
}

func closeAll(sessions []*Session) error {
	errs := multierr.New()

	for _, session := range sessions {
		errs.Add(session.Close())
	}

	return errs.Err()
}
