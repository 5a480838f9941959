// Package peer keeps the client side state of direct peer connections set
// up through the signaling relay: one Session per remote connection.
package peer

import (
	"encoding/json"
	"sync"

	"github.com/juju/errors"
	"github.com/pion/webrtc/v3"
	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/multierr"
)

var ErrSessionClosed = errors.New("session closed")

// Conn is the part of a peer connection a Session drives.
type Conn interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	Close() error
}

var _ Conn = (*webrtc.PeerConnection)(nil)

// Session is the state of a single peer connection to Remote in voice room
// ChannelID. Candidates received before the remote description are held
// until it is applied.
type Session struct {
	log logger.Logger

	remote    identifiers.ConnID
	channelID identifiers.ChannelID
	conn      Conn

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	closed    bool
}

func NewSession(
	log logger.Logger,
	remote identifiers.ConnID,
	channelID identifiers.ChannelID,
	conn Conn,
) *Session {
	return &Session{
		log: log.WithNamespaceAppended("peer").WithCtx(logger.Ctx{
			"remote_conn_id": remote,
			"channel_id":     channelID,
		}),
		remote:    remote,
		channelID: channelID,
		conn:      conn,
	}
}

func (s *Session) Remote() identifiers.ConnID {
	return s.remote
}

func (s *Session) ChannelID() identifiers.ChannelID {
	return s.channelID
}

// Pending returns the number of queued remote candidates.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

// Offer creates a local offer for the remote peer.
func (s *Session) Offer() (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return message.Message{}, errors.Trace(ErrSessionClosed)
	}

	offer, err := s.conn.CreateOffer(nil)
	if err != nil {
		return message.Message{}, errors.Annotate(err, "create offer")
	}

	if err := s.conn.SetLocalDescription(offer); err != nil {
		return message.Message{}, errors.Annotate(err, "set local description")
	}

	return s.outgoing(message.TypeOffer, offer)
}

// Signal applies a signal received from the remote peer. When the signal is
// an offer the returned message is the answer to send back, otherwise it is
// nil.
func (s *Session) Signal(typ message.Type, signal message.Signal) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.Trace(ErrSessionClosed)
	}

	switch typ {
	case message.TypeOffer:
		return s.handleOffer(signal.SDP)
	case message.TypeAnswer:
		return nil, errors.Trace(s.setRemote(signal.SDP, webrtc.SDPTypeAnswer))
	case message.TypeICE:
		return nil, errors.Trace(s.handleCandidate(signal.Candidate))
	default:
		return nil, errors.Errorf("unexpected signal type: %s", typ)
	}
}

func (s *Session) handleOffer(raw json.RawMessage) (*message.Message, error) {
	if err := s.setRemote(raw, webrtc.SDPTypeOffer); err != nil {
		return nil, errors.Trace(err)
	}

	answer, err := s.conn.CreateAnswer(nil)
	if err != nil {
		return nil, errors.Annotate(err, "create answer")
	}

	if err := s.conn.SetLocalDescription(answer); err != nil {
		return nil, errors.Annotate(err, "set local description")
	}

	msg, err := s.outgoing(message.TypeAnswer, answer)

	return &msg, errors.Trace(err)
}

func (s *Session) setRemote(raw json.RawMessage, want webrtc.SDPType) error {
	var desc webrtc.SessionDescription

	if err := json.Unmarshal(raw, &desc); err != nil {
		return errors.Annotate(err, "decode session description")
	}

	if desc.Type != want {
		return errors.Errorf("expected sdp type %s, got %s", want, desc.Type)
	}

	if err := s.conn.SetRemoteDescription(desc); err != nil {
		return errors.Annotate(err, "set remote description")
	}

	s.remoteSet = true

	return errors.Trace(s.flush())
}

func (s *Session) handleCandidate(raw json.RawMessage) error {
	var candidate webrtc.ICECandidateInit

	if err := json.Unmarshal(raw, &candidate); err != nil {
		return errors.Annotate(err, "decode candidate")
	}

	// An empty candidate marks the end of remote candidates.
	if candidate.Candidate == "" {
		return nil
	}

	if !s.remoteSet {
		s.log.Trace("Queue remote candidate", logger.Ctx{
			"candidate": candidate.Candidate,
		})

		s.pending = append(s.pending, candidate)

		return nil
	}

	return errors.Annotate(s.conn.AddICECandidate(candidate), "add candidate")
}

func (s *Session) flush() error {
	pending := s.pending
	s.pending = nil

	if len(pending) > 0 {
		s.log.Debug("Flush pending candidates", logger.Ctx{
			"count": len(pending),
		})
	}

	errs := multierr.New()

	for _, candidate := range pending {
		err := s.conn.AddICECandidate(candidate)
		errs.Add(errors.Annotatef(err, "add candidate %s", candidate.Candidate))
	}

	return errors.Trace(errs.Err())
}

func (s *Session) outgoing(typ message.Type, desc webrtc.SessionDescription) (message.Message, error) {
	sdp, err := json.Marshal(desc)
	if err != nil {
		return message.Message{}, errors.Annotate(err, "encode session description")
	}

	return message.NewSignal(typ, message.Signal{
		To:        s.remote,
		ChannelID: s.channelID,
		SDP:       sdp,
	}), nil
}

// Candidate builds the message carrying a local candidate to the remote peer.
func (s *Session) Candidate(candidate webrtc.ICECandidateInit) (message.Message, error) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return message.Message{}, errors.Annotate(err, "encode candidate")
	}

	return message.NewSignal(message.TypeICE, message.Signal{
		To:        s.remote,
		ChannelID: s.channelID,
		Candidate: raw,
	}), nil
}

// Close drops pending candidates and closes the connection. Only the first
// call closes the connection.
func (s *Session) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	s.pending = nil

	s.mu.Unlock()

	return errors.Annotate(s.conn.Close(), "close peer connection")
}
