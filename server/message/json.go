package message

import (
	"bytes"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/oxtoacart/bpool"
)

var ErrUnknownType = errors.New("unknown message type")

// JSON is the wire envelope of every Message.
type JSON struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m Message) payload() (interface{}, error) {
	switch m.Type {
	case TypeChannelJoin, TypeChannelLeave, TypeVoiceJoin, TypeVoiceLeave:
		return m.Payload.Channel, nil
	case TypeMessageSend:
		return m.Payload.Send, nil
	case TypeMessageNew:
		return m.Payload.New, nil
	case TypeMessageError:
		return m.Payload.SendError, nil
	case TypeVoicePeers:
		return m.Payload.Peers, nil
	case TypeVoiceUserJoined:
		return m.Payload.UserJoined, nil
	case TypeVoiceUserLeft:
		return m.Payload.UserLeft, nil
	case TypeOffer, TypeAnswer, TypeICE:
		return m.Payload.Signal, nil
	default:
		return nil, errors.Annotatef(ErrUnknownType, "type: %q", m.Type)
	}
}

func (m Message) MarshalJSON() ([]byte, error) {
	payload, err := m.payload()
	if err != nil {
		return nil, errors.Trace(err)
	}

	var buf bytes.Buffer

	if err := encode(&buf, payload); err != nil {
		return nil, errors.Annotatef(err, "payload of %q", m.Type)
	}

	j := JSON{
		Type:    m.Type,
		Payload: buf.Bytes(),
	}

	var out bytes.Buffer

	err = encode(&out, j)

	return out.Bytes(), errors.Annotatef(err, "message of %q", m.Type)
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var j JSON

	if err := json.Unmarshal(b, &j); err != nil {
		return errors.Trace(err)
	}

	m.Type = j.Type

	var target interface{}

	switch m.Type {
	case TypeChannelJoin, TypeChannelLeave, TypeVoiceJoin, TypeVoiceLeave:
		m.Payload.Channel = &Channel{}
		target = m.Payload.Channel
	case TypeMessageSend:
		m.Payload.Send = &Send{}
		target = m.Payload.Send
	case TypeMessageNew:
		m.Payload.New = &New{}
		target = m.Payload.New
	case TypeMessageError:
		m.Payload.SendError = &SendError{}
		target = m.Payload.SendError
	case TypeVoicePeers:
		m.Payload.Peers = &Peers{}
		target = m.Payload.Peers
	case TypeVoiceUserJoined:
		m.Payload.UserJoined = &UserJoined{}
		target = m.Payload.UserJoined
	case TypeVoiceUserLeft:
		m.Payload.UserLeft = &UserLeft{}
		target = m.Payload.UserLeft
	case TypeOffer, TypeAnswer, TypeICE:
		m.Payload.Signal = &Signal{}
		target = m.Payload.Signal
	default:
		return errors.Annotatef(ErrUnknownType, "type: %q", j.Type)
	}

	if len(j.Payload) == 0 {
		return nil
	}

	err := json.Unmarshal(j.Payload, target)

	return errors.Annotatef(err, "payload: %s", j.Payload)
}

// encode writes v without HTML escaping so that relayed payloads keep their
// original characters.
func encode(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return errors.Trace(err)
	}

	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)

	return nil
}

const defaultBufferPoolSize = 128

// Serializer converts messages to and from websocket text frames.
type Serializer struct {
	bufPool *bpool.BufferPool
}

func NewSerializer() *Serializer {
	return &Serializer{
		bufPool: bpool.NewBufferPool(defaultBufferPoolSize),
	}
}

func (s *Serializer) Serialize(m Message) ([]byte, error) {
	buf := s.bufPool.Get()
	defer s.bufPool.Put(buf)

	if err := encode(buf, m); err != nil {
		return nil, errors.Annotate(err, "serialize")
	}

	// The pooled buffer is reused, so the caller gets a copy.
	b := make([]byte, buf.Len())
	copy(b, buf.Bytes())

	return b, nil
}

func (s *Serializer) Deserialize(data []byte) (m Message, err error) {
	err = json.Unmarshal(data, &m)

	return m, errors.Annotate(err, "deserialize")
}
