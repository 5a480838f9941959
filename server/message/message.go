package message

import (
	"encoding/json"
	"time"

	"github.com/voxhall/voxhall/server/identifiers"
)

// Message is a single event exchanged over a connection. Only the Payload
// field matching Type is set.
type Message struct {
	Type    Type
	Payload Payload
}

type Type string

const (
	// Inbound, connection to server.
	TypeChannelJoin  Type = "channel:join"
	TypeChannelLeave Type = "channel:leave"
	TypeMessageSend  Type = "message:send"
	TypeVoiceJoin    Type = "voice:join"
	TypeVoiceLeave   Type = "voice:leave"

	// Outbound, server to connection.
	TypeMessageNew      Type = "message:new"
	TypeMessageError    Type = "message:error"
	TypeVoicePeers      Type = "voice:peers"
	TypeVoiceUserJoined Type = "voice:user_joined"
	TypeVoiceUserLeft   Type = "voice:user_left"

	// Signaling types travel in both directions. Inbound messages carry To,
	// outbound messages carry From.
	TypeOffer  Type = "webrtc:offer"
	TypeAnswer Type = "webrtc:answer"
	TypeICE    Type = "webrtc:ice"
)

type Payload struct {
	Channel    *Channel
	Send       *Send
	New        *New
	SendError  *SendError
	Peers      *Peers
	UserJoined *UserJoined
	UserLeft   *UserLeft
	Signal     *Signal
}

// Channel is the payload of channel:join, channel:leave, voice:join and
// voice:leave.
type Channel struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
}

type Send struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	// Content is kept raw because clients are not required to send a string.
	Content json.RawMessage `json:"content"`
}

// Chat is a persisted chat message as broadcast to a text room.
type Chat struct {
	ID        int64                 `json:"id"`
	ChannelID identifiers.ChannelID `json:"channelId"`
	UserID    identifiers.UserID    `json:"userId"`
	Username  string                `json:"username"`
	Content   string                `json:"content"`
	CreatedAt time.Time             `json:"createdAt"`
}

type New struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	Message   Chat                  `json:"message"`
}

type SendError struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	Reason    string                `json:"reason"`
}

type Peer struct {
	SocketID identifiers.ConnID `json:"socketId"`
	Username string             `json:"username"`
}

type Peers struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	Peers     []Peer                `json:"peers"`
}

type UserJoined struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	SocketID  identifiers.ConnID    `json:"socketId"`
	Username  string                `json:"username"`
}

type UserLeft struct {
	ChannelID identifiers.ChannelID `json:"channelId"`
	SocketID  identifiers.ConnID    `json:"socketId"`
}

// Signal is an opaque call-setup payload. SDP is set for offers and answers,
// Candidate for ICE candidates. Neither is ever inspected by the server.
type Signal struct {
	To        identifiers.ConnID    `json:"to,omitempty"`
	From      identifiers.ConnID    `json:"from,omitempty"`
	ChannelID identifiers.ChannelID `json:"channelId"`
	SDP       json.RawMessage       `json:"sdp,omitempty"`
	Candidate json.RawMessage       `json:"candidate,omitempty"`
}

// Data returns the opaque part of the signal, whichever field is set.
func (s Signal) Data() json.RawMessage {
	if s.Candidate != nil {
		return s.Candidate
	}

	return s.SDP
}

func NewChannelJoin(channelID identifiers.ChannelID) Message {
	return Message{
		Type:    TypeChannelJoin,
		Payload: Payload{Channel: &Channel{ChannelID: channelID}},
	}
}

func NewChannelLeave(channelID identifiers.ChannelID) Message {
	return Message{
		Type:    TypeChannelLeave,
		Payload: Payload{Channel: &Channel{ChannelID: channelID}},
	}
}

func NewVoiceJoin(channelID identifiers.ChannelID) Message {
	return Message{
		Type:    TypeVoiceJoin,
		Payload: Payload{Channel: &Channel{ChannelID: channelID}},
	}
}

func NewVoiceLeave(channelID identifiers.ChannelID) Message {
	return Message{
		Type:    TypeVoiceLeave,
		Payload: Payload{Channel: &Channel{ChannelID: channelID}},
	}
}

func NewSend(channelID identifiers.ChannelID, content json.RawMessage) Message {
	return Message{
		Type:    TypeMessageSend,
		Payload: Payload{Send: &Send{ChannelID: channelID, Content: content}},
	}
}

func NewMessageNew(chat Chat) Message {
	return Message{
		Type: TypeMessageNew,
		Payload: Payload{New: &New{
			ChannelID: chat.ChannelID,
			Message:   chat,
		}},
	}
}

func NewSendError(channelID identifiers.ChannelID, reason string) Message {
	return Message{
		Type:    TypeMessageError,
		Payload: Payload{SendError: &SendError{ChannelID: channelID, Reason: reason}},
	}
}

func NewVoicePeers(channelID identifiers.ChannelID, peers []Peer) Message {
	if peers == nil {
		peers = []Peer{}
	}

	return Message{
		Type:    TypeVoicePeers,
		Payload: Payload{Peers: &Peers{ChannelID: channelID, Peers: peers}},
	}
}

func NewUserJoined(channelID identifiers.ChannelID, connID identifiers.ConnID, username string) Message {
	return Message{
		Type: TypeVoiceUserJoined,
		Payload: Payload{UserJoined: &UserJoined{
			ChannelID: channelID,
			SocketID:  connID,
			Username:  username,
		}},
	}
}

func NewUserLeft(channelID identifiers.ChannelID, connID identifiers.ConnID) Message {
	return Message{
		Type: TypeVoiceUserLeft,
		Payload: Payload{UserLeft: &UserLeft{
			ChannelID: channelID,
			SocketID:  connID,
		}},
	}
}

// NewSignal creates a signaling message. typ must be one of TypeOffer,
// TypeAnswer or TypeICE.
func NewSignal(typ Type, signal Signal) Message {
	return Message{
		Type:    typ,
		Payload: Payload{Signal: &signal},
	}
}

// IsSignal returns true for the three relayed call-setup types.
func (t Type) IsSignal() bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeICE:
		return true
	default:
		return false
	}
}
