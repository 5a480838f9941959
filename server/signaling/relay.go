// Package signaling relays call-setup payloads between two connections
// without looking into them.
package signaling

import (
	"encoding/json"

	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/outcome"
)

type Emitter interface {
	Emit(connID identifiers.ConnID, msg message.Message) error
}

type Rooms interface {
	IsMember(connID identifiers.ConnID, channelID identifiers.ChannelID, kind identifiers.RoomKind) bool
}

type Params struct {
	Log     logger.Logger
	Emitter Emitter
	Rooms   Rooms
	// RequireMembership drops signals unless both sender and target are in
	// the named voice room.
	RequireMembership bool
}

type Relay struct {
	log               logger.Logger
	emitter           Emitter
	rooms             Rooms
	requireMembership bool
}

func New(params Params) *Relay {
	return &Relay{
		log:               params.Log.WithNamespaceAppended("signaling"),
		emitter:           params.Emitter,
		rooms:             params.Rooms,
		requireMembership: params.RequireMembership,
	}
}

func (r *Relay) ForwardOffer(
	from identifiers.ConnID,
	to identifiers.ConnID,
	channelID identifiers.ChannelID,
	sdp json.RawMessage,
) outcome.Outcome {
	return r.Forward(message.TypeOffer, from, message.Signal{
		To:        to,
		ChannelID: channelID,
		SDP:       sdp,
	})
}

func (r *Relay) ForwardAnswer(
	from identifiers.ConnID,
	to identifiers.ConnID,
	channelID identifiers.ChannelID,
	sdp json.RawMessage,
) outcome.Outcome {
	return r.Forward(message.TypeAnswer, from, message.Signal{
		To:        to,
		ChannelID: channelID,
		SDP:       sdp,
	})
}

func (r *Relay) ForwardCandidate(
	from identifiers.ConnID,
	to identifiers.ConnID,
	channelID identifiers.ChannelID,
	candidate json.RawMessage,
) outcome.Outcome {
	return r.Forward(message.TypeICE, from, message.Signal{
		To:        to,
		ChannelID: channelID,
		Candidate: candidate,
	})
}

// Forward emits signal to signal.To tagged with the sender. An unknown or
// disconnected target silently drops the signal.
func (r *Relay) Forward(typ message.Type, from identifiers.ConnID, signal message.Signal) outcome.Outcome {
	res := r.forward(typ, from, signal)

	prometheusSignals.WithLabelValues(string(typ), res.Status.String()).Inc()

	return res
}

func (r *Relay) forward(typ message.Type, from identifiers.ConnID, signal message.Signal) outcome.Outcome {
	log := r.log.WithCtx(logger.Ctx{
		"conn_id":    from,
		"to":         signal.To,
		"channel_id": signal.ChannelID,
		"type":       typ,
	})

	if !typ.IsSignal() || signal.To == "" {
		log.Debug("Dropped invalid signal", nil)

		return outcome.Dropped(outcome.ReasonInvalidPayload)
	}

	if r.requireMembership && !r.areMembers(signal.ChannelID, from, signal.To) {
		log.Debug("Dropped signal outside of voice room", nil)

		return outcome.Dropped(outcome.ReasonNotMember)
	}

	to := signal.To

	signal.From = from
	signal.To = ""

	if err := r.emitter.Emit(to, message.NewSignal(typ, signal)); err != nil {
		log.Debug("Dropped undeliverable signal", logger.Ctx{
			"err": err,
		})

		return outcome.Dropped(outcome.ReasonUndeliverableTarget)
	}

	log.Trace("Relayed signal", nil)

	return outcome.Sent()
}

func (r *Relay) areMembers(channelID identifiers.ChannelID, connIDs ...identifiers.ConnID) bool {
	for _, connID := range connIDs {
		if !r.rooms.IsMember(connID, channelID, identifiers.RoomKindVoice) {
			return false
		}
	}

	return true
}
