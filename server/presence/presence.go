// Package presence implements the voice room protocol: join, leave, roster
// and disconnect cleanup.
package presence

import (
	"sync"

	"github.com/voxhall/voxhall/server/identifiers"
	"github.com/voxhall/voxhall/server/logger"
	"github.com/voxhall/voxhall/server/message"
	"github.com/voxhall/voxhall/server/outcome"
	"github.com/voxhall/voxhall/server/registry"
)

// PlaceholderUsername is reported in a roster for members whose identity
// can no longer be resolved.
const PlaceholderUsername = "user"

type Emitter interface {
	Emit(connID identifiers.ConnID, msg message.Message) error
	Broadcast(connIDs []identifiers.ConnID, msg message.Message) error
}

// Resolver finds the identity of a live connection.
type Resolver interface {
	Identity(connID identifiers.ConnID) (identifiers.Identity, bool)
}

type Rooms interface {
	JoinVoice(connID identifiers.ConnID, channelID identifiers.ChannelID) ([]identifiers.ConnID, bool)
	LeaveVoice(connID identifiers.ConnID, channelID identifiers.ChannelID) ([]identifiers.ConnID, bool)
	RemoveConnectionEverywhere(connID identifiers.ConnID) []registry.Departure
	RoomCount(kind identifiers.RoomKind) int
}

type Params struct {
	Log      logger.Logger
	Rooms    Rooms
	Emitter  Emitter
	Resolver Resolver
}

// Service moves connections between the NOT_PRESENT and PRESENT states of
// voice rooms and tells the other members about it.
//
// The mutex keeps the roster sent to a joiner consistent with the
// announcements other members receive: a member is either in the roster or
// announced later, never both nor neither.
type Service struct {
	log      logger.Logger
	rooms    Rooms
	emitter  Emitter
	resolver Resolver

	mu sync.Mutex
}

func New(params Params) *Service {
	return &Service{
		log:      params.Log.WithNamespaceAppended("presence"),
		rooms:    params.Rooms,
		emitter:  params.Emitter,
		resolver: params.Resolver,
	}
}

// Join adds the connection to the voice room, sends it the roster of the
// other members and announces it to them. Joining twice resends the roster
// without a second announcement.
func (s *Service) Join(identity identifiers.Identity, channelID identifiers.ChannelID) outcome.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.WithCtx(logger.Ctx{
		"conn_id":    identity.ConnID,
		"channel_id": channelID,
	})

	current, added := s.rooms.JoinVoice(identity.ConnID, channelID)

	others := make([]identifiers.ConnID, 0, len(current))
	peers := make([]message.Peer, 0, len(current))

	for _, connID := range current {
		if connID == identity.ConnID {
			continue
		}

		others = append(others, connID)
		peers = append(peers, message.Peer{
			SocketID: connID,
			Username: s.username(connID),
		})
	}

	if err := s.emitter.Emit(identity.ConnID, message.NewVoicePeers(channelID, peers)); err != nil {
		log.Debug("Emit roster", logger.Ctx{
			"err": err,
		})
	}

	if added {
		msg := message.NewUserJoined(channelID, identity.ConnID, identity.Username)

		if err := s.emitter.Broadcast(others, msg); err != nil {
			log.Debug("Broadcast user joined", logger.Ctx{
				"err": err,
			})
		}
	}

	log.Info("Voice join", logger.Ctx{
		"peers": len(peers),
		"added": added,
	})

	s.updateRoomsGauge()

	return outcome.Sent()
}

// Leave removes the connection from the voice room and announces the
// departure to the remaining members. Leaving a room the connection is not
// in has no effect.
func (s *Service) Leave(identity identifiers.Identity, channelID identifiers.ChannelID) outcome.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining, removed := s.rooms.LeaveVoice(identity.ConnID, channelID)
	if !removed {
		return outcome.Dropped(outcome.ReasonNotPresent)
	}

	s.announceLeft(identity.ConnID, channelID, remaining)

	s.updateRoomsGauge()

	return outcome.Sent()
}

// Disconnect removes the connection from every voice room it is found in,
// announcing each departure separately. It returns the rooms it was
// removed from.
func (s *Service) Disconnect(connID identifiers.ConnID) []identifiers.ChannelID {
	s.mu.Lock()
	defer s.mu.Unlock()

	departures := s.rooms.RemoveConnectionEverywhere(connID)

	channelIDs := make([]identifiers.ChannelID, 0, len(departures))

	for _, departure := range departures {
		s.announceLeft(connID, departure.ChannelID, departure.Remaining)

		channelIDs = append(channelIDs, departure.ChannelID)
	}

	if len(departures) > 0 {
		s.updateRoomsGauge()
	}

	return channelIDs
}

func (s *Service) announceLeft(
	connID identifiers.ConnID,
	channelID identifiers.ChannelID,
	remaining []identifiers.ConnID,
) {
	log := s.log.WithCtx(logger.Ctx{
		"conn_id":    connID,
		"channel_id": channelID,
	})

	if err := s.emitter.Broadcast(remaining, message.NewUserLeft(channelID, connID)); err != nil {
		log.Debug("Broadcast user left", logger.Ctx{
			"err": err,
		})
	}

	log.Info("Voice leave", logger.Ctx{
		"remaining": len(remaining),
	})
}

func (s *Service) username(connID identifiers.ConnID) string {
	identity, ok := s.resolver.Identity(connID)
	if !ok || identity.Username == "" {
		return PlaceholderUsername
	}

	return identity.Username
}

func (s *Service) updateRoomsGauge() {
	prometheusVoiceRooms.Set(float64(s.rooms.RoomCount(identifiers.RoomKindVoice)))
}
