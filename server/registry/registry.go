// Package registry keeps track of which connections are members of which
// text and voice rooms. It holds no connection handles, only ids.
package registry

import (
	"sort"
	"sync"

	"github.com/voxhall/voxhall/server/identifiers"
)

type members map[identifiers.ConnID]struct{}

// Departure describes a connection removed from a voice room together with
// the members that are still in it.
type Departure struct {
	ChannelID identifiers.ChannelID
	Remaining []identifiers.ConnID
}

// Registry is safe for concurrent use. A single lock guards both mappings.
// All operations are idempotent and treat missing rooms as empty.
type Registry struct {
	mu    sync.RWMutex
	text  map[identifiers.ChannelID]members
	voice map[identifiers.ChannelID]members
}

func New() *Registry {
	return &Registry{
		text:  map[identifiers.ChannelID]members{},
		voice: map[identifiers.ChannelID]members{},
	}
}

func (r *Registry) rooms(kind identifiers.RoomKind) map[identifiers.ChannelID]members {
	if kind == identifiers.RoomKindVoice {
		return r.voice
	}

	return r.text
}

func add(rooms map[identifiers.ChannelID]members, channelID identifiers.ChannelID, connID identifiers.ConnID) bool {
	room, ok := rooms[channelID]
	if !ok {
		room = members{}
		rooms[channelID] = room
	}

	if _, ok := room[connID]; ok {
		return false
	}

	room[connID] = struct{}{}

	return true
}

// remove deletes connID and drops the room once it is empty.
func remove(rooms map[identifiers.ChannelID]members, channelID identifiers.ChannelID, connID identifiers.ConnID) bool {
	room, ok := rooms[channelID]
	if !ok {
		return false
	}

	if _, ok := room[connID]; !ok {
		return false
	}

	delete(room, connID)

	if len(room) == 0 {
		delete(rooms, channelID)
	}

	return true
}

func sorted(room members) []identifiers.ConnID {
	ret := make([]identifiers.ConnID, 0, len(room))

	for connID := range room {
		ret = append(ret, connID)
	}

	sort.Sort(identifiers.ConnIDs(ret))

	return ret
}

// JoinText adds the connection to a text room. It returns false when the
// connection was already a member.
func (r *Registry) JoinText(connID identifiers.ConnID, channelID identifiers.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return add(r.text, channelID, connID)
}

// LeaveText removes the connection from a text room. It returns false when
// the connection was not a member.
func (r *Registry) LeaveText(connID identifiers.ConnID, channelID identifiers.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return remove(r.text, channelID, connID)
}

// JoinVoice adds the connection to a voice room and returns the room's
// members after the join, including connID, and whether it was newly added.
// Membership and the returned snapshot are taken under the same lock, so a
// concurrent joiner is seen by exactly one of the two.
func (r *Registry) JoinVoice(connID identifiers.ConnID, channelID identifiers.ChannelID) (current []identifiers.ConnID, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added = add(r.voice, channelID, connID)

	return sorted(r.voice[channelID]), added
}

// LeaveVoice removes the connection from a voice room. It returns the
// remaining members and whether the connection had been a member.
func (r *Registry) LeaveVoice(connID identifiers.ConnID, channelID identifiers.ChannelID) (remaining []identifiers.ConnID, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed = remove(r.voice, channelID, connID)

	return sorted(r.voice[channelID]), removed
}

// MembersOf returns the sorted members of a room. Unknown rooms are empty.
func (r *Registry) MembersOf(channelID identifiers.ChannelID, kind identifiers.RoomKind) []identifiers.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sorted(r.rooms(kind)[channelID])
}

// IsMember returns true when connID is in the room.
func (r *Registry) IsMember(connID identifiers.ConnID, channelID identifiers.ChannelID, kind identifiers.RoomKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms(kind)[channelID][connID]

	return ok
}

// HasRoom returns true when the room exists. Empty rooms never exist.
func (r *Registry) HasRoom(channelID identifiers.ChannelID, kind identifiers.RoomKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms(kind)[channelID]

	return ok
}

// RoomCount returns the number of non-empty rooms of kind.
func (r *Registry) RoomCount(kind identifiers.RoomKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms(kind))
}

// RemoveConnectionEverywhere removes the connection from every room it is
// found in. Every voice room is scanned rather than trusting any single
// remembered room. Text memberships are pruned too but not reported.
func (r *Registry) RemoveConnectionEverywhere(connID identifiers.ConnID) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure

	for channelID := range r.voice {
		if remove(r.voice, channelID, connID) {
			departures = append(departures, Departure{
				ChannelID: channelID,
				Remaining: sorted(r.voice[channelID]),
			})
		}
	}

	for channelID := range r.text {
		remove(r.text, channelID, connID)
	}

	sort.Slice(departures, func(i, j int) bool {
		return departures[i].ChannelID < departures[j].ChannelID
	})

	return departures
}
