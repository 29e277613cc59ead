package app

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

// RoomRegistry maps rooms to member usernames. A room exists only while it
// has members: it is created on first join and dropped with its last member.
type RoomRegistry struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomName]map[domain.Username]struct{}
	byUser map[domain.Username]domain.RoomName

	// private holds the only users allowed into a reserved room.
	private map[domain.RoomName]map[domain.Username]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[domain.RoomName]map[domain.Username]struct{}),
		byUser:  make(map[domain.Username]domain.RoomName),
		private: make(map[domain.RoomName]map[domain.Username]struct{}),
	}
}

// Reserve restricts room to users until its last member leaves.
func (r *RoomRegistry) Reserve(room domain.RoomName, users ...domain.Username) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[domain.Username]struct{}, len(users))
	for _, u := range users {
		allowed[u] = struct{}{}
	}
	r.private[room] = allowed
}

// Join puts user in room, leaving any previous room first. It returns the
// previous room, if there was one. Reserved rooms refuse everyone else with
// ErrPrivateRoom.
func (r *RoomRegistry) Join(room domain.RoomName, user domain.Username) (domain.RoomName, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if allowed, ok := r.private[room]; ok {
		if _, in := allowed[user]; !in {
			return "", false, fmt.Errorf("%w: %s", domain.ErrPrivateRoom, room)
		}
	}
	prev, had := r.byUser[user]
	if had && prev == room {
		return prev, false, nil
	}
	if had {
		r.removeLocked(prev, user)
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[domain.Username]struct{})
		r.rooms[room] = members
		log.Info().Str("module", "app.rooms").Str("room", string(room)).Msg("room created")
	}
	members[user] = struct{}{}
	r.byUser[user] = room
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(user)).Msg("member added")
	return prev, had, nil
}

// Leave removes user from its room. It is a no-op for users in no room.
func (r *RoomRegistry) Leave(user domain.Username) (domain.RoomName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.byUser[user]
	if !ok {
		return "", false
	}
	r.removeLocked(room, user)
	return room, true
}

func (r *RoomRegistry) removeLocked(room domain.RoomName, user domain.Username) {
	delete(r.byUser, user)
	members := r.rooms[room]
	delete(members, user)
	log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(user)).Msg("member removed")
	if len(members) == 0 {
		delete(r.rooms, room)
		delete(r.private, room)
		log.Info().Str("module", "app.rooms").Str("room", string(room)).Msg("room deleted")
	}
}

func (r *RoomRegistry) RoomOf(user domain.Username) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byUser[user]
	return room, ok
}

// Members returns a sorted snapshot of the room's members.
func (r *RoomRegistry) Members(room domain.RoomName) []domain.Username {
	r.mu.RLock()
	out := make([]domain.Username, 0, len(r.rooms[room]))
	for u := range r.rooms[room] {
		out = append(out, u)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Peers returns the user's room and its other members, copied under the
// lock so callers can send without holding it.
func (r *RoomRegistry) Peers(user domain.Username) (domain.RoomName, []domain.Username) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byUser[user]
	if !ok {
		return "", nil
	}
	out := make([]domain.Username, 0, len(r.rooms[room]))
	for u := range r.rooms[room] {
		if u != user {
			out = append(out, u)
		}
	}
	return room, out
}

func (r *RoomRegistry) Exists(room domain.RoomName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room]
	return ok
}

func (r *RoomRegistry) Rooms() []RoomInfo {
	r.mu.RLock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for name, members := range r.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: len(members)})
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b RoomInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
