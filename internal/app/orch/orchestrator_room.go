package orch

import (
	"fmt"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog/log"
)

// Join moves s into room, announcing the change to both the old and the
// new room. Rooms reserved by Call refuse everyone but the two parties.
func (o *Orchestrator) Join(s *core.Session, room domain.RoomName) error {
	prev, moved, err := o.Rooms.Join(room, s.Name())
	if err != nil {
		return err
	}
	if moved {
		o.notifyRoom(prev, s.Name(), fmt.Sprintf("[LEFT CALL] %s left %s", s.Name(), prev))
		log.Info().Str("module", "orch").Str("user", string(s.Name())).Str("from_room", string(prev)).Msg("left room")
	}
	o.notifyRoom(room, s.Name(), fmt.Sprintf("[JOINED ROOM] %s joined %s", s.Name(), room))
	log.Info().Str("module", "orch").Str("user", string(s.Name())).Str("room", string(room)).Msg("added to room")
	return nil
}

// Call puts the caller and target in a private two-member room.
func (o *Orchestrator) Call(s *core.Session, target domain.Username) (domain.RoomName, error) {
	if target == s.Name() {
		return "", domain.ErrSelfCall
	}
	callee, err := o.Directory.Lookup(target)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUserOffline, target)
	}
	room := domain.PrivateRoom(s.Name(), target)
	o.Rooms.Reserve(room, s.Name(), target)
	if err := o.Join(s, room); err != nil {
		return "", err
	}
	if err := o.Join(callee, room); err != nil {
		return "", err
	}
	if err := o.Notify(callee, wire.TypeNotice, fmt.Sprintf("[CALL REQUEST] %s started a call.", s.Name())); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("to", string(target)).Msg("call request dropped")
	}
	return room, nil
}

// Leave takes s out of its room. No-op when s is in no room.
func (o *Orchestrator) Leave(s *core.Session) (domain.RoomName, bool) {
	room, ok := o.Rooms.Leave(s.Name())
	if ok {
		o.notifyRoom(room, s.Name(), fmt.Sprintf("[LEFT CALL] %s left %s", s.Name(), room))
	}
	return room, ok
}
