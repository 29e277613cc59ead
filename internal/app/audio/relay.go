// Package audio relays encrypted audio frames between room members and
// decodes them on the receiving side.
package audio

import (
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

// Relay fans audio frames out to the sender's room. Frames are forwarded
// byte for byte; the relay never decrypts them.
type Relay struct {
	Rooms     *app.RoomRegistry
	Directory *app.Directory
}

func NewRelay(rooms *app.RoomRegistry, dir *app.Directory) *Relay {
	return &Relay{Rooms: rooms, Directory: dir}
}

// Forward queues frame on every other member of the sender's room.
// A sender in no room is silently ignored.
func (r *Relay) Forward(from *core.Session, frame core.Frame) core.PublishResult {
	room, peers := r.Rooms.Peers(from.Name())
	res := core.PublishResult{}
	if room == "" {
		return res
	}
	for _, s := range r.Directory.Resolve(peers) {
		if err := s.Out.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.Delivered = append(res.Delivered, s)
		res.SendTo++
	}
	log.Debug().
		Str("module", "audio.relay").
		Str("from", string(from.Name())).
		Str("room", string(room)).
		Int("sent_to", res.SendTo).
		Int("dropped", len(res.Dropped)).
		Msg("forward result")
	return res
}
