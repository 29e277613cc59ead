package orch

import (
	"fmt"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/audio"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the shared registries and performs every operation that
// touches more than one session. Sends are always non-blocking TrySend calls
// made after registry locks are released.
type Orchestrator struct {
	Directory *app.Directory
	Rooms     *app.RoomRegistry
	Relay     *audio.Relay
	Policy    app.Policy
	Link      crypto.Link
}

func New(link crypto.Link, policy app.Policy) *Orchestrator {
	dir := app.NewDirectory()
	rooms := app.NewRoomRegistry()
	return &Orchestrator{
		Directory: dir,
		Rooms:     rooms,
		Relay:     audio.NewRelay(rooms, dir),
		Policy:    policy,
		Link:      link,
	}
}

// Login registers an authenticated session and announces it.
func (o *Orchestrator) Login(s *core.Session) error {
	if err := o.Directory.Register(s); err != nil {
		return err
	}
	o.Broadcast(s, wire.TypeNotice, fmt.Sprintf("%s joined the chat!", s.Name()))
	return nil
}

// Logout releases every registration of s. Safe to call more than once.
func (o *Orchestrator) Logout(s *core.Session) {
	if !o.Directory.RemoveSession(s) {
		return
	}
	if room, ok := o.Rooms.Leave(s.Name()); ok {
		o.notifyRoom(room, s.Name(), fmt.Sprintf("[LEFT CALL] %s left %s", s.Name(), room))
	}
	if p, ok := o.Policy.(interface{ Forget(core.SessionID) }); ok {
		p.Forget(s.ID)
	}
	o.Broadcast(s, wire.TypeNotice, fmt.Sprintf("%s left the chat.", s.Name()))
}

// Broadcast sends text to every other authenticated session.
func (o *Orchestrator) Broadcast(from *core.Session, t wire.Type, text string) int {
	frame, err := o.TextFrame(t, text)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("broadcast seal")
		return 0
	}
	sent := 0
	for _, s := range o.Directory.Others(from.Name()) {
		if err := s.Out.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("to", string(s.Name())).Msg("broadcast dropped")
			continue
		}
		sent++
	}
	return sent
}

// Private delivers text to one online user.
func (o *Orchestrator) Private(from *core.Session, to domain.Username, text string) error {
	target, err := o.Directory.Lookup(to)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrUserOffline, to)
	}
	frame, err := o.TextFrame(wire.TypePrivate, fmt.Sprintf("[Private from %s] %s", from.Name(), text))
	if err != nil {
		return err
	}
	if err := target.Out.TrySend(frame); err != nil {
		return fmt.Errorf("%w: failed to send message to %s: %v", domain.ErrTransfer, to, err)
	}
	return nil
}

// OnAudio relays an encoded audio frame and applies the backpressure policy
// to peers that could not take it.
func (o *Orchestrator) OnAudio(from *core.Session, frame core.Frame) core.PublishResult {
	res := o.Relay.Forward(from, frame)
	if o.Policy == nil {
		return res
	}
	for _, s := range res.Delivered {
		o.Policy.OnDelivered(s)
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("user", string(slow.Name())).Msg("kicking slow audio peer")
			slow.Kick()
		case app.DropFrame, app.NoAction:
		}
	}
	return res
}

// TextFrame seals text for the link and encodes it as a frame of type t.
func (o *Orchestrator) TextFrame(t wire.Type, text string) (core.Frame, error) {
	payload, err := o.Link.SealText(text)
	if err != nil {
		return nil, err
	}
	return wire.Frame{Type: t, Payload: payload}.Encode()
}

// Notify queues a text frame on one session, dropping it on backpressure.
func (o *Orchestrator) Notify(s *core.Session, t wire.Type, text string) error {
	frame, err := o.TextFrame(t, text)
	if err != nil {
		return err
	}
	return s.Out.TrySend(frame)
}

func (o *Orchestrator) notifyRoom(room domain.RoomName, except domain.Username, text string) {
	members := o.Rooms.Members(room)
	for _, s := range o.Directory.Resolve(members) {
		if s.Name() == except {
			continue
		}
		if err := o.Notify(s, wire.TypeNotice, text); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("to", string(s.Name())).Msg("room notice dropped")
		}
	}
}
