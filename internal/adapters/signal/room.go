package signal

import (
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
)

func (w *worker) allowRoomChange() error {
	if w.ctl.Limiter == nil || w.ctl.Limiter.Allow(w.sess.Name()) {
		return nil
	}
	return fmt.Errorf("%w: slow down before changing rooms again", domain.ErrRateLimited)
}

func (w *worker) handleJoin(args string) error {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return fmt.Errorf("%w: /join <room>", domain.ErrUsage)
	}
	room, err := domain.ParseRoomName(raw)
	if err != nil {
		return fmt.Errorf("%w: /join <room>: %v", domain.ErrUsage, err)
	}
	if domain.IsPrivateRoom(room) {
		return fmt.Errorf("%w: %s is reserved for calls, use /call <username>", domain.ErrPrivateRoom, room)
	}
	if err := w.allowRoomChange(); err != nil {
		return err
	}
	if err := w.ctl.Orch.Join(w.sess, room); err != nil {
		return err
	}
	w.notice(fmt.Sprintf("[JOINED ROOM] %s", room))
	return nil
}

func (w *worker) handleCall(args string) error {
	raw := strings.TrimSpace(args)
	if raw == "" {
		return fmt.Errorf("%w: /call <username>", domain.ErrUsage)
	}
	target, err := domain.ParseUsername(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrUserOffline, raw)
	}
	if err := w.allowRoomChange(); err != nil {
		return err
	}
	room, err := w.ctl.Orch.Call(w.sess, target)
	if err != nil {
		return err
	}
	w.log.Info().Str("callee", string(target)).Str("room", string(room)).Msg("call started")
	w.notice(fmt.Sprintf("[CALL STARTED] with %s", target))
	return nil
}

// handleLeave takes the user out of the current room; the connection stays.
func (w *worker) handleLeave() {
	room, ok := w.ctl.Orch.Leave(w.sess)
	if !ok {
		return
	}
	w.notice(fmt.Sprintf("[LEFT CALL] %s", room))
}

func (w *worker) handleRooms() {
	rooms := w.ctl.Orch.Rooms.Rooms()
	if len(rooms) == 0 {
		w.notice("No active rooms.")
		return
	}
	var b strings.Builder
	b.WriteString("Rooms:")
	for _, r := range rooms {
		fmt.Fprintf(&b, "\n%s (%d)", r.Name, r.MemberCount)
	}
	w.notice(b.String())
}
