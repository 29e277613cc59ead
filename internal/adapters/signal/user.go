package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

const (
	promptUsername = "Enter username: "
	promptPassword = "Enter password: "
)

func (w *worker) handleUsername(ctx context.Context, text string) {
	name, err := domain.ParseUsername(text)
	if err != nil {
		w.authFailed(err)
		return
	}
	if w.ctl.RequirePassword {
		w.pending = name
		w.state = StateAwaitingPassword
		w.prompt(promptPassword)
		return
	}

	ok, err := w.ctl.Accounts.Exists(ctx, name)
	if err != nil {
		w.authFailed(err)
		return
	}
	if !ok {
		w.authFailed(fmt.Errorf("unknown user %q", name))
		return
	}
	w.login(name)
}

func (w *worker) handlePassword(ctx context.Context, text string) {
	name := w.pending
	w.pending = ""
	ok, err := w.ctl.Accounts.Verify(ctx, name, strings.TrimRight(text, "\r\n"))
	if err != nil {
		w.authFailed(err)
		return
	}
	if !ok {
		w.authFailed(fmt.Errorf("bad password for %q", name))
		return
	}
	w.login(name)
}

// authFailed closes the connection without telling the peer which part of
// the credentials was wrong.
func (w *worker) authFailed(cause error) {
	w.log.Warn().Err(cause).Msg("authentication failed")
	w.replyError(fmt.Errorf("%w. Disconnecting...", domain.ErrAuthentication))
	w.state = StateClosed
}

func (w *worker) login(name domain.Username) {
	sess := core.NewSession(&domain.User{Name: name}, w.remote, w.out, w.cancel)
	if err := w.ctl.Orch.Login(sess); err != nil {
		w.log.Warn().Err(err).Str("user", string(name)).Msg("login rejected")
		w.replyError(err)
		w.state = StateClosed
		return
	}
	w.sess = sess
	w.state = StateAuthenticated
	w.log = w.log.With().Str("user", string(name)).Str("sid", string(sess.ID)).Logger()
	w.log.Info().Msg("login")
	w.notice(fmt.Sprintf("Login successful!\nWelcome, %s!\nType /help for commands.", name))
}

func (w *worker) handleWhoAmI() {
	text := fmt.Sprintf("You are %s", w.sess.Name())
	if room, ok := w.ctl.Orch.Rooms.RoomOf(w.sess.Name()); ok {
		text += fmt.Sprintf(", in room %s", room)
	}
	w.notice(text)
}

func (w *worker) handleLogout() {
	w.notice("Goodbye.")
	w.state = StateClosed
}

// cleanup runs once when the reader exits, whatever the reason.
func (w *worker) cleanup() {
	if w.sess == nil {
		w.log.Info().Msg("connection closed")
		return
	}
	w.ctl.Orch.Logout(w.sess)
	if w.ctl.Limiter != nil {
		w.ctl.Limiter.Forget(w.sess.Name())
	}
	w.log.Info().Msg("logout")
}
