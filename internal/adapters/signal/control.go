package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
)

const helpText = `Commands:
/list                        online users
/msg <user> <message>        private message
/sendfile <user> <filename>  send a file
/call <user>                 start a private call
/join <room>                 join or create a room
/leave                       leave the current room
/rooms                       active rooms
/whoami                      who and where you are
/logout, /exit               disconnect
Anything else is sent to everyone.`

func (w *worker) handleCommand(ctx context.Context, text string) {
	if !strings.HasPrefix(text, "/") {
		w.handleChat(text)
		return
	}
	name, args, _ := strings.Cut(strings.TrimRight(text, "\r\n"), " ")

	var err error
	switch strings.ToLower(name) {
	case "/list":
		w.handleList()
	case "/msg":
		err = w.handleMsg(args)
	case "/sendfile":
		err = w.handleSendFile(ctx, args)
	case "/call":
		err = w.handleCall(args)
	case "/join":
		err = w.handleJoin(args)
	case "/leave":
		w.handleLeave()
	case "/rooms":
		w.handleRooms()
	case "/whoami":
		w.handleWhoAmI()
	case "/help":
		w.notice(helpText)
	case "/logout", "/exit":
		w.handleLogout()
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownCommand, name)
	}
	if err != nil {
		w.log.Debug().Err(err).Str("command", name).Msg("command failed")
		w.replyError(err)
	}
}

func (w *worker) handleList() {
	names := w.ctl.Orch.Directory.List()
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = string(n)
	}
	w.notice("Online Users:\n" + strings.Join(lines, "\n"))
}
