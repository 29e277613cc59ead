package signal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
)

func (w *worker) handleChat(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	n := w.ctl.Orch.Broadcast(w.sess, wire.TypeChat, fmt.Sprintf("[%s] %s", w.sess.Name(), text))
	w.log.Debug().Int("sent_to", n).Msg("chat")
}

func (w *worker) handleMsg(args string) error {
	to, text, ok := strings.Cut(strings.TrimLeft(args, " "), " ")
	if !ok || to == "" || strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: /msg <username> <message>", domain.ErrUsage)
	}
	if err := w.ctl.Orch.Private(w.sess, domain.Username(to), text); err != nil {
		return err
	}
	w.send(wire.TypePrivate, fmt.Sprintf("[Private to %s] %s", to, text))
	return nil
}

// handleSendFile checks the recipient and the file before the first frame
// is queued, then streams the file on this goroutine.
func (w *worker) handleSendFile(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return fmt.Errorf("%w: /sendfile <username> <filename>", domain.ErrUsage)
	}
	to, path := domain.Username(fields[0]), fields[1]
	if w.ctl.Files == nil {
		return fmt.Errorf("%w: file transfer disabled", domain.ErrTransfer)
	}

	target, err := w.ctl.Orch.Directory.Lookup(to)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrUserOffline, to)
	}
	full, err := w.ctl.Files.Resolve(path)
	if err != nil {
		return err
	}

	n, err := w.ctl.Files.SendTo(ctx, target, full)
	if err != nil {
		w.log.Warn().Err(err).Str("to", string(to)).Int64("bytes", n).Msg("file transfer aborted")
		return err
	}
	w.log.Info().Str("to", string(to)).Str("file", path).Int64("bytes", n).Msg("file sent")
	w.notice(fmt.Sprintf("File '%s' sent to %s", filepath.Base(full), to))
	return nil
}
