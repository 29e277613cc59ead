package signal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run is the write pump. It returns after Close once the queue is flushed,
// or on the first write error, closing the stream so the reader unblocks.
func (o *Outbox) Run() {
	defer close(o.exited)
	for {
		select {
		case f := <-o.send:
			if err := o.write(f); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				o.Close()
				_ = o.stream.Close()
				return
			}
		case <-o.done:
			o.flush()
			return
		}
	}
}

func (o *Outbox) flush() {
	for {
		select {
		case f := <-o.send:
			if err := o.write(f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (o *Outbox) write(f core.Frame) error {
	if err := o.stream.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	_, err := o.stream.Write(f)
	return err
}

// worker is the reader side of one connection. Only the goroutine running
// readPump touches its fields.
type worker struct {
	ctl    *Controller
	stream Stream
	out    *Outbox
	remote string
	cancel context.CancelFunc
	log    zerolog.Logger

	state   State
	pending domain.Username
	sess    *core.Session
}

func (w *worker) readPump(ctx context.Context) {
	dec := wire.NewDecoder(w.ctl.MaxFrame)
	buf := make([]byte, readBufferSize)

	w.prompt(promptUsername)
	for w.state != StateClosed {
		n, err := w.stream.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			w.drain(ctx, dec)
		}
		if err != nil {
			if w.state != StateClosed && !isClosedErr(err) {
				w.log.Warn().Err(err).Msg("readPump read error")
			}
			return
		}
	}
}

func (w *worker) drain(ctx context.Context, dec *wire.Decoder) {
	for w.state != StateClosed {
		f, ok, err := dec.Next()
		if err != nil {
			w.violation(err)
			return
		}
		if !ok {
			return
		}
		w.handleFrame(ctx, f)
	}
}

func (w *worker) handleFrame(ctx context.Context, f wire.Frame) {
	switch f.Type {
	case wire.TypeCommand:
		text, err := w.ctl.Orch.Link.OpenText(f.Payload)
		if err != nil {
			w.log.Warn().Err(err).Msg("undecryptable command")
			w.replyError(err)
			return
		}
		switch w.state {
		case StateUnauthenticated:
			w.handleUsername(ctx, text)
		case StateAwaitingPassword:
			w.handlePassword(ctx, text)
		case StateAuthenticated:
			w.handleCommand(ctx, text)
		}
	case wire.TypeAudio:
		if w.state != StateAuthenticated {
			w.violation(fmt.Errorf("%w: audio before login", wire.ErrInvalidType))
			return
		}
		frame, err := f.Encode()
		if err != nil {
			w.violation(err)
			return
		}
		w.ctl.Orch.OnAudio(w.sess, frame)
	default:
		w.violation(fmt.Errorf("%w: %s not accepted from clients", wire.ErrInvalidType, f.Type))
	}
}

// violation reports a protocol error and closes the connection.
func (w *worker) violation(err error) {
	w.log.Warn().Err(err).Str("state", w.state.String()).Msg("protocol violation")
	w.replyError(err)
	w.state = StateClosed
}

func (w *worker) send(t wire.Type, text string) {
	frame, err := w.ctl.Orch.TextFrame(t, text)
	if err != nil {
		w.log.Error().Err(err).Msg("seal reply")
		return
	}
	if err := w.out.TrySend(frame); err != nil {
		w.log.Warn().Err(err).Str("type", t.String()).Msg("reply dropped")
	}
}

func (w *worker) notice(text string) { w.send(wire.TypeNotice, text) }
func (w *worker) prompt(text string) { w.send(wire.TypePrompt, text) }

// replyError sends "[Kind] message" on the error channel.
func (w *worker) replyError(err error) {
	w.send(wire.TypeError, fmt.Sprintf("[%s] %s", domain.Kind(err), err.Error()))
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
