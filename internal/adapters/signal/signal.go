// Package signal runs the per-connection protocol: the login handshake,
// the slash command table, chat, file and audio frames.
package signal

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/adapters/accounts"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/app/transfer"
	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSendQueue    = 64
	DefaultWriteTimeout = 5 * time.Second

	readBufferSize = 32 << 10
)

// Stream is a connected, ordered byte stream. net.Conn and tls.Conn
// satisfy it; the ws package adapts WebSocket connections to it.
type Stream interface {
	io.ReadWriteCloser
	SetWriteDeadline(t time.Time) error
}

// Controller serves connections against one shared orchestrator.
type Controller struct {
	Orch     *orch.Orchestrator
	Accounts accounts.Directory
	Files    *transfer.Sender
	Limiter  *RoomRateLimiter

	// RequirePassword false means a known username is enough to log in.
	RequirePassword bool
	SendQueue       int
	WriteTimeout    time.Duration
	MaxFrame        int
}

func NewController(o *orch.Orchestrator, accts accounts.Directory, files *transfer.Sender) *Controller {
	return &Controller{
		Orch:            o,
		Accounts:        accts,
		Files:           files,
		RequirePassword: true,
		SendQueue:       DefaultSendQueue,
		WriteTimeout:    DefaultWriteTimeout,
	}
}

// Outbox is the bounded send queue of one connection, drained by Run.
type Outbox struct {
	stream       Stream
	send         chan core.Frame
	writeTimeout time.Duration

	// Senders hold mu.RLock while enqueueing, so every accepted frame is in
	// send before done closes and Run's final flush sees it. stopping wakes
	// blocked senders so Close can take the write lock.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	stopping chan struct{}
	done     chan struct{}
	exited   chan struct{}
}

var _ core.Outbound = (*Outbox)(nil)

func NewOutbox(stream Stream, size int, writeTimeout time.Duration) *Outbox {
	if size <= 0 {
		size = DefaultSendQueue
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Outbox{
		stream:       stream,
		send:         make(chan core.Frame, size),
		writeTimeout: writeTimeout,
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
}

func (o *Outbox) TrySend(f core.Frame) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return core.ErrClosed
	}
	select {
	case o.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (o *Outbox) Send(ctx context.Context, f core.Frame) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return core.ErrClosed
	}
	select {
	case o.send <- f:
		return nil
	case <-o.stopping:
		return core.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting frames. Run flushes what is already queued.
func (o *Outbox) Close() {
	o.stopOnce.Do(func() { close(o.stopping) })
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
}

// Wait blocks until Run has returned.
func (o *Outbox) Wait() { <-o.exited }

// Serve runs the protocol on stream until the peer leaves, the stream
// fails or ctx is cancelled. It closes stream before returning.
func (ctl *Controller) Serve(ctx context.Context, stream Stream, remote string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := NewOutbox(stream, ctl.SendQueue, ctl.WriteTimeout)
	w := &worker{
		ctl:    ctl,
		stream: stream,
		out:    out,
		remote: remote,
		cancel: cancel,
		log:    log.With().Str("module", "signal").Str("remote", remote).Logger(),
	}
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	go out.Run()
	defer func() {
		w.cleanup()
		out.Close()
		out.Wait()
		_ = stream.Close()
	}()

	w.log.Info().Msg("new connection")
	w.readPump(ctx)
}
