// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
)

// Outbound records queued frames. Setting Full makes TrySend report
// backpressure; Send still succeeds unless Full and ctx expires.
type Outbound struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

var _ core.Outbound = (*Outbound)(nil)

func (o *Outbound) TrySend(f core.Frame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return core.ErrClosed
	}
	if o.full {
		return core.ErrBackpressure
	}
	o.frames = append(o.frames, f)
	return nil
}

func (o *Outbound) Send(ctx context.Context, f core.Frame) error {
	o.mu.Lock()
	full := o.full
	o.mu.Unlock()
	if full {
		<-ctx.Done()
		return ctx.Err()
	}
	return o.TrySend(f)
}

func (o *Outbound) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

func (o *Outbound) SetFull(full bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.full = full
}

func (o *Outbound) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Frames decodes everything queued so far.
func (o *Outbound) Frames() []wire.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	dec := wire.NewDecoder(0)
	for _, f := range o.frames {
		dec.Feed(f)
	}
	frames, _ := dec.Drain()
	return frames
}

// Raw returns the encoded frames exactly as queued.
func (o *Outbound) Raw() []core.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.Frame(nil), o.frames...)
}

// Texts returns the payloads of queued frames of type t.
func (o *Outbound) Texts(t wire.Type) []string {
	var out []string
	for _, f := range o.Frames() {
		if f.Type == t {
			out = append(out, string(f.Payload))
		}
	}
	return out
}

// Session builds a session for name backed by a fresh Outbound.
func Session(name string) (*core.Session, *Outbound) {
	out := &Outbound{}
	return core.NewSession(&domain.User{Name: domain.Username(name)}, "pipe:"+name, out, nil), out
}
