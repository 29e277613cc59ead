package core

import (
	"context"
	"errors"
)

// Frame is an encoded wire frame (header + payload), ready to be written.
type Frame []byte

type SessionID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Outbound is the bounded send side of one connection.
// Owned by the adapter; the adapter must Close() it.
type Outbound interface {
	// TrySend queues f without blocking and fails with ErrBackpressure
	// when the queue is full.
	TrySend(f Frame) error
	// Send queues f, waiting for room until ctx is done.
	Send(ctx context.Context, f Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo    int
	Delivered []*Session
	Dropped   []*Session
}
