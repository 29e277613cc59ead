package core

import (
	"context"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/google/uuid"
)

// Session is one authenticated connection. It is owned by its worker;
// Directory and RoomRegistry only keep references.
type Session struct {
	ID     SessionID
	User   *domain.User
	Remote string
	Out    Outbound

	cancel context.CancelFunc

	// transfer is a one-slot semaphore for inbound file streams.
	transfer chan struct{}
}

func NewSession(user *domain.User, remote string, out Outbound, cancel context.CancelFunc) *Session {
	return &Session{
		ID:     SessionID(uuid.NewString()),
		User:   user,
		Remote: remote,
		Out:    out,
		cancel: cancel,

		transfer: make(chan struct{}, 1),
	}
}

// AcquireTransfer reserves the session's inbound file stream, waiting until
// ctx is done. File frames carry no transfer id, so two streams to one
// recipient must never interleave.
func (s *Session) AcquireTransfer(ctx context.Context) error {
	select {
	case s.transfer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) ReleaseTransfer() {
	<-s.transfer
}

func (s *Session) Name() domain.Username { return s.User.Name }

// Kick asks the owning worker to stop; cleanup runs on the worker.
func (s *Session) Kick() {
	if s.cancel != nil {
		s.cancel()
	}
}
