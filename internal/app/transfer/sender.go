// Package transfer streams a file to one recipient with START/CHUNK/END
// framing and reassembles it on the receiving side.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChunkSize      = 1024
	DefaultEnqueueTimeout = 5 * time.Second
)

// Sender reads files below Root and queues them on a recipient.
type Sender struct {
	Root           string
	ChunkSize      int
	EnqueueTimeout time.Duration
	Link           crypto.Link
}

// Resolve maps a user supplied path to a regular file below Root.
func (s *Sender) Resolve(path string) (string, error) {
	full, err := securejoin.SecureJoin(s.Root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrFileNotFound, path, err)
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrFileNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", domain.ErrFileNotFound, path)
	}
	return full, nil
}

// SendTo streams the resolved file at full to one recipient. Transfers to
// the same recipient run one at a time; a transfer still waiting for its
// turn after EnqueueTimeout fails with ErrTransfer.
func (s *Sender) SendTo(ctx context.Context, to *core.Session, full string) (int64, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.enqueueTimeout())
	err := to.AcquireTransfer(waitCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("%w: recipient busy: %v", domain.ErrTransfer, err)
	}
	defer to.ReleaseTransfer()
	return s.Send(ctx, to.Out, full)
}

// Send streams the resolved file at full to out and returns the number of
// file bytes sent. Callers must not run two Sends to one out at once.
func (s *Sender) Send(ctx context.Context, out core.Outbound, full string) (int64, error) {
	f, err := os.Open(full)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrFileNotFound, err)
	}
	defer f.Close()

	name := filepath.Base(full)
	logger := log.With().Str("module", "transfer.sender").Str("file", name).Logger()

	if err := s.queue(ctx, out, wire.Text(wire.TypeFileStart, name)); err != nil {
		return 0, err
	}

	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	var sent int64
	for {
		n, rerr := io.ReadFull(f, buf)
		if n > 0 {
			payload, err := s.Link.SealBytes(buf[:n])
			if err != nil {
				return sent, fmt.Errorf("%w: seal chunk: %v", domain.ErrTransfer, err)
			}
			// Encode copies the payload, so buf is free for the next read.
			if err := s.queue(ctx, out, wire.Frame{Type: wire.TypeFileChunk, Payload: payload}); err != nil {
				return sent, err
			}
			sent += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return sent, fmt.Errorf("%w: read %s: %v", domain.ErrTransfer, name, rerr)
		}
	}

	if err := s.queue(ctx, out, wire.Frame{Type: wire.TypeFileEnd}); err != nil {
		return sent, err
	}
	logger.Info().Int64("bytes", sent).Msg("file queued")
	return sent, nil
}

func (s *Sender) queue(ctx context.Context, out core.Outbound, f wire.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.enqueueTimeout())
	defer cancel()
	if err := out.Send(ctx, data); err != nil {
		return fmt.Errorf("%w: recipient not accepting data: %v", domain.ErrTransfer, err)
	}
	return nil
}

func (s *Sender) enqueueTimeout() time.Duration {
	if s.EnqueueTimeout <= 0 {
		return DefaultEnqueueTimeout
	}
	return s.EnqueueTimeout
}
