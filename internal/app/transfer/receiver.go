package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog/log"
)

const (
	SavePrefix      = "received_"
	DefaultMaxBytes = 64 << 20
)

var (
	ErrMissingFilename = errors.New("transfer: filename missing, file not saved")
	ErrTooLarge        = errors.New("transfer: file exceeds receive limit")
	ErrNoTransfer      = errors.New("transfer: chunk outside of a transfer")
)

// Receiver buffers one incoming file until END and then writes it under
// Dir with SavePrefix. It is not safe for concurrent use.
type Receiver struct {
	Dir      string
	MaxBytes int
	Link     crypto.Link

	active bool
	name   string
	chunks [][]byte
	size   int
}

// Active reports whether a transfer is in progress.
func (r *Receiver) Active() bool { return r.active }

// Handle consumes a file frame. On END it returns the saved path. Errors
// abort the current transfer and nothing is written.
func (r *Receiver) Handle(f wire.Frame) (string, error) {
	switch f.Type {
	case wire.TypeFileStart:
		r.reset()
		r.active = true
		r.name = strings.TrimSpace(string(f.Payload))
		log.Info().Str("module", "transfer.receiver").Str("file", r.name).Msg("receiving file")
		return "", nil
	case wire.TypeFileChunk:
		if !r.active {
			return "", ErrNoTransfer
		}
		limit := r.MaxBytes
		if limit <= 0 {
			limit = DefaultMaxBytes
		}
		r.size += len(f.Payload)
		if r.size > limit {
			r.reset()
			return "", fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
		}
		r.chunks = append(r.chunks, f.Payload)
		return "", nil
	case wire.TypeFileEnd:
		if !r.active {
			return "", ErrNoTransfer
		}
		defer r.reset()
		return r.finish()
	default:
		return "", fmt.Errorf("%w: %s", wire.ErrInvalidType, f.Type)
	}
}

func (r *Receiver) finish() (string, error) {
	name := sanitize(r.name)
	if name == "" {
		return "", ErrMissingFilename
	}
	data := make([]byte, 0, r.size)
	for i, c := range r.chunks {
		plain, err := r.Link.OpenBytes(c)
		if err != nil {
			return "", fmt.Errorf("transfer: chunk %d of %s: %w", i, name, err)
		}
		data = append(data, plain...)
	}
	path, err := securejoin.SecureJoin(r.Dir, SavePrefix+name)
	if err != nil {
		return "", fmt.Errorf("transfer: resolve %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("transfer: write %s: %w", path, err)
	}
	log.Info().Str("module", "transfer.receiver").Str("path", path).Int("bytes", len(data)).Msg("file saved")
	return path, nil
}

func (r *Receiver) reset() {
	r.active = false
	r.name = ""
	r.chunks = nil
	r.size = 0
}

// sanitize keeps only the final path element of a sender supplied name.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." {
		return ""
	}
	return base
}
