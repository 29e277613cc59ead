package audio

import (
	"io"
	"sync/atomic"

	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Receiver consumes the inbound byte stream of a client connection. It keeps
// a persistent reassembly buffer, so a read may carry any number of frames or
// a fraction of one. Audio frames are decrypted and written to the sink;
// every other frame goes to the control handler untouched.
type Receiver struct {
	dec     *wire.Decoder
	link    crypto.Link
	sink    io.Writer
	control func(wire.Frame) error
	logger  zerolog.Logger

	played  atomic.Int64
	dropped atomic.Int64
}

func NewReceiver(link crypto.Link, sink io.Writer, control func(wire.Frame) error) *Receiver {
	if sink == nil {
		sink = io.Discard
	}
	return &Receiver{
		dec:     wire.NewDecoder(0),
		link:    link,
		sink:    sink,
		control: control,
		logger:  log.With().Str("module", "audio.receiver").Logger(),
	}
}

// Write feeds raw stream bytes. It fails only when the stream framing is
// broken or the control handler fails; bad audio frames are dropped.
func (r *Receiver) Write(p []byte) (int, error) {
	r.dec.Feed(p)
	for {
		f, ok, err := r.dec.Next()
		if err != nil {
			return len(p), err
		}
		if !ok {
			return len(p), nil
		}
		if err := r.Handle(f); err != nil {
			return len(p), err
		}
	}
}

// Handle processes one complete frame.
func (r *Receiver) Handle(f wire.Frame) error {
	if f.Type != wire.TypeAudio {
		if r.control == nil {
			return nil
		}
		return r.control(f)
	}
	pcm, err := r.link.OpenBytes(f.Payload)
	if err != nil {
		r.dropped.Add(1)
		r.logger.Debug().Err(err).Int("len", len(f.Payload)).Msg("dropping undecryptable audio frame")
		return nil
	}
	if _, err := r.sink.Write(pcm); err != nil {
		r.dropped.Add(1)
		r.logger.Warn().Err(err).Msg("audio sink write failed")
		return nil
	}
	r.played.Add(1)
	return nil
}

// Played is the number of audio frames delivered to the sink.
func (r *Receiver) Played() int64 { return r.played.Load() }

// Dropped is the number of audio frames discarded.
func (r *Receiver) Dropped() int64 { return r.dropped.Load() }

// Encode seals pcm and frames it for sending.
func Encode(link crypto.Link, pcm []byte) ([]byte, error) {
	blob, err := link.SealBytes(pcm)
	if err != nil {
		return nil, err
	}
	return wire.Frame{Type: wire.TypeAudio, Payload: blob}.Encode()
}
