package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	HeaderSize = 5

	// MaxFramePayload limits a single frame payload.
	MaxFramePayload = 1 << 20 // 1 MiB
)

type protocolError string

func (e protocolError) Error() string { return string(e) }
func (e protocolError) Kind() string  { return "ProtocolError" }

const (
	ErrFrameTooLarge = protocolError("wire: frame payload too large")
	ErrInvalidType   = protocolError("wire: invalid frame type")
)

type Frame struct {
	Type    Type
	Payload []byte
}

// Encode returns the frame with its header.
func (f Frame) Encode() ([]byte, error) {
	if !f.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, f.Type)
	}
	if len(f.Payload) > MaxFramePayload {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, len(f.Payload))
	}
	out := make([]byte, HeaderSize+len(f.Payload))
	out[0] = byte(f.Type)
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(len(f.Payload)))
	copy(out[HeaderSize:], f.Payload)
	return out, nil
}

// WriteFrame encodes f and writes it in a single Write call.
func WriteFrame(w io.Writer, f Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Text is a shorthand for a frame carrying a string payload.
func Text(t Type, s string) Frame {
	return Frame{Type: t, Payload: []byte(s)}
}
