package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Decoder reassembles frames from an unbounded byte stream. Bytes are fed
// as they arrive from the transport; any trailing partial frame stays in
// the buffer until the next Feed.
type Decoder struct {
	buf        []byte
	maxPayload int
}

func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 || maxPayload > MaxFramePayload {
		maxPayload = MaxFramePayload
	}
	return &Decoder{maxPayload: maxPayload}
}

// Feed appends p to the reassembly buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Next extracts one complete frame. ok is false when the buffer holds only
// a partial frame. An error means the stream can no longer be trusted.
func (d *Decoder) Next() (f Frame, ok bool, err error) {
	if len(d.buf) < HeaderSize {
		return Frame{}, false, nil
	}
	t := Type(d.buf[0])
	if !t.Valid() {
		return Frame{}, false, fmt.Errorf("%w: %d", ErrInvalidType, t)
	}
	n := binary.BigEndian.Uint32(d.buf[1:HeaderSize])
	if uint64(n) > uint64(d.maxPayload) {
		return Frame{}, false, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	total := HeaderSize + int(n)
	if len(d.buf) < total {
		return Frame{}, false, nil
	}
	payload := make([]byte, n)
	copy(payload, d.buf[HeaderSize:total])

	rest := copy(d.buf, d.buf[total:])
	d.buf = d.buf[:rest]
	return Frame{Type: t, Payload: payload}, true, nil
}

// Drain returns every complete frame currently buffered.
func (d *Decoder) Drain() ([]Frame, error) {
	var out []Frame
	for {
		f, ok, err := d.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, f)
	}
}

// Reader pulls frames from r through a Decoder.
type Reader struct {
	r   io.Reader
	dec *Decoder
	buf []byte
}

func NewReader(r io.Reader, maxPayload int) *Reader {
	return &Reader{r: r, dec: NewDecoder(maxPayload), buf: make([]byte, 4096)}
}

// ReadFrame blocks until a complete frame is available.
func (r *Reader) ReadFrame() (Frame, error) {
	for {
		f, ok, err := r.dec.Next()
		if err != nil {
			return Frame{}, err
		}
		if ok {
			return f, nil
		}
		n, err := r.r.Read(r.buf)
		if n > 0 {
			r.dec.Feed(r.buf[:n])
			continue
		}
		if err != nil {
			if err == io.EOF && r.dec.Buffered() > 0 {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}
	}
}
