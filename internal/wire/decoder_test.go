package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/dkeye/Relay/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, f wire.Frame) []byte {
	t.Helper()
	b, err := f.Encode()
	require.NoError(t, err)
	return b
}

func TestDecoder_FrameSplitAcrossReads(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 48)
	data := encode(t, wire.Frame{Type: wire.TypeAudio, Payload: payload})

	dec := wire.NewDecoder(0)
	var got []wire.Frame
	for _, part := range [][]byte{data[:2], data[2:5], data[5:]} {
		dec.Feed(part)
		frames, err := dec.Drain()
		require.NoError(t, err)
		got = append(got, frames...)
	}

	require.Len(t, got, 1)
	assert.Equal(t, wire.TypeAudio, got[0].Type)
	assert.Equal(t, payload, got[0].Payload)
	assert.Zero(t, dec.Buffered())
}

func TestDecoder_ManyFramesPerRead(t *testing.T) {
	var stream []byte
	for i := 0; i < 5; i++ {
		stream = append(stream, encode(t, wire.Frame{Type: wire.TypeAudio, Payload: []byte{byte(i)}})...)
	}
	partial := encode(t, wire.Text(wire.TypeCommand, "/leave"))
	stream = append(stream, partial[:3]...)

	dec := wire.NewDecoder(0)
	dec.Feed(stream)
	frames, err := dec.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 5)
	for i, f := range frames {
		assert.Equal(t, []byte{byte(i)}, f.Payload)
	}
	assert.Equal(t, 3, dec.Buffered())

	dec.Feed(partial[3:])
	f, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wire.TypeCommand, f.Type)
	assert.Equal(t, "/leave", string(f.Payload))
}

func TestDecoder_PayloadLookingLikeControl(t *testing.T) {
	// Audio ciphertext that happens to start with a slash or a control
	// header is still an audio frame.
	tricky := append([]byte("/leave"), encode(t, wire.Text(wire.TypeCommand, "/exit"))...)
	dec := wire.NewDecoder(0)
	dec.Feed(encode(t, wire.Frame{Type: wire.TypeAudio, Payload: tricky}))

	frames, err := dec.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, wire.TypeAudio, frames[0].Type)
	assert.Equal(t, tricky, frames[0].Payload)
}

func TestDecoder_Errors(t *testing.T) {
	dec := wire.NewDecoder(0)
	dec.Feed([]byte{0, 0, 0, 0, 0})
	_, _, err := dec.Next()
	require.ErrorIs(t, err, wire.ErrInvalidType)

	small := wire.NewDecoder(8)
	small.Feed(encode(t, wire.Frame{Type: wire.TypeFileChunk, Payload: make([]byte, 9)}))
	_, _, err = small.Next()
	require.ErrorIs(t, err, wire.ErrFrameTooLarge)
}

func TestFrame_EncodeRejects(t *testing.T) {
	_, err := wire.Frame{Type: 0}.Encode()
	require.ErrorIs(t, err, wire.ErrInvalidType)

	_, err = wire.Frame{Type: wire.TypeFileChunk, Payload: make([]byte, wire.MaxFramePayload+1)}.Encode()
	require.ErrorIs(t, err, wire.ErrFrameTooLarge)

	b := encode(t, wire.Frame{Type: wire.TypeFileEnd})
	assert.Equal(t, []byte{byte(wire.TypeFileEnd), 0, 0, 0, 0}, b)
}

// trickleReader returns at most one byte per Read.
type trickleReader struct{ data []byte }

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestReader_ReadFrame(t *testing.T) {
	var stream []byte
	stream = append(stream, encode(t, wire.Text(wire.TypeNotice, "hello"))...)
	stream = append(stream, encode(t, wire.Frame{Type: wire.TypeFileEnd})...)

	r := wire.NewReader(&trickleReader{data: stream}, 0)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(f.Payload))

	f, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, wire.TypeFileEnd, f.Type)
	assert.Empty(t, f.Payload)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)

	r = wire.NewReader(&trickleReader{data: stream[:4]}, 0)
	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
