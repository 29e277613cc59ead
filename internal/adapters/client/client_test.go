package client_test

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/adapters/client"
	"github.com/dkeye/Relay/internal/app/audio"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLink(t *testing.T) crypto.Link {
	t.Helper()
	codec, err := crypto.NewCodecFromPassphrase("client-test")
	require.NoError(t, err)
	return crypto.NewLink(codec)
}

func TestClient_InboundStream(t *testing.T) {
	link := testLink(t)
	server, conn := net.Pipe()
	display := &syncBuffer{}
	sink := &syncBuffer{}
	downloads := t.TempDir()
	c := client.New(conn, link, display, downloads, sink)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	var stream bytes.Buffer
	text := func(typ wire.Type, s string) {
		payload, err := link.SealText(s)
		require.NoError(t, err)
		require.NoError(t, wire.WriteFrame(&stream, wire.Frame{Type: typ, Payload: payload}))
	}
	text(wire.TypePrompt, "Enter username: ")
	text(wire.TypeNotice, "Welcome, alice!")
	text(wire.TypeChat, "[bob] hi")

	require.NoError(t, wire.WriteFrame(&stream, wire.Text(wire.TypeFileStart, "photo.png")))
	for _, part := range []string{"abc", "def"} {
		blob, err := link.SealBytes([]byte(part))
		require.NoError(t, err)
		require.NoError(t, wire.WriteFrame(&stream, wire.Frame{Type: wire.TypeFileChunk, Payload: blob}))
	}
	require.NoError(t, wire.WriteFrame(&stream, wire.Frame{Type: wire.TypeFileEnd}))

	frame, err := audio.Encode(link, []byte("pcm!"))
	require.NoError(t, err)
	stream.Write(frame)

	// Deliver the stream in uneven pieces.
	data := stream.Bytes()
	for len(data) > 0 {
		n := min(7, len(data))
		_, err := server.Write(data[:n])
		require.NoError(t, err)
		data = data[n:]
	}
	require.NoError(t, server.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}

	out := display.String()
	assert.Contains(t, out, "Enter username: Welcome, alice!\n")
	assert.Contains(t, out, "[bob] hi\n")
	saved := filepath.Join(downloads, "received_photo.png")
	assert.Contains(t, out, "[FILE] saved to "+saved)
	got, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))

	assert.Equal(t, "pcm!", sink.String())
	played, dropped := c.AudioStats()
	assert.Equal(t, int64(1), played)
	assert.Equal(t, int64(0), dropped)
}

func TestClient_Outbound(t *testing.T) {
	link := testLink(t)
	server, conn := net.Pipe()
	defer server.Close()
	c := client.New(conn, link, &syncBuffer{}, t.TempDir(), nil)
	defer c.Close()

	go func() {
		_ = c.Say("/list")
		_ = c.SendAudio([]byte{1, 2, 3})
	}()

	r := wire.NewReader(server, 0)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, wire.TypeCommand, f.Type)
	text, err := link.OpenText(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, "/list", text)

	f, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, wire.TypeAudio, f.Type)
	pcm, err := link.OpenBytes(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, pcm)
}
