// Package client is the user side of the relay: it sends commands and
// audio, and turns inbound frames into printed lines, saved files and
// decoded audio.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/app/audio"
	"github.com/dkeye/Relay/internal/app/transfer"
	"github.com/dkeye/Relay/internal/crypto"
	"github.com/dkeye/Relay/internal/wire"
	"github.com/rs/zerolog/log"
)

const dialTimeout = 10 * time.Second

// Dial connects to the relay. A nil tlsConfig dials plain TCP.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	if tlsConfig == nil {
		return d.DialContext(ctx, "tcp", addr)
	}
	td := &tls.Dialer{NetDialer: d, Config: tlsConfig}
	return td.DialContext(ctx, "tcp", addr)
}

// Client drives one relay connection.
type Client struct {
	conn    io.ReadWriteCloser
	link    crypto.Link
	display io.Writer
	files   *transfer.Receiver
	audio   *audio.Receiver

	wmu sync.Mutex
}

// New wraps conn. Text is printed to display, files are saved under
// downloads and decoded audio is written to sink (discarded when nil).
func New(conn io.ReadWriteCloser, link crypto.Link, display io.Writer, downloads string, sink io.Writer) *Client {
	c := &Client{
		conn:    conn,
		link:    link,
		display: display,
		files:   &transfer.Receiver{Dir: downloads, Link: link},
	}
	c.audio = audio.NewReceiver(link, sink, c.handleControl)
	return c
}

// Run consumes the inbound stream until the server closes it.
func (c *Client) Run() error {
	_, err := io.Copy(c.audio, c.conn)
	return err
}

// Say sends one line: a login answer, a slash command or chat.
func (c *Client) Say(text string) error {
	payload, err := c.link.SealText(text)
	if err != nil {
		return err
	}
	return c.write(wire.Frame{Type: wire.TypeCommand, Payload: payload})
}

// SendAudio sends one block of captured PCM to the current room.
func (c *Client) SendAudio(pcm []byte) error {
	frame, err := audio.Encode(c.link, pcm)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.conn.Write(frame)
	return err
}

// AudioStats reports frames played and dropped so far.
func (c *Client) AudioStats() (played, dropped int64) {
	return c.audio.Played(), c.audio.Dropped()
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) write(f wire.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wire.WriteFrame(c.conn, f)
}

func (c *Client) handleControl(f wire.Frame) error {
	switch f.Type {
	case wire.TypeFileStart, wire.TypeFileChunk, wire.TypeFileEnd:
		saved, err := c.files.Handle(f)
		if err != nil {
			fmt.Fprintf(c.display, "[FILE] %v\n", err)
			return nil
		}
		if saved != "" {
			fmt.Fprintf(c.display, "[FILE] saved to %s\n", saved)
		}
		return nil
	}
	if !f.Type.Text() {
		log.Warn().Str("module", "client").Str("type", f.Type.String()).Msg("unexpected frame")
		return nil
	}

	text, err := c.link.OpenText(f.Payload)
	if err != nil {
		fmt.Fprintf(c.display, "[CryptoError] %v\n", err)
		return nil
	}
	if f.Type == wire.TypePrompt {
		_, err = io.WriteString(c.display, text)
	} else {
		_, err = fmt.Fprintln(c.display, text)
	}
	return err
}
