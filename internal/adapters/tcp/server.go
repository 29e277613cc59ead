// Package tcp accepts relay connections over TLS (or plain TCP when no
// TLS config is given) and hands each one to a handler goroutine.
package tcp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const handshakeTimeout = 10 * time.Second

// Handler serves one accepted connection and returns when it is done.
// The connection is closed after Handler returns.
type Handler func(ctx context.Context, conn net.Conn)

// Server handles TCP connections and delegates to Handler.
type Server struct {
	address  string
	tls      *tls.Config
	handler  Handler
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// New creates a server. A nil tlsConfig means plain TCP.
func New(address string, tlsConfig *tls.Config, handler Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		tls:     tlsConfig,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		quit:    make(chan struct{}),
	}
}

// Listen binds the address. Call Serve afterwards.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	if s.tls != nil {
		listener = tls.NewListener(listener, s.tls)
	}
	s.listener = listener
	log.Info().Str("module", "adapters.tcp").Str("addr", listener.Addr().String()).Bool("tls", s.tls != nil).Msg("listening")
	return nil
}

// Serve runs the accept loop until Stop.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("tcp: Serve called before Listen")
	}
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Str("module", "adapters.tcp").Msg("accept failed")
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		go s.handle(conn)
	}
}

// Start is Listen followed by Serve.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if tc, ok := conn.(*tls.Conn); ok {
		ctx, cancel := context.WithTimeout(s.ctx, handshakeTimeout)
		err := tc.HandshakeContext(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.tcp").Str("remote", conn.RemoteAddr().String()).Msg("tls handshake failed")
			return
		}
	}
	s.handler(s.ctx, conn)
}

// Stop closes the listener, cancels every connection and waits for the
// handlers to return.
func (s *Server) Stop() {
	s.once.Do(func() {
		close(s.quit)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.cancel()
	})
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
