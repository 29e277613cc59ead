package ws

import (
	"context"
	"net/http"

	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/rs/zerolog/log"
)

// Serve upgrades the request and runs the relay protocol on it until the
// connection ends.
func Serve(ctx context.Context, ctl *signal.Controller, w http.ResponseWriter, r *http.Request) {
	sock, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	conn := NewConn(sock)
	ctl.Serve(ctx, conn, conn.RemoteAddr())
}
