package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/adapters/accounts"
	router "github.com/dkeye/Relay/internal/adapters/http"
	relaysignal "github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/adapters/tcp"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/app/transfer"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/crypto"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	flags := config.NewFlagSet("relay-server")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())
	cfg.Watch(func(next *config.Config) {
		zerolog.SetGlobalLevel(next.LogLevel())
		log.Info().Str("level", next.LogLevel().String()).Msg("log level reloaded")
	})

	link := crypto.NewLink(nil)
	if cfg.Crypto.Enabled {
		codec, err := crypto.NewCodecFromPassphrase(cfg.Crypto.Passphrase)
		if err != nil {
			log.Fatal().Err(err).Msg("crypto setup")
		}
		link = crypto.NewLink(codec)
	} else {
		log.Warn().Msg("payload encryption disabled")
	}

	accts, closeAccounts := openAccounts(cfg)
	defer closeAccounts()

	o := orch.New(link, app.NewDropPolicy(cfg.Audio.MaxDrops))
	files := &transfer.Sender{
		Root:           cfg.Files.Root,
		ChunkSize:      cfg.Files.ChunkSize,
		EnqueueTimeout: cfg.Files.EnqueueTimeout,
		Link:           link,
	}
	ctl := relaysignal.NewController(o, accts, files)
	ctl.RequirePassword = cfg.Auth.RequirePassword
	ctl.SendQueue = cfg.Transport.SendQueue
	ctl.WriteTimeout = cfg.Transport.WriteTimeout
	ctl.MaxFrame = cfg.Transport.MaxFrame
	ctl.Limiter = relaysignal.NewRoomRateLimiter(cfg.Rooms.JoinLimit, cfg.Rooms.JoinInterval)

	tlsConfig := serverTLS(cfg)
	relay := tcp.New(cfg.Listen, tlsConfig, func(ctx context.Context, conn net.Conn) {
		ctl.Serve(ctx, conn, conn.RemoteAddr().String())
	})
	if err := relay.Listen(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Listen).Msg("relay listen")
	}
	go func() {
		if err := relay.Serve(); err != nil {
			log.Error().Err(err).Msg("relay server error")
			cancel()
		}
	}()
	log.Info().Str("addr", relay.Addr()).Msg("Relay server started")

	var status *http.Server
	if cfg.StatusListen != "" {
		status = &http.Server{
			Addr:    cfg.StatusListen,
			Handler: router.SetupRouter(ctx, cfg, o, ctl),
		}
		go func() {
			log.Info().Str("addr", cfg.StatusListen).Msg("status server started")
			if err := status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status server error")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if status != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := status.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}
	relay.Stop()
	log.Info().Msg("Server exited gracefully")
}

func openAccounts(cfg *config.Config) (accounts.Directory, func()) {
	if cfg.Auth.DBPath == "" {
		log.Info().Int("users", len(cfg.Auth.Users)).Msg("using static accounts")
		return accounts.NewStatic(cfg.Auth.Users), func() {}
	}
	store, err := accounts.OpenStore(cfg.Auth.DBPath, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("open account store")
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close account store")
		}
	}
}

func serverTLS(cfg *config.Config) *tls.Config {
	if !cfg.TLS.Enabled {
		log.Warn().Msg("TLS disabled, transport is plain TCP")
		return nil
	}
	if cfg.TLS.SelfSigned {
		log.Warn().Msg("using an ephemeral self-signed certificate")
		tc, err := tcp.SelfSignedTLSConfig("localhost")
		if err != nil {
			log.Fatal().Err(err).Msg("self-signed certificate")
		}
		return tc
	}
	tc, err := tcp.LoadTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("tls config")
	}
	return tc
}
