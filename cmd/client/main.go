package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/adapters/client"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/crypto"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	flags := config.NewFlagSet("relay-client")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}
	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	link := crypto.NewLink(nil)
	if cfg.Crypto.Enabled {
		codec, err := crypto.NewCodecFromPassphrase(cfg.Crypto.Passphrase)
		if err != nil {
			log.Fatal().Err(err).Msg("crypto setup (set RELAY_CRYPTO_PASSPHRASE)")
		}
		link = crypto.NewLink(codec)
	}

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		tlsConfig = &tls.Config{InsecureSkipVerify: cfg.Client.InsecureSkipVerify}
	}
	conn, err := client.Dial(ctx, cfg.Client.Server, tlsConfig)
	if err != nil {
		log.Fatal().Err(err).Str("server", cfg.Client.Server).Msg("dial")
	}
	c := client.New(conn, link, os.Stdout, cfg.Client.DownloadDir, nil)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := c.Say(scanner.Text()); err != nil {
				log.Error().Err(err).Msg("send")
				cancel()
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("connection lost")
		}
	}
}
