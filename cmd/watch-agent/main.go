// Watch Agent is a deployable monitor that logs everything happening inside a
// structure: block updates, transactions, and context lifecycle.
//
// Configuration via a YAML file or environment variables:
//
//	REPLCRAFT_CONFIG: path to a YAML config file (token, host)
//	REPLCRAFT_TOKEN:  structure token (used when the file leaves it empty)
//	REPLCRAFT_HOST:   host override for development servers
//
// Usage:
//
//	REPLCRAFT_TOKEN=eyJhb... go run ./cmd/watch-agent
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	replcraft "github.com/replcraft/go-sdk"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var cfg replcraft.Config
	if path := os.Getenv("REPLCRAFT_CONFIG"); path != "" {
		var err error
		cfg, err = replcraft.LoadConfig(path)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
	}

	client, err := replcraft.NewClient(cfg, replcraft.LogErrors(logger),
		replcraft.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("create client")
	}

	client.OnContextOpened(func(ev replcraft.ContextOpenedEvent) {
		logger.Info().Int("context", ev.Context.ID()).Str("cause", ev.Cause).Msg("context opened")
	})
	client.OnContextClosed(func(ev replcraft.ContextClosedEvent) {
		logger.Info().Int("context", ev.ID).Str("cause", ev.Cause).Msg("context closed")
	})
	client.OnBlockUpdate(func(ev replcraft.BlockUpdateEvent) {
		logger.Info().
			Int("context", ev.ContextID).
			Str("cause", ev.Cause).
			Str("block", ev.Block).
			Ints("pos", []int{ev.X, ev.Y, ev.Z}).
			Msg("block update")
	})
	client.OnTransact(func(ev replcraft.TransactEvent) {
		logger.Info().
			Str("player", ev.Player).
			Float64("amount", ev.Amount).
			Str("query", ev.Query).
			Msg("transaction observed (not answered)")
	})

	done := make(chan struct{})
	client.OnDisconnect(func(err error) {
		logger.Error().Err(err).Msg("connection lost")
		close(done)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer client.Close()

	structure := client.RootContext()
	if structure == nil {
		logger.Fatal().Msg("token is not structure-scoped")
	}
	if err := structure.WatchAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("watch all")
	}

	logger.Info().Str("scope", client.Scope()).Msg("watching")

	select {
	case <-ctx.Done():
	case <-done:
	}
}
