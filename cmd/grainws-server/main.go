// File: cmd/grainws-server/main.go
// Package main
// WebSocket echo server: every text or binary message is sent straight back.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/momentics/grainws/adapters"
	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/observability"
	"github.com/momentics/grainws/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "grainws-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("grainws-server", pflag.ContinueOnError)
	configPath := fs.String("config", "", "config file (yaml, toml or json)")
	dumpConfig := fs.Bool("dump-config", false, "print the effective configuration and exit")
	control.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	loader, err := control.NewLoader(fs)
	if err != nil {
		return err
	}
	cfg, err := loader.Load(*configPath)
	if err != nil {
		return err
	}
	if *dumpConfig {
		return control.WriteConfig(os.Stdout, cfg)
	}

	logger, closer, err := observability.InitLogger("grainws-server", cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	control.RegisterReloadHook(func(next *control.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("config reload rejected")
			return
		}
		observability.ApplyLevel(next.Log.Level)
		logger.Info().Str("level", next.Log.Level).Msg("config reloaded")
	})
	loader.Watch()

	srv, err := server.New(cfg, server.EchoHandler,
		server.WithLogger(logger),
		server.WithMiddleware(adapters.RecoveryMiddleware, adapters.LoggingMiddleware(logger)),
	)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("serve failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	logger.Info().Interface("stats", srv.Stats()).Msg("final stats")
	return err
}
