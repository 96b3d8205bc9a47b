package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lghartmann/formhttpd/internal/config"
	"github.com/lghartmann/formhttpd/internal/inventory"
	"github.com/lghartmann/formhttpd/internal/logging"
	"github.com/lghartmann/formhttpd/internal/request"
	"github.com/lghartmann/formhttpd/internal/router"
	"github.com/lghartmann/formhttpd/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Getenv, os.Stderr, nil)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		l := logging.New(os.Stderr, "info", "console")
		l.Fatal().Err(err).Msg("Error running server")
	}
}

// run serves until ctx is done. ready, if set, gets the bound address once
// the listener is up.
func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer, ready func(net.Addr)) error {
	cfg, err := config.Load(args, getenv, stderr)
	if err != nil {
		return err
	}
	log := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)

	db, err := inventory.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := inventory.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating %s: %w", cfg.DBPath, err)
	}

	rt := router.New()
	inventory.NewHandlers(store, log).Register(rt)

	s, err := server.Serve(server.Config{
		Addr:          cfg.Addr,
		AllowedOrigin: cfg.AllowedOrigin,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		Limits: request.Limits{
			MaxHeaderBytes: cfg.MaxHeaderBytes,
			MaxBodyBytes:   cfg.MaxBodyBytes,
		},
		MaxConns: cfg.MaxConns,
	}, rt, log)
	if err != nil {
		return err
	}
	log.Info().Str("addr", s.Addr().String()).Int("routes", len(rt.Routes())).Msg("Server started")
	if ready != nil {
		ready(s.Addr())
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("Server gracefully stopped")
	return nil
}
