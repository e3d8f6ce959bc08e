package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"warehouse_bot/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	pollTimeout     = 50 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := setupServices(ctx, f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.server.Start(svc.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if svc.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.poller.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Telegram polling stopped with error")
			}
		}()
	}

	log.Info().Str("addr", svc.addr).Bool("bot", svc.poller != nil).Msg("Warehouse bot running")

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	wg.Wait()
	svc.notifier.Wait()

	sent, failed := svc.notifier.GetMetrics()
	log.Info().Int64("notifications_sent", sent).Int64("notifications_failed", failed).Msg("Stopped")
}
