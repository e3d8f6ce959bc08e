package main

import (
	"context"
	"fmt"
	"os"

	"warehouse_bot/internal/api"
	"warehouse_bot/internal/app"
	"warehouse_bot/internal/bot"
	"warehouse_bot/internal/config"
	"warehouse_bot/internal/notifications"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type flags struct {
	addr   string
	noBot  bool
	memory bool
}

// parseFlags reads the command line. An empty addr means PORT decides.
func parseFlags(args []string) (flags, error) {
	var f flags
	flagSet := pflag.NewFlagSet("warehouse-bot", pflag.ContinueOnError)
	flagSet.StringVar(&f.addr, "addr", "", "HTTP listen address (default :$PORT)")
	flagSet.BoolVar(&f.noBot, "no-bot", false, "serve the HTTP API only, without Telegram polling")
	flagSet.BoolVar(&f.memory, "memory", false, "use an in-memory item table seeded with demo rows")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: warehouse-bot [flags]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return f, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return f, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return f, nil
}

type services struct {
	server   *api.Server
	poller   *bot.Poller
	notifier *notifications.Client
	addr     string
}

// setupServices wires the item store, notifier, HTTP server and bot poller.
func setupServices(ctx context.Context, f flags) (*services, error) {
	cfg, err := app.LoadConfig(app.Options{NoBot: f.noBot, Memory: f.memory})
	if err != nil {
		return nil, err
	}

	store, err := app.InitializeStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create item store: %w", err)
	}
	notifier := app.InitializeNotificationClient(cfg)

	svc := &services{
		server:   api.NewServer(store, notifier),
		notifier: notifier,
		addr:     f.addr,
	}
	if svc.addr == "" {
		svc.addr = cfg.Addr()
	}

	if tg := app.InitializeTelegramClient(cfg); tg != nil {
		me, err := tg.GetMe(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reach Telegram: %w", err)
		}
		log.Info().Str("username", me.Username).Str("webapp_url", cfg.WebAppURL).Msg("Telegram bot authorized")

		handler := bot.NewHandler(store, tg, notifier, cfg.WebAppURL)
		svc.poller = bot.NewPoller(tg, handler, pollTimeout, config.DefaultResilienceConfig.BotPoll)
	}

	log.Debug().
		Str("addr", svc.addr).
		Str("sheet", store.SheetName()).
		Bool("bot", svc.poller != nil).
		Msg("Services initialized")
	return svc, nil
}
