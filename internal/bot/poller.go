package bot

import (
	"context"
	"errors"
	"time"

	"warehouse_bot/internal/retry"
	"warehouse_bot/internal/telegram"

	"github.com/rs/zerolog/log"
)

// Updater is the long-polling side of the Bot API.
type Updater interface {
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]telegram.Update, error)
}

// Poller feeds updates to a Handler one at a time, in order.
type Poller struct {
	updater     Updater
	handler     *Handler
	pollTimeout time.Duration
	retry       retry.Config
}

func NewPoller(updater Updater, handler *Handler, pollTimeout time.Duration, retryConfig retry.Config) *Poller {
	return &Poller{
		updater:     updater,
		handler:     handler,
		pollTimeout: pollTimeout,
		retry:       retryConfig,
	}
}

// Run polls until ctx is cancelled. Transport failures back off and retry;
// they never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Dur("poll_timeout", p.pollTimeout).Msg("Starting Telegram long polling")

	offset := 0
	for {
		updates, err := retry.WithRetry(ctx, p.retry, func(ctx context.Context) ([]telegram.Update, error) {
			updates, err := p.updater.GetUpdates(ctx, offset, p.pollTimeout)
			if err != nil {
				log.Warn().Err(err).Int("offset", offset).Msg("Failed to get updates")
			}
			return updates, err
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info().Msg("Telegram polling stopped")
				return nil
			}
			return err
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, update)
		}
	}
}
