package config

import (
	"time"

	"warehouse_bot/internal/retry"
)

// ResilienceConfig holds retry policies for the Telegram transport and the
// notifier. Spreadsheet calls are never retried here.
type ResilienceConfig struct {
	BotPoll retry.Config
	Notify  retry.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	BotPoll: retry.Config{
		Name:          "telegram getUpdates",
		BaseDelay:     1 * time.Second,
		MaxDelay:      60 * time.Second,
		Timeout:       90 * time.Second,
		InfiniteRetry: true,
	},
	Notify: retry.Config{
		Name:       "ntfy publish",
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    10 * time.Second,
	},
}
