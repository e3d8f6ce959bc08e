package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"warehouse_bot/internal/config"
	"warehouse_bot/internal/items"
	"warehouse_bot/internal/notifications"
	"warehouse_bot/internal/sheets"
	"warehouse_bot/internal/telegram"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPort = 8000

// Options are the command-line switches that change which settings are required.
type Options struct {
	NoBot  bool
	Memory bool
}

type NotifyConfig struct {
	Enabled  bool
	URL      string
	Topic    string
	Priority string
}

type Config struct {
	TelegramToken   string
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
	Port            int
	RailwayEnv      string
	WebAppURL       string
	Notify          NotifyConfig
	Options         Options
}

// IsProduction reports whether the process runs in the production Railway environment.
func (c *Config) IsProduction() bool {
	return c.RailwayEnv == "production"
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// LoadConfig reads the process configuration from the environment.
// Missing required values are reported together in one error.
func LoadConfig(opts Options) (*Config, error) {
	cfg := &Config{
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       GetEnvWithDefault("SHEET_NAME", items.DefaultSheetName),
		Port:            parsePort(os.Getenv("PORT")),
		RailwayEnv:      GetEnvWithDefault("RAILWAY_ENV", "development"),
		Notify: NotifyConfig{
			Enabled:  GetEnvWithDefault("NTFY_ENABLED", "false") == "true",
			URL:      GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
			Topic:    GetEnvWithDefault("NTFY_TOPIC", "warehouse-labels"),
			Priority: GetEnvWithDefault("NTFY_PRIORITY", "default"),
		},
		Options: opts,
	}

	cfg.WebAppURL = os.Getenv("WEBAPP_URL")
	if cfg.WebAppURL == "" {
		if cfg.IsProduction() {
			cfg.WebAppURL = fmt.Sprintf("https://%s.up.railway.app/webapp", cfg.RailwayEnv)
		} else {
			cfg.WebAppURL = fmt.Sprintf("http://localhost:%d/webapp", cfg.Port)
		}
	}

	var missing []string
	if !opts.NoBot && cfg.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if !opts.Memory {
		if cfg.CredentialsFile == "" {
			missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_JSON")
		}
		if cfg.SpreadsheetID == "" {
			missing = append(missing, "GOOGLE_SPREADSHEET_ID")
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing environment variables: %s", items.ErrMalformed, strings.Join(missing, ", "))
	}

	return cfg, nil
}

// parsePort falls back to the default port on anything that is not a valid TCP port.
func parsePort(value string) int {
	if value == "" {
		return defaultPort
	}
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Warn().Str("port", value).Msgf("Invalid PORT, using %d", defaultPort)
		return defaultPort
	}
	if port < 1 || port > 65535 {
		log.Warn().Int("port", port).Msgf("PORT out of range, using %d", defaultPort)
		return defaultPort
	}
	return port
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// InitializeStore builds the item table on Google Sheets, or on the in-memory
// backend seeded with demo rows when Options.Memory is set.
func InitializeStore(ctx context.Context, cfg *Config) (*items.Table, error) {
	log.Debug().Str("sheet", cfg.SheetName).Bool("memory", cfg.Options.Memory).Msg("Initializing item store")

	if cfg.Options.Memory {
		backend := items.NewMemoryBackend()
		backend.SetRows(cfg.SheetName, items.DemoRows())
		log.Warn().Msg("Using in-memory item store; changes are not persisted")
		return items.NewTable(backend, "memory", cfg.SheetName)
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", items.ErrMalformed, err)
	}
	return items.NewTable(sheetsClient, cfg.SpreadsheetID, cfg.SheetName)
}

// InitializeTelegramClient creates the Bot API client, or nil when the bot is disabled.
func InitializeTelegramClient(cfg *Config) *telegram.Client {
	if cfg.Options.NoBot {
		log.Info().Msg("Telegram bot disabled")
		return nil
	}
	return telegram.NewClient(cfg.TelegramToken)
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient(cfg *Config) *notifications.Client {
	log.Debug().
		Bool("enabled", cfg.Notify.Enabled).
		Str("base_url", cfg.Notify.URL).
		Str("topic", cfg.Notify.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(
		cfg.Notify.URL,
		cfg.Notify.Topic,
		cfg.Notify.Enabled,
		cfg.Notify.Priority,
		config.DefaultResilienceConfig.Notify,
	)

	if cfg.Notify.Enabled {
		log.Info().Str("topic", cfg.Notify.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
