package notifications

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"warehouse_bot/internal/retry"

	"github.com/rs/zerolog/log"
)

// Client publishes label events to an ntfy topic. A disabled client is a
// no-op, so callers never need a nil check beyond the pointer itself.
type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	retry      retry.Config
	// Circuit breaker state
	failures    int
	lastFailure time.Time
	circuitOpen bool
	mutex       sync.Mutex
	// Metrics
	totalSent   int64
	totalFailed int64
	wg          sync.WaitGroup
}

// ItemInfo describes an item whose label state changed.
type ItemInfo struct {
	InventoryID string
	Name        string
	Location    string
	Row         int
	Checked     bool
	// Source is "bot" or "api".
	Source string
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	case "auth", "client", "circuit_open":
		return false
	default:
		return e.StatusCode >= 500
	}
}

const (
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
)

func NewClient(baseURL, topic string, enabled bool, priority string, retryConfig retry.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		topic:    topic,
		enabled:  enabled,
		priority: priority,
		retry:    retryConfig,
	}
}

func (c *Client) Enabled() bool { return c != nil && c.enabled }

// SendNotification publishes message, retrying transient failures.
func (c *Client) SendNotification(ctx context.Context, message string) error {
	if !c.Enabled() {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	if c.isCircuitOpen() {
		log.Warn().Msg("Circuit breaker open, skipping notification")
		return &NotificationError{Type: "circuit_open", Underlying: fmt.Errorf("circuit breaker is open")}
	}

	_, err := retry.WithRetry(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		err := c.sendSingleNotification(ctx, message)
		if notifErr, ok := err.(*NotificationError); ok && !notifErr.IsRetryable() {
			return struct{}{}, retry.Permanent(err)
		}
		return struct{}{}, err
	})
	if err != nil {
		c.recordFailure()
		return err
	}

	c.recordSuccess()
	return nil
}

func (c *Client) sendSingleNotification(ctx context.Context, message string) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	log.Debug().
		Str("url", url).
		Str("message", message).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "Warehouse label")
	if c.priority != "" {
		req.Header.Set("Priority", c.priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// SendNotificationAsync publishes in the background. The send is detached
// from ctx cancellation so a finished HTTP request does not abort it.
func (c *Client) SendNotificationAsync(ctx context.Context, message string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.SendNotification(context.WithoutCancel(ctx), message); err != nil {
			log.Warn().Err(err).Msg("Async notification failed")
		}
	}()
}

// Wait blocks until pending async notifications finish.
func (c *Client) Wait() {
	if c != nil {
		c.wg.Wait()
	}
}

// NotifyLabel announces a checkbox change.
func (c *Client) NotifyLabel(ctx context.Context, item ItemInfo) {
	if !c.Enabled() {
		return
	}

	log.Info().
		Str("inventory_id", item.InventoryID).
		Bool("checked", item.Checked).
		Str("source", item.Source).
		Msg("Sending label notification")

	c.SendNotificationAsync(ctx, FormatLabelMessage(item))
}

func FormatLabelMessage(item ItemInfo) string {
	var sb strings.Builder

	if item.Checked {
		sb.WriteString(fmt.Sprintf("Label marked: %s\n", item.InventoryID))
	} else {
		sb.WriteString(fmt.Sprintf("Label cleared: %s\n", item.InventoryID))
	}
	if item.Name != "" {
		sb.WriteString(fmt.Sprintf("Item: %s\n", item.Name))
	}
	if item.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", item.Location))
	}
	sb.WriteString(fmt.Sprintf("Row %d", item.Row))
	if item.Source != "" {
		sb.WriteString(fmt.Sprintf(" via %s", item.Source))
	}

	return sb.String()
}

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.circuitOpen {
		return false
	}

	// Half-open after the cooldown: let the next send through.
	if time.Since(c.lastFailure) > circuitCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}

	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
	if c.circuitOpen {
		c.circuitOpen = false
		log.Info().Msg("Circuit breaker closed after successful notification")
	}
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	c.lastFailure = time.Now()

	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		log.Warn().
			Int("failures", c.failures).
			Msg("Circuit breaker opened due to consecutive failures")
	}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

// GetMetrics returns current notification metrics
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
