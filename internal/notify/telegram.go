package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifier sends alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyOrder sends an order outcome alert.
func (n *Notifier) NotifyOrder(ctx context.Context, side string, size float64, accepted bool) error {
	outcome := "Accepted"
	if !accepted {
		outcome = "Rejected"
	}
	msg := fmt.Sprintf("<b>Order %s</b>\nSide: %s\nSize: %.3f", outcome, side, size)
	return n.Send(ctx, msg)
}

// NotifyStartup sends a session start alert.
func (n *Notifier) NotifyStartup(ctx context.Context, product, mode string) error {
	msg := fmt.Sprintf("<b>Trader started</b>\nProduct: <code>%s</code>\nMode: %s", product, mode)
	return n.Send(ctx, msg)
}

// NotifyShutdown sends a session end alert.
func (n *Notifier) NotifyShutdown(ctx context.Context, product string) error {
	msg := fmt.Sprintf("<b>Trader stopped</b>\nProduct: <code>%s</code>", product)
	return n.Send(ctx, msg)
}
