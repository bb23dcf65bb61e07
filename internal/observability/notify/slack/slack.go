// Package slack delivers automation notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidyops/fieldwork/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// Client delivers overdue-approval notifications to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
	logger     *slog.Logger
}

var _ notify.OverdueNotifier = (*Client)(nil)

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    cfg.Channel,
		username:   cfg.Username,
		client:     httpClient,
		logger:     cfg.Logger,
	}, nil
}

type webhookMessage struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// NotifyOverdueApprovals posts a sweep summary. Failures are logged, never
// returned: notification is telemetry, not part of the sweep's contract.
func (c *Client) NotifyOverdueApprovals(ctx context.Context, payload notify.OverdueApprovalsPayload) {
	if len(payload.FlaggedJobIDs) == 0 && len(payload.Errors) == 0 {
		return
	}

	if err := c.post(ctx, webhookMessage{
		Channel:  c.channel,
		Username: c.username,
		Text:     formatOverdueText(payload),
	}); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "slack notification failed", "error", err)
	}
}

func (c *Client) post(ctx context.Context, msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

func formatOverdueText(payload notify.OverdueApprovalsPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d completed job(s) awaiting approval for over the threshold", len(payload.FlaggedJobIDs))
	if len(payload.FlaggedJobIDs) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(payload.FlaggedJobIDs, ", "))
	}
	if len(payload.Errors) > 0 {
		fmt.Fprintf(&b, " (%d job(s) failed to flag)", len(payload.Errors))
	}
	return b.String()
}
