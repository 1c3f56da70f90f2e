package notify

import (
	"context"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier delivers fire-and-forget messages to the operator or user
// channel. Delivery failures are logged and never escalated.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// LogNotifier writes notifications to the application log. It is the
// fallback when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, message string) {
	n.logger.Info("NOTIFY", zap.String("message", message))
}

// WebhookNotifier POSTs notifications as JSON to a configured webhook,
// typically the chat layer's outbound bridge.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier creates a webhook-backed notifier.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: resty.New(),
		url:    url,
		logger: logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, message string) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": message}).
		Post(n.url)
	if err != nil {
		n.logger.Warn("Webhook notification failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("Webhook notification rejected",
			zap.Int("status", resp.StatusCode()))
	}
}

// Multi fans one notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) {
	for _, n := range m {
		n.Notify(ctx, message)
	}
}
