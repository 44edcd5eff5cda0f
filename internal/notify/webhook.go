package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier posts rendered notifications to an email/SMS gateway.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	from   string
}

// NewWebhookNotifier builds a notifier targeting the gateway URL.
func NewWebhookNotifier(url, from string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(0) // the outbox worker owns retries
	return &WebhookNotifier{client: client, url: url, from: from}
}

type webhookPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (w *WebhookNotifier) Send(ctx context.Context, n StatusNotification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookPayload{
			From:    w.from,
			To:      n.Email,
			Phone:   n.Phone,
			Subject: n.Subject(),
			Body:    n.Body(),
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notification webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook: gateway returned %s", resp.Status())
	}
	return nil
}
