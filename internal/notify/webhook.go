package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"skyflip/internal/models"
)

type WebhookNotifier struct {
	URL  string
	HTTP *resty.Client
}

type WebhookPayload struct {
	Event      string                 `json:"event"`
	CycleID    string                 `json:"cycle_id"`
	Message    string                 `json:"message"`
	Candidates []models.FlipCandidate `json:"candidates"`
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{URL: strings.TrimSpace(url), HTTP: newHTTP(timeout)}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	if strings.TrimSpace(n.URL) == "" {
		return errors.New("webhook url missing")
	}
	client := n.HTTP
	if client == nil {
		client = newHTTP(0)
	}
	resp, err := client.R().
		SetContext(ctx).
		SetBody(WebhookPayload{
			Event:      EventFlipCandidates,
			CycleID:    alert.CycleID,
			Message:    FormatMessage(alert),
			Candidates: alert.Candidates,
		}).
		Post(n.URL)
	if err != nil {
		return err
	}
	return checkStatus("webhook", resp)
}
