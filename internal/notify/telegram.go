package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	BotToken string
	ChatID   string
	HTTP     *resty.Client

	// APIBase overrides the Telegram endpoint host.
	APIBase string
}

type telegramSendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func NewTelegramNotifier(botToken, chatID string, timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken: strings.TrimSpace(botToken),
		ChatID:   strings.TrimSpace(chatID),
		HTTP:     newHTTP(timeout),
	}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	if n.BotToken == "" || n.ChatID == "" {
		return errors.New("missing bot_token/chat_id")
	}
	base := strings.TrimRight(n.APIBase, "/")
	if base == "" {
		base = telegramAPI
	}
	client := n.HTTP
	if client == nil {
		client = newHTTP(0)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", base, url.PathEscape(n.BotToken))
	resp, err := client.R().
		SetContext(ctx).
		SetBody(telegramSendMessageRequest{ChatID: n.ChatID, Text: FormatMessage(alert)}).
		Post(endpoint)
	if err != nil {
		return err
	}
	return checkStatus("telegram", resp)
}
