package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramProviderName = "telegram"
	telegramTimeout      = 30 * time.Second
)

// TelegramPublisher sends the message to a Telegram chat. The topic is a
// numeric chat ID or an @channel username.
type TelegramPublisher struct {
	bot *tgbotapi.BotAPI
}

// NewTelegram creates a Telegram publisher. An empty endpoint uses the public
// Bot API; a nil client uses http.DefaultClient.
func NewTelegram(token, endpoint string, client tgbotapi.HTTPClient) (*TelegramPublisher, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("bot token is required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: telegramTimeout}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramPublisher{bot: bot}, nil
}

func (p *TelegramPublisher) Name() string {
	return telegramProviderName
}

// Publish sends the subject and body as one plain-text message.
func (p *TelegramPublisher) Publish(_ context.Context, msg Message) (Outcome, error) {
	cfg, err := telegramMessage(msg)
	if err != nil {
		return nil, &PublishError{Provider: telegramProviderName, Topic: msg.Topic, Err: err}
	}

	sent, err := p.bot.Send(cfg)
	if err != nil {
		return nil, &PublishError{Provider: telegramProviderName, Topic: msg.Topic, Err: err}
	}

	outcome := Outcome{
		"MessageId": sent.MessageID,
		"Date":      sent.Date,
	}
	if sent.Chat != nil {
		outcome["ChatId"] = sent.Chat.ID
	}
	return outcome, nil
}

func telegramMessage(msg Message) (tgbotapi.MessageConfig, error) {
	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}

	topic := strings.TrimSpace(msg.Topic)
	switch {
	case topic == "":
		return tgbotapi.MessageConfig{}, errors.New("chat id is required")
	case strings.HasPrefix(topic, "@"):
		return tgbotapi.NewMessageToChannel(topic, text), nil
	}

	chatID, err := strconv.ParseInt(topic, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("invalid chat id %q: %w", topic, err)
	}
	return tgbotapi.NewMessage(chatID, text), nil
}
