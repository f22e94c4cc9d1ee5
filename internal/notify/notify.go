// Package notify publishes composed messages to a notification topic.
package notify

import (
	"context"
	"fmt"

	"github.com/ppiankov/restockwatch/internal/config"
)

// Outcome is the provider's acknowledgment, passed through unchanged.
// An empty Outcome means nothing was published.
type Outcome map[string]any

// Message is one publish request.
type Message struct {
	Topic   string
	Subject string
	Body    string
}

// Publisher sends a message to a notification topic.
type Publisher interface {
	// Name returns the provider identifier (e.g. "sns").
	Name() string

	// Publish sends msg once and returns the provider acknowledgment.
	Publish(ctx context.Context, msg Message) (Outcome, error)
}

// Factory builds a Publisher on the publish path of an invocation.
type Factory func(ctx context.Context) (Publisher, error)

// PublishError reports a failed publish or a publisher that could not be built.
type PublishError struct {
	Provider string
	Topic    string
	Err      error
}

func (e *PublishError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: publish to %s: %v", e.Provider, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewFactory returns the Factory for the configured notification provider.
func NewFactory(cfg config.NotifyConfig) (Factory, error) {
	switch cfg.Provider {
	case snsProviderName:
		return func(ctx context.Context) (Publisher, error) {
			p, err := NewSNS(ctx, cfg.Region)
			if err != nil {
				return nil, &PublishError{Provider: snsProviderName, Err: err}
			}
			return p, nil
		}, nil
	case telegramProviderName:
		return func(_ context.Context) (Publisher, error) {
			p, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.Endpoint, nil)
			if err != nil {
				return nil, &PublishError{Provider: telegramProviderName, Err: err}
			}
			return p, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}
