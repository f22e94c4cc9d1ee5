package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/restockwatch/internal/config"
)

// Post represents a single item fetched from a user's social feed.
type Post struct {
	Source     string    // source identifier: "twitter", "rss", "reddit"
	Channel    string    // handle the post was fetched for
	ExternalID string    // source-specific unique ID
	Text       string    // display text
	URL        string    // link to the original item
	PostedAt   time.Time // publication timestamp
}

// Credentials is the OAuth material supplied with each invocation.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Feed fetches the most recent posts of a handle.
type Feed interface {
	// Name returns the source identifier (e.g. "twitter").
	Name() string

	// Timeline returns up to the platform's default page of recent posts,
	// newest first.
	Timeline(ctx context.Context, screenName string) ([]Post, error)
}

// Factory builds an authenticated Feed for one invocation.
type Factory func(ctx context.Context, creds Credentials) (Feed, error)

// AuthenticationError reports credentials rejected by the feed service.
type AuthenticationError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication failed: status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: authentication failed: status %d: %s", e.Source, e.StatusCode, e.Message)
}

// FetchError reports a network or service failure while retrieving posts.
type FetchError struct {
	Source string
	Handle string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Source, e.Handle, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFactory returns the Factory for the configured feed provider.
func NewFactory(cfg config.FeedConfig) (Factory, error) {
	client := &http.Client{Timeout: cfg.Timeout.Duration}

	switch cfg.Provider {
	case twitterSourceName:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = twitterBaseURL
		}
		return func(ctx context.Context, creds Credentials) (Feed, error) {
			return NewTwitter(ctx, creds, baseURL, client)
		}, nil
	case rssSourceName:
		return func(_ context.Context, _ Credentials) (Feed, error) {
			return NewRSS(cfg.URLTemplate, cfg.PageSize, client)
		}, nil
	case redditSourceName:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = redditBaseURL
		}
		return func(_ context.Context, _ Credentials) (Feed, error) {
			return NewReddit(baseURL, client), nil
		}, nil
	case hnSourceName:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = hnAPIBase
		}
		return func(_ context.Context, _ Credentials) (Feed, error) {
			return NewHN(baseURL, cfg.PageSize, client), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown feed provider %q", cfg.Provider)
	}
}

// statusError maps a non-200 response to the error taxonomy.
func statusError(source, handle string, status int, message string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthenticationError{Source: source, StatusCode: status, Message: message}
	}
	if message != "" {
		return &FetchError{Source: source, Handle: handle, Err: fmt.Errorf("status %d: %s", status, message)}
	}
	return &FetchError{Source: source, Handle: handle, Err: fmt.Errorf("status %d", status)}
}
