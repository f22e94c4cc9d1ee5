package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	twitterSourceName   = "twitter"
	twitterBaseURL      = "https://api.twitter.com"
	twitterTimelinePath = "/1.1/statuses/user_timeline.json"
	twitterStatusURL    = "https://twitter.com/%s/status/%s"
	twitterMaxErrorBody = 64 << 10
)

// TwitterSource reads a user timeline through the v1.1 REST API using
// OAuth 1.0a user-context signing.
type TwitterSource struct {
	client  *http.Client
	baseURL string
}

// NewTwitter creates a Twitter source whose requests are signed with creds.
// The base client's transport and timeout are reused for signed requests.
func NewTwitter(ctx context.Context, creds Credentials, baseURL string, base *http.Client) (*TwitterSource, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("twitter: base url is required")
	}
	if base == nil {
		base = http.DefaultClient
	}

	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	signed := cfg.Client(context.WithValue(ctx, oauth1.HTTPClient, base), token)
	signed.Timeout = base.Timeout

	return &TwitterSource{
		client:  signed,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (ts *TwitterSource) Name() string {
	return twitterSourceName
}

// Timeline returns the platform default page (20) of the user's recent tweets.
func (ts *TwitterSource) Timeline(ctx context.Context, screenName string) ([]Post, error) {
	q := url.Values{}
	q.Set("screen_name", screenName)
	endpoint := ts.baseURL + twitterTimelinePath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: twitterSourceName, Handle: screenName, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := ts.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: twitterSourceName, Handle: screenName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(twitterSourceName, screenName, resp.StatusCode, twitterErrorMessage(resp.Body))
	}

	var tweets []tweet
	if err := json.NewDecoder(resp.Body).Decode(&tweets); err != nil {
		return nil, &FetchError{Source: twitterSourceName, Handle: screenName, Err: fmt.Errorf("decode timeline: %w", err)}
	}

	return postsFromTweets(tweets, screenName), nil
}

func postsFromTweets(tweets []tweet, screenName string) []Post {
	posts := make([]Post, 0, len(tweets))
	for _, t := range tweets {
		author := t.User.ScreenName
		if author == "" {
			author = screenName
		}

		// Unparseable timestamps leave PostedAt zero; ordering comes from the API.
		postedAt, _ := time.Parse(time.RubyDate, t.CreatedAt)

		posts = append(posts, Post{
			Source:     twitterSourceName,
			Channel:    screenName,
			ExternalID: t.IDStr,
			Text:       t.Text,
			URL:        fmt.Sprintf(twitterStatusURL, author, t.IDStr),
			PostedAt:   postedAt.UTC(),
		})
	}
	return posts
}

// twitterErrorMessage extracts a human readable message from an API error body.
func twitterErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, twitterMaxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var apiErr twitterAPIError
	if err := json.Unmarshal(data, &apiErr); err != nil {
		return ""
	}
	if len(apiErr.Errors) > 0 {
		msgs := make([]string, 0, len(apiErr.Errors))
		for _, e := range apiErr.Errors {
			msgs = append(msgs, fmt.Sprintf("%s (code %d)", e.Message, e.Code))
		}
		return strings.Join(msgs, "; ")
	}
	return apiErr.Error
}

type tweet struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	User      struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
}

type twitterAPIError struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error string `json:"error"`
}
