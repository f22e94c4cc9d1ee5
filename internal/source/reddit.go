package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	redditSourceName = "reddit"
	redditBaseURL    = "https://www.reddit.com"
	redditUserAgent  = "restockwatch/1.0"
)

// RedditSource reads a user's public submissions via Reddit's JSON API.
type RedditSource struct {
	client  *http.Client
	baseURL string
}

// NewReddit creates a Reddit source. Public listings need no credentials.
func NewReddit(baseURL string, client *http.Client) *RedditSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RedditSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (rs *RedditSource) Name() string {
	return redditSourceName
}

// Timeline returns the default listing page of the user's newest submissions.
func (rs *RedditSource) Timeline(ctx context.Context, screenName string) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/user/%s/submitted.json?sort=new", rs.baseURL, url.PathEscape(screenName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: redditSourceName, Handle: screenName, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", redditUserAgent)

	resp, err := rs.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: redditSourceName, Handle: screenName, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(redditSourceName, screenName, resp.StatusCode, "")
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &FetchError{Source: redditSourceName, Handle: screenName, Err: fmt.Errorf("decode listing: %w", err)}
	}

	return postsFromListing(listing, screenName), nil
}

func postsFromListing(listing redditListing, screenName string) []Post {
	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data

		text := p.Title
		if strings.TrimSpace(p.Selftext) != "" {
			text = p.Title + "\n\n" + p.Selftext
		}

		posts = append(posts, Post{
			Source:     redditSourceName,
			Channel:    screenName,
			ExternalID: p.ID,
			Text:       text,
			URL:        redditBaseURL + p.Permalink,
			PostedAt:   time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return posts
}

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}
