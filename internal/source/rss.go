package source

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	rssSourceName = "rss"
	rssUserAgent  = "Mozilla/5.0 (compatible; restockwatch/1.0; +https://github.com/ppiankov/restockwatch)"
)

// RSSSource reads a handle's public RSS/Atom feed, e.g. a Mastodon
// profile feed at https://host/@{handle}.rss.
type RSSSource struct {
	urlTemplate string
	pageSize    int
	client      *http.Client
}

// NewRSS creates an RSS source. urlTemplate must contain {handle}.
func NewRSS(urlTemplate string, pageSize int, client *http.Client) (*RSSSource, error) {
	if !strings.Contains(urlTemplate, "{handle}") {
		return nil, errors.New("rss: url template must contain {handle}")
	}
	if pageSize < 1 {
		return nil, errors.New("rss: page size must be at least 1")
	}
	if client == nil {
		client = http.DefaultClient
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &RSSSource{
		urlTemplate: urlTemplate,
		pageSize:    pageSize,
		client: &http.Client{
			Timeout:   client.Timeout,
			Transport: &rssTransport{base: base},
		},
	}, nil
}

func (rs *RSSSource) Name() string {
	return rssSourceName
}

// Timeline returns up to pageSize items of the handle's feed in feed order.
func (rs *RSSSource) Timeline(ctx context.Context, screenName string) ([]Post, error) {
	feedURL := rs.feedURL(screenName)

	fp := gofeed.NewParser()
	fp.Client = rs.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, statusError(rssSourceName, screenName, httpErr.StatusCode, httpErr.Status)
		}
		return nil, &FetchError{Source: rssSourceName, Handle: screenName, Err: err}
	}

	posts := postsFromFeed(feed, screenName)
	if len(posts) > rs.pageSize {
		posts = posts[:rs.pageSize]
	}
	return posts, nil
}

func (rs *RSSSource) feedURL(screenName string) string {
	return strings.ReplaceAll(rs.urlTemplate, "{handle}", url.PathEscape(screenName))
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base http.RoundTripper
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", rssUserAgent)
	return t.base.RoundTrip(req)
}

func postsFromFeed(feed *gofeed.Feed, screenName string) []Post {
	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		p := Post{
			Source:     rssSourceName,
			Channel:    screenName,
			ExternalID: itemID(item),
			Text:       itemText(item),
			URL:        item.Link,
		}
		if item.PublishedParsed != nil {
			p.PostedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			p.PostedAt = item.UpdatedParsed.UTC()
		}
		posts = append(posts, p)
	}
	return posts
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}

	text := htmlToText(raw)
	if text == "" {
		return strings.TrimSpace(item.Title)
	}
	if item.Title != "" && !strings.Contains(text, item.Title) {
		text = item.Title + "\n\n" + text
	}
	return text
}

// htmlToText flattens an HTML fragment to plain text, keeping paragraph
// and line breaks.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		p.BeforeHtml("\n\n")
	})

	var parts []string
	for _, part := range strings.Split(doc.Text(), "\n\n") {
		if t := strings.TrimSpace(part); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

var _ Feed = (*RSSSource)(nil)
