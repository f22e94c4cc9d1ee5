package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/restockwatch/internal/config"
)

const (
	hnSourceName = "hn"
	hnAPIBase    = "https://hacker-news.firebaseio.com/v0"
	hnItemURL    = "https://news.ycombinator.com/item?id="
)

// HNSource reads a Hacker News user's newest submissions via the Firebase API.
type HNSource struct {
	client   *http.Client
	baseURL  string
	pageSize int
}

// NewHN creates a Hacker News source. The API is public; credentials are not used.
func NewHN(baseURL string, pageSize int, client *http.Client) *HNSource {
	if client == nil {
		client = http.DefaultClient
	}
	if pageSize < 1 {
		pageSize = config.DefaultPageSize
	}
	return &HNSource{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
	}
}

func (h *HNSource) Name() string {
	return hnSourceName
}

type hnUser struct {
	ID        string `json:"id"`
	Submitted []int  `json:"submitted"`
}

// hnItem represents a Hacker News story or comment from the API.
type hnItem struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Time    int64  `json:"time"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

// Timeline returns up to pageSize of the user's newest submissions, newest
// first. Deleted and dead items are skipped.
func (h *HNSource) Timeline(ctx context.Context, screenName string) ([]Post, error) {
	var user *hnUser
	if err := h.getJSON(ctx, "/user/"+url.PathEscape(screenName)+".json", &user); err != nil {
		return nil, h.wrap(screenName, "fetch user", err)
	}
	// The API answers unknown users with a literal null.
	if user == nil {
		return nil, &FetchError{Source: hnSourceName, Handle: screenName, Err: errors.New("user not found")}
	}

	ids := user.Submitted
	if len(ids) > h.pageSize {
		ids = ids[:h.pageSize]
	}

	// Items are fetched one at a time, in submission order.
	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		var item *hnItem
		if err := h.getJSON(ctx, "/item/"+strconv.Itoa(id)+".json", &item); err != nil {
			return nil, h.wrap(screenName, fmt.Sprintf("fetch item %d", id), err)
		}
		if item == nil || item.Deleted || item.Dead {
			continue
		}
		posts = append(posts, item.post(screenName))
	}
	return posts, nil
}

func (it *hnItem) post(screenName string) Post {
	text := strings.TrimSpace(it.Title)
	if body := htmlToText(it.Text); body != "" {
		if text != "" {
			text += "\n\n"
		}
		text += body
	}

	link := it.URL
	if link == "" {
		link = hnItemURL + strconv.Itoa(it.ID)
	}

	return Post{
		Source:     hnSourceName,
		Channel:    screenName,
		ExternalID: strconv.Itoa(it.ID),
		Text:       text,
		URL:        link,
		PostedAt:   time.Unix(it.Time, 0).UTC(),
	}
}

// hnStatus carries a non-200 response out of getJSON.
type hnStatus int

func (s hnStatus) Error() string { return fmt.Sprintf("status %d", int(s)) }

func (h *HNSource) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return hnStatus(resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (h *HNSource) wrap(screenName, op string, err error) error {
	if status, ok := err.(hnStatus); ok {
		return statusError(hnSourceName, screenName, int(status), op)
	}
	return &FetchError{Source: hnSourceName, Handle: screenName, Err: fmt.Errorf("%s: %w", op, err)}
}
