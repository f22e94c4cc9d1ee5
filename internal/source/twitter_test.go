package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testCreds = Credentials{
	ConsumerKey:       "ck",
	ConsumerSecret:    "cs",
	AccessToken:       "at",
	AccessTokenSecret: "ats",
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func twitterWithHandler(t *testing.T, h http.HandlerFunc) *TwitterSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ts, err := NewTwitter(context.Background(), testCreds, srv.URL, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new twitter: %v", err)
	}
	return ts
}

const timelineJSON = `[
  {"id_str": "2", "text": "Big SALE today!", "created_at": "Wed Oct 15 18:30:00 +0000 2026", "user": {"screen_name": "shop"}},
  {"id_str": "1", "text": "no deal here", "created_at": "Tue Oct 14 09:00:00 +0000 2026", "user": {"screen_name": "shop"}}
]`

func TestNewTwitter_RequiresBaseURL(t *testing.T) {
	if _, err := NewTwitter(context.Background(), testCreds, " ", nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestTwitter_Name(t *testing.T) {
	ts, _ := NewTwitter(context.Background(), testCreds, twitterBaseURL, nil)
	if ts.Name() != "twitter" {
		t.Errorf("name = %q, want twitter", ts.Name())
	}
}

func TestTwitter_TimelineSignedRequest(t *testing.T) {
	ts := twitterWithHandler(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != twitterTimelinePath {
			t.Errorf("path = %q, want %q", r.URL.Path, twitterTimelinePath)
		}
		if got := r.URL.Query().Get("screen_name"); got != "shop" {
			t.Errorf("screen_name = %q, want shop", got)
		}
		if r.URL.Query().Has("count") {
			t.Errorf("count should not be sent, got %q", r.URL.Query().Get("count"))
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "OAuth ") {
			t.Errorf("authorization = %q, want OAuth header", auth)
		}
		if !strings.Contains(auth, `oauth_consumer_key="ck"`) || !strings.Contains(auth, `oauth_token="at"`) {
			t.Errorf("authorization = %q, want consumer key and token", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, timelineJSON)
	})

	posts, err := ts.Timeline(context.Background(), "shop")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}

	p := posts[0]
	if p.Text != "Big SALE today!" {
		t.Errorf("text = %q", p.Text)
	}
	if p.ExternalID != "2" {
		t.Errorf("external_id = %q", p.ExternalID)
	}
	if p.Channel != "shop" || p.Source != "twitter" {
		t.Errorf("channel/source = %q/%q", p.Channel, p.Source)
	}
	if p.URL != "https://twitter.com/shop/status/2" {
		t.Errorf("url = %q", p.URL)
	}
	want := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	if !p.PostedAt.Equal(want) {
		t.Errorf("posted_at = %v, want %v", p.PostedAt, want)
	}
	if posts[1].Text != "no deal here" {
		t.Errorf("feed order not preserved: %q", posts[1].Text)
	}
}

func TestTwitter_Unauthorized(t *testing.T) {
	ts := twitterWithHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"code":89,"message":"Invalid or expired token."}]}`)
	})

	_, err := ts.Timeline(context.Background(), "shop")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthenticationError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", authErr.StatusCode)
	}
	if !strings.Contains(authErr.Error(), "Invalid or expired token. (code 89)") {
		t.Errorf("error = %q, want api message", authErr.Error())
	}
}

func TestTwitter_ServerError(t *testing.T) {
	ts := twitterWithHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := ts.Timeline(context.Background(), "shop")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if fetchErr.Handle != "shop" {
		t.Errorf("handle = %q, want shop", fetchErr.Handle)
	}
}

func TestTwitter_TransportError(t *testing.T) {
	boom := errors.New("connection reset")
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})}
	ts, err := NewTwitter(context.Background(), testCreds, "https://twitter.test", client)
	if err != nil {
		t.Fatalf("new twitter: %v", err)
	}

	_, err = ts.Timeline(context.Background(), "shop")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
}

func TestTwitter_MalformedJSON(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, "{{{not json"), nil
	})}
	ts, _ := NewTwitter(context.Background(), testCreds, "https://twitter.test", client)

	_, err := ts.Timeline(context.Background(), "shop")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
}

func TestTwitterErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"errors array", `{"errors":[{"code":34,"message":"Sorry, that page does not exist."}]}`, "Sorry, that page does not exist. (code 34)"},
		{"error string", `{"error":"Not authorized."}`, "Not authorized."},
		{"empty", ``, ""},
		{"not json", `<html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := twitterErrorMessage(strings.NewReader(tt.body)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
