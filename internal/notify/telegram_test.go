package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu   sync.Mutex
	sent []map[string]string
}

func newBotServer(t *testing.T, sendStatus int) (*httptest.Server, *botServer) {
	t.Helper()
	bs := &botServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"restock","username":"restockbot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			bs.mu.Lock()
			bs.sent = append(bs.sent, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			bs.mu.Unlock()
			if sendStatus != http.StatusOK {
				w.WriteHeader(sendStatus)
				_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":42,"date":1760000000,"chat":{"id":-100123,"type":"channel"},"text":"ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, bs
}

func TestNewTelegram_RequiresToken(t *testing.T) {
	_, err := NewTelegram("  ", "", nil)
	require.Error(t, err)
}

func TestTelegram_PublishToChatID(t *testing.T) {
	srv, bs := newBotServer(t, http.StatusOK)
	p, err := NewTelegram("123:abc", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "telegram", p.Name())

	outcome, err := p.Publish(context.Background(), Message{
		Topic:   "-100123",
		Subject: "Restock alert",
		Body:    "Big SALE today!",
	})
	require.NoError(t, err)

	require.Len(t, bs.sent, 1)
	assert.Equal(t, "-100123", bs.sent[0]["chat_id"])
	assert.Equal(t, "Restock alert\n\nBig SALE today!", bs.sent[0]["text"])

	assert.Equal(t, 42, outcome["MessageId"])
	assert.Equal(t, int64(-100123), outcome["ChatId"])
	assert.Equal(t, 1760000000, outcome["Date"])
}

func TestTelegram_PublishToChannel(t *testing.T) {
	srv, bs := newBotServer(t, http.StatusOK)
	p, err := NewTelegram("123:abc", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), Message{Topic: "@restock_alerts", Body: "drop"})
	require.NoError(t, err)

	require.Len(t, bs.sent, 1)
	assert.Equal(t, "@restock_alerts", bs.sent[0]["chat_id"])
	assert.Equal(t, "drop", bs.sent[0]["text"])
}

func TestTelegram_PublishRejected(t *testing.T) {
	srv, _ := newBotServer(t, http.StatusBadRequest)
	p, err := NewTelegram("123:abc", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), Message{Topic: "-1", Body: "x"})

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "-1", pubErr.Topic)
}

func TestTelegramMessage_InvalidTopic(t *testing.T) {
	for _, topic := range []string{"", "  ", "not-a-chat"} {
		_, err := telegramMessage(Message{Topic: topic, Body: "x"})
		assert.Error(t, err, "topic %q", topic)
	}
}
