package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/restockwatch/internal/config"
	"github.com/ppiankov/restockwatch/internal/notify"
	"github.com/ppiankov/restockwatch/internal/source"
)

func TestVersionNotEmpty(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestExecuteVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.HasPrefix(out, "restockwatch ") {
		t.Errorf("output = %q, want restockwatch prefix", out)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, dotEnvFile, "RESTOCKWATCH_TEST_DOTENV=from-file\nRESTOCKWATCH_TEST_KEEP=from-file\n")

	t.Setenv("RESTOCKWATCH_TEST_DOTENV", "")
	os.Unsetenv("RESTOCKWATCH_TEST_DOTENV")
	t.Setenv("RESTOCKWATCH_TEST_KEEP", "from-env")

	if err := loadDotEnv(dir); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("RESTOCKWATCH_TEST_DOTENV"); got != "from-file" {
		t.Errorf("dotenv var = %q, want from-file", got)
	}
	if got := os.Getenv("RESTOCKWATCH_TEST_KEEP"); got != "from-env" {
		t.Errorf("existing var = %q, want from-env", got)
	}
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	if err := loadDotEnv(t.TempDir()); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" {
		t.Errorf("message = %v, want shown", line["message"])
	}
	if line["service"] != serviceName {
		t.Errorf("service = %v, want %s", line["service"], serviceName)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := newLogger(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

// --- helpers shared by command tests ---

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvFeedProvider, config.EnvNotifyProvider, config.EnvLogLevel, config.EnvLogFormat,
		config.EnvAWSRegion, config.EnvOTLPEndpoint, config.DefaultTopicEnv, config.FallbackTopicEnv,
	} {
		t.Setenv(key, "")
	}
}

type stubFeed struct{ posts []source.Post }

func (f *stubFeed) Name() string { return "stub" }

func (f *stubFeed) Timeline(context.Context, string) ([]source.Post, error) {
	return f.posts, nil
}

type stubPublisher struct{ messages []notify.Message }

func (p *stubPublisher) Name() string { return "stub" }

func (p *stubPublisher) Publish(_ context.Context, m notify.Message) (notify.Outcome, error) {
	p.messages = append(p.messages, m)
	return notify.Outcome{"MessageId": "stub-1"}, nil
}

// stubFactories replaces the provider seams and returns the publisher.
func stubFactories(t *testing.T, texts ...string) *stubPublisher {
	t.Helper()
	oldFeed, oldPub := newFeedFactory, newPublisherFactory
	t.Cleanup(func() {
		newFeedFactory = oldFeed
		newPublisherFactory = oldPub
	})

	posts := make([]source.Post, len(texts))
	for i, text := range texts {
		posts[i] = source.Post{Source: "stub", Text: text}
	}
	pub := &stubPublisher{}

	newFeedFactory = func(config.FeedConfig) (source.Factory, error) {
		return func(context.Context, source.Credentials) (source.Feed, error) {
			return &stubFeed{posts: posts}, nil
		}, nil
	}
	newPublisherFactory = func(config.NotifyConfig) (notify.Factory, error) {
		return func(context.Context) (notify.Publisher, error) {
			return pub, nil
		}, nil
	}
	return pub
}
