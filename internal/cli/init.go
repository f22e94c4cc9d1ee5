package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/restockwatch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	Args:  cobra.NoArgs,
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0
	files := []struct {
		name string
		data string
	}{
		{config.DefaultConfigFile, exampleConfig},
		{config.DefaultEventFile, exampleEvent},
		{dotEnvFile, exampleDotEnv},
	}
	for _, f := range files {
		wrote, err := writeIfNotExists(w, filepath.Join(configDir, f.name), []byte(f.data))
		if err != nil {
			return err
		}
		if wrote {
			created++
		}
	}

	if created == 0 {
		fmt.Fprintf(w, "Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Fprintf(w, "Initialized %s with %d files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(w io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# restockwatch configuration

feed:
  provider: twitter        # twitter | rss | reddit
  timeout: 30s
  # url_template: "https://mastodon.social/@{handle}.rss"   # rss only
  # page_size: 20

notify:
  provider: sns            # sns | telegram
  topic_env: sns_topic_arn
  # region: us-east-1
  # telegram:
  #   token_env: TELEGRAM_BOT_TOKEN

match:
  workers: 1

log:
  level: info
  format: console

privacy:
  redact:
    enabled: false
    patterns: []

# tracing:
#   endpoint: "localhost:4317"
#   insecure: true
`

const exampleEvent = `{
  "subject": "Restock alert",
  "consumer_key": "YOUR_CONSUMER_KEY",
  "consumer_secret": "YOUR_CONSUMER_SECRET",
  "access_token": "YOUR_ACCESS_TOKEN",
  "access_token_secret": "YOUR_ACCESS_TOKEN_SECRET",
  "screen_name": "some_store",
  "search_terms": ["restock"],
  "special_unicode": []
}
`

const exampleDotEnv = `# Loaded by restockwatch before config.yaml. Existing variables win.
sns_topic_arn=arn:aws:sns:us-east-1:123456789012:restock
# TELEGRAM_BOT_TOKEN=
`
