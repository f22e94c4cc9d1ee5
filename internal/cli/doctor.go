package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/ppiankov/restockwatch/internal/config"
	"github.com/ppiankov/restockwatch/internal/event"
	"github.com/ppiankov/restockwatch/internal/privacy"
)

const doctorTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and provider credentials",
	Args:  cobra.NoArgs,
	RunE:  doctorAction,
}

// checkAWSCredentials resolves the default AWS credential chain.
var checkAWSCredentials = func(ctx context.Context, region string) (string, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", err
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return "", err
	}
	return creds.Source, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printInfo(w, "config directory %s not found, using environment only", configDir)
	} else {
		printCheck(w, true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := loadConfig(configDir)
	if err != nil {
		printCheck(w, false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(w, true, "config (feed %s, notify %s, %d match workers)",
		cfg.Feed.Provider, cfg.Notify.Provider, cfg.Match.Workers)

	// Topic
	if topic, err := cfg.Topic(); err != nil {
		printCheck(w, false, "notification topic: %v", err)
		ok = false
	} else {
		printCheck(w, true, "notification topic %s", topic)
	}

	// Feed
	if _, err := newFeedFactory(cfg.Feed); err != nil {
		printCheck(w, false, "feed %s: %v", cfg.Feed.Provider, err)
		ok = false
	} else {
		printCheck(w, true, "feed %s (timeout %s)", cfg.Feed.Provider, cfg.Feed.Timeout.Duration)
	}

	// Publisher credentials
	switch cfg.Notify.Provider {
	case "sns":
		ctx, cancel := context.WithTimeout(commandContext(cmd), doctorTimeout)
		credSource, err := checkAWSCredentials(ctx, cfg.Notify.Region)
		cancel()
		if err != nil {
			printCheck(w, false, "aws credentials: %v", err)
			ok = false
		} else {
			printCheck(w, true, "aws credentials (%s)", credSource)
		}
	case "telegram":
		printCheck(w, true, "telegram bot token %s", privacy.Mask(cfg.Notify.Telegram.Token))
	}

	// Redaction
	if cfg.Privacy.Redact.Enabled {
		if redactor, err := privacy.Compile(cfg.Privacy.Redact.Patterns); err != nil {
			printCheck(w, false, "log redaction: %v", err)
			ok = false
		} else {
			printCheck(w, true, "log redaction (%d patterns)", redactor.Len())
		}
	}

	// Sample event
	eventPath := filepath.Join(configDir, config.DefaultEventFile)
	if raw, err := os.ReadFile(eventPath); err == nil {
		if _, err := event.Parse(raw); err != nil {
			printCheck(w, false, "%s: %v", eventPath, err)
			ok = false
		} else {
			printCheck(w, true, "%s", eventPath)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		printCheck(w, false, "%s: %v", eventPath, err)
		ok = false
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(w, "\nAll checks passed.")
	return nil
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[INFO] %s\n", fmt.Sprintf(format, args...))
}
