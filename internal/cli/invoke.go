package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/restockwatch/internal/config"
)

var invokeEvent string

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run the handler once against a local event file",
	Args:  cobra.NoArgs,
	RunE:  invokeAction,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeEvent, "event", config.DefaultEventFile, "event payload JSON file")
	rootCmd.AddCommand(invokeCmd)
}

func invokeAction(cmd *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(invokeEvent)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = logger.With().Str("invocation_id", uuid.NewString()).Logger()

	h, err := buildHandler(cfg)
	if err != nil {
		return err
	}

	outcome, err := h.Handle(logger.WithContext(commandContext(cmd)), raw)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// loadConfig reads config.yaml from dir when present and falls back to the
// environment otherwise.
func loadConfig(dir string) (*config.Config, error) {
	if _, err := os.Stat(filepath.Join(dir, config.DefaultConfigFile)); errors.Is(err, fs.ErrNotExist) {
		return config.FromEnv()
	}
	return config.Load(dir)
}
