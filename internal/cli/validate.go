package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/restockwatch/internal/config"
	"github.com/ppiankov/restockwatch/internal/event"
)

var validateEvent string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an event payload without fetching or publishing",
	Args:  cobra.NoArgs,
	RunE:  validateAction,
}

func init() {
	validateCmd.Flags().StringVar(&validateEvent, "event", config.DefaultEventFile, "event payload JSON file")
	rootCmd.AddCommand(validateCmd)
}

func validateAction(cmd *cobra.Command, _ []string) error {
	raw, err := os.ReadFile(validateEvent)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	req, err := event.Parse(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: @%s, %d search terms, %d symbols\n",
		req.ScreenName, len(req.SearchTerms), len(req.SpecialUnicode))
	return nil
}
