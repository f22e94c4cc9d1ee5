package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/ppiankov/restockwatch/internal/config"
	"github.com/ppiankov/restockwatch/internal/handler"
	"github.com/ppiankov/restockwatch/internal/notify"
	"github.com/ppiankov/restockwatch/internal/source"
	"github.com/ppiankov/restockwatch/internal/tracing"
)

// Seams replaced in tests.
var (
	newFeedFactory      = source.NewFactory
	newPublisherFactory = notify.NewFactory
	startLambda         = func(h any) { lambda.Start(h) }
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve invocations from the AWS Lambda runtime",
	Long:  "Starts the Lambda handler loop. Configuration comes from the environment only.",
	Args:  cobra.NoArgs,
	RunE:  lambdaAction,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func lambdaAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	tp, err := tracing.Init(ctx, cfg.Tracing, serviceName, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	h, err := buildHandler(cfg)
	if err != nil {
		return err
	}

	logger.Info().
		Str("feed", cfg.Feed.Provider).
		Str("notify", cfg.Notify.Provider).
		Bool("tracing", tp.Enabled()).
		Msg("lambda handler starting")

	startLambda(h.LambdaHandler(logger, tp.Flush))
	return nil
}

func buildHandler(cfg *config.Config) (*handler.Handler, error) {
	feeds, err := newFeedFactory(cfg.Feed)
	if err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}
	publishers, err := newPublisherFactory(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	return handler.New(cfg, feeds, publishers)
}
