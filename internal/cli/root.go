// Package cli provides the command-line interface for restockwatch.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const (
	serviceName   = "restockwatch"
	envLambdaAPI  = "AWS_LAMBDA_RUNTIME_API"
	dotEnvFile    = ".env"
	defaultCfgDir = ".restockwatch"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "restockwatch",
	Short: "Watch a social feed for restock posts and notify",
	Long: "restockwatch fetches a user's recent posts, keeps those matching search terms and unicode symbols, " +
		"and publishes the matches as one notification. It runs as an AWS Lambda handler or locally.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadDotEnv(configDir)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "restockwatch %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", defaultCfgDir, "config directory")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Inside the Lambda runtime a bare
// invocation starts the handler loop.
func Execute() error {
	if os.Getenv(envLambdaAPI) != "" && len(os.Args) == 1 {
		rootCmd.SetArgs([]string{lambdaCmd.Name()})
	}
	return rootCmd.Execute()
}

// loadDotEnv loads .env from dir, then from the working directory.
// Variables already set in the environment win.
func loadDotEnv(dir string) error {
	for _, path := range []string{filepath.Join(dir, dotEnvFile), dotEnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
