package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
)

var (
	flagDBPath   string
	flagLogLevel string
	flagProvider string
	flagModel    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Ask questions about your banking data in plain English",
	Long: `askdb turns natural-language questions into SQL, checks that the generated
query is read-only, runs it against a local DuckDB banking database, and
renders the result with a suggested chart.

The database connection used for queries is opened read-only, so even a
query that slips past validation cannot modify data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.LoadConfigWithOverrides(map[string]interface{}{
			"db-path":   flagDBPath,
			"log-level": flagLogLevel,
			"provider":  flagProvider,
			"model":     flagModel,
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
		}

		cfg.ExpandAllPaths()

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			logging.SetupFallbackLogger()
			logging.GetLogger().WithError(err).Warn("falling back to basic logging")
		}

		return nil
	},
}

// Execute runs the root command. Errors are printed here, with their
// suggestions, because SilenceErrors keeps cobra quiet.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		printError(err)
	}

	return err
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))

	var structured *errors.Error
	if stderrors.As(err, &structured) {
		for _, s := range structured.Suggestions {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", s)
		}
	}
}

// userMessage strips the machine-readable type prefix for display
func userMessage(err error) string {
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		if structured.Cause != nil {
			return fmt.Sprintf("%s: %v", structured.Message, structured.Cause)
		}

		return structured.Message
	}

	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the DuckDB database file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "Model provider: groq, openai, ollama")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model name to use for SQL generation")
}
