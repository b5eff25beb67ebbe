package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/execute"
	"github.com/askdb/askdb/internal/formatter"
	"github.com/askdb/askdb/internal/generate"
	"github.com/askdb/askdb/internal/oracle"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/prompt"
	"github.com/askdb/askdb/internal/storage"
	"github.com/askdb/askdb/internal/viz"
)

var (
	askCSV      bool
	askExamples bool
	askShowSQL  bool
	askMaxRows  int
)

// sampleQuestions are shown by --examples to help users get started
var sampleQuestions = []string{
	"Show me total deposits last month",
	"What is the average account balance by account type?",
	"Find customers with balance over $50,000",
	"Show me top 10 customers by total transactions",
	"What are the most common transaction categories?",
	"Show loan distribution by type",
	"Find accounts with suspicious activity patterns",
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the banking data",
	Long: `Translate a natural-language question into a SQL query, validate that the
query is read-only, run it, and display the result.

Examples:
  askdb ask "What is the average account balance by account type?"
  askdb ask --sql "Show loan distribution by type"
  askdb ask --csv "Find customers with balance over $50,000"
  askdb ask --examples`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askExamples {
			return nil
		}

		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askCSV, "csv", false, "Export the result to a CSV file")
	askCmd.Flags().BoolVar(&askExamples, "examples", false, "Print example questions and exit")
	askCmd.Flags().BoolVar(&askShowSQL, "sql", false, "Print the generated SQL before the result")
	askCmd.Flags().IntVar(&askMaxRows, "max-rows", 0, "Maximum rows to return (overrides configuration)")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if askExamples {
		fmt.Fprintln(out, "Example questions:")

		for _, q := range sampleQuestions {
			fmt.Fprintf(out, "  askdb ask %q\n", q)
		}

		return nil
	}

	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	db, err := storage.OpenReadOnly(cfg.Database.Path)
	if err != nil {
		return err
	}

	defer db.Close()

	client := oracle.NewClient(oracle.Config{}, cfg.Oracle.TimeoutDuration())

	err = client.Configure(oracle.Config{
		Provider: cfg.Oracle.Provider,
		Model:    cfg.Oracle.Model,
		APIKey:   cfg.Oracle.APIKey,
		BaseURL:  cfg.Oracle.BaseURL,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "invalid model provider configuration").
			WithSuggestion("Set ASKDB_ORACLE_API_KEY, or use --provider ollama for a local model")
	}

	composer := prompt.NewComposer(cfg.Oracle.Temperature, cfg.Oracle.MaxTokens)
	generator := generate.NewGenerator(client, composer, cfg.Oracle.MaxAttempts)
	executor := execute.NewExecutor(db)
	selector := viz.NewSelector(cfg.Display.ChartRowLimit)

	maxRows := cfg.Database.MaxRows
	if askMaxRows > 0 {
		maxRows = askMaxRows
	}

	p := pipeline.New(db, generator, executor, selector, execute.Limits{
		MaxRows: maxRows,
		Timeout: cfg.Database.QueryTimeoutDuration(),
	})

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(cmd.ErrOrStderr()))
	spin.Suffix = " thinking..."
	spin.Start()

	outcome := p.Run(cmd.Context(), question)

	spin.Stop()

	if askShowSQL && outcome.GeneratedSQL != "" {
		fmt.Fprintf(out, "SQL: %s\n\n", outcome.GeneratedSQL)
	}

	if outcome.Failed() {
		return outcome.Err
	}

	f := formatter.NewFormatter()
	fmt.Fprint(out, f.FormatResult(outcome.Result, outcome.Chart))

	if askCSV {
		path, err := f.ExportCSV(outcome.Result, cfg.Display.ExportDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "exported: %s\n", path)
	}

	return nil
}
