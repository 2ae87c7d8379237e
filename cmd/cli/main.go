package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"rankstat/adapters/excel"
	"rankstat/adapters/memory"
	"rankstat/adapters/postgres"
	"rankstat/adapters/stats/nonparametric"
	"rankstat/app"
	"rankstat/domain/core"
	"rankstat/domain/stats"
	"rankstat/domain/submission"
	"rankstat/domain/table"
	"rankstat/internal"
	"rankstat/internal/executor"
	"rankstat/internal/formatter"
	"rankstat/internal/orchestrator"
	"rankstat/ports"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are shared by every command
type globalOptions struct {
	file        string
	sheet       string
	sqlitePath  string
	databaseURL string
	workers     int
	timeout     time.Duration
	jsonOutput  bool
	verbose     bool
}

func main() {
	loadEnv(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadEnv reads a .env file when one exists. Variables already set in the
// environment win.
func loadEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not read %s: %v\n", path, err)
	}
}

// newRootCmd builds the command tree; flag defaults come from the environment
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "rankstat-cli",
		Short: "Run nonparametric tests against a spreadsheet from the command line",
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.file, "file", "f", os.Getenv("EXCEL_FILE"), "Excel (.xlsx) or CSV file to read variables from")
	flags.StringVar(&opts.sheet, "sheet", os.Getenv("EXCEL_SHEET"), "Worksheet name (default: first sheet)")
	flags.StringVar(&opts.sqlitePath, "sqlite", os.Getenv("SQLITE_PATH"), "Persist results to this SQLite database")
	flags.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Persist results to this PostgreSQL database")
	flags.IntVar(&opts.workers, "workers", 4, "Worker pool size")
	flags.DurationVar(&opts.timeout, "timeout", time.Minute, "Submission timeout")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print tables as JSON instead of text")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVariablesCmd(opts),
		newPairedCmd(opts),
		newChiSquareCmd(opts),
		newStatisticsCmd(opts),
	)
	return rootCmd
}

func newVariablesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "variables",
		Short: "List the variables of the data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := loadProvider(opts)
			if err != nil {
				return err
			}
			refs, err := provider.ListVariables(cmd.Context())
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), refs)
			}
			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(prettytable.Row{"#", "Key", "Label", "Type", "Measure", "Decimals"})
			for _, ref := range refs {
				t.AppendRow(prettytable.Row{ref.Column + 1, ref.Key, ref.Label, ref.Type, ref.Measurement, ref.Decimals})
			}
			t.Render()
			return nil
		},
	}
}

func newPairedCmd(opts *globalOptions) *cobra.Command {
	var wilcoxon, sign, descriptives, quartiles bool

	cmd := &cobra.Command{
		Use:   "paired [first:second...]",
		Short: "Run Wilcoxon signed-rank and sign tests over variable pairs",
		Long: `Run two-related-samples tests over one or more variable pairs.

Example: rankstat-cli paired pre:post pre:followup --wilcoxon --sign --descriptives -f scores.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(args)
			if err != nil {
				return err
			}
			if !wilcoxon && !sign {
				wilcoxon = true
			}
			command := app.PairedCommand{
				Pairs:             pairs,
				TestType:          submission.TestType{Wilcoxon: wilcoxon, Sign: sign},
				DisplayStatistics: submission.DisplayStatistics{Descriptive: descriptives, Quartiles: quartiles},
			}
			return runSubmission(cmd, opts, func(ctx context.Context, svc *app.SubmissionService) (*orchestrator.Orchestrator, error) {
				return svc.SubmitPaired(ctx, command, nil)
			})
		},
	}

	cmd.Flags().BoolVar(&wilcoxon, "wilcoxon", false, "Run the Wilcoxon signed-rank test (default when no test is chosen)")
	cmd.Flags().BoolVar(&sign, "sign", false, "Run the sign test")
	cmd.Flags().BoolVar(&descriptives, "descriptives", false, "Include descriptive statistics")
	cmd.Flags().BoolVar(&quartiles, "quartiles", false, "Include quartiles")
	return cmd
}

func newChiSquareCmd(opts *globalOptions) *cobra.Command {
	var rangeFlag, expectedFlag string
	var descriptives, quartiles bool

	cmd := &cobra.Command{
		Use:   "chisquare [variable...]",
		Short: "Run chi-square goodness-of-fit tests",
		Long: `Run a chi-square goodness-of-fit test per variable.

Categories come from the data unless --range is given. Expected frequencies are
equal unless --expected lists relative weights, one per category.

Example: rankstat-cli chisquare grade --range 1,4 --expected 1,2,2,1 -f survey.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expectedRange, err := parseRange(rangeFlag)
			if err != nil {
				return err
			}
			expectedValues, err := parseExpected(expectedFlag)
			if err != nil {
				return err
			}
			command := app.ChiSquareCommand{
				Variables:         args,
				ExpectedRange:     expectedRange,
				ExpectedValue:     expectedValues,
				DisplayStatistics: submission.DisplayStatistics{Descriptive: descriptives, Quartiles: quartiles},
			}
			return runSubmission(cmd, opts, func(ctx context.Context, svc *app.SubmissionService) (*orchestrator.Orchestrator, error) {
				return svc.SubmitChiSquare(ctx, command, nil)
			})
		},
	}

	cmd.Flags().StringVar(&rangeFlag, "range", "", "Use integer categories lower,upper instead of the observed values")
	cmd.Flags().StringVar(&expectedFlag, "expected", "", "Comma-separated expected weights (default: all categories equal)")
	cmd.Flags().BoolVar(&descriptives, "descriptives", false, "Include descriptive statistics")
	cmd.Flags().BoolVar(&quartiles, "quartiles", false, "Include quartiles")
	return cmd
}

func newStatisticsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "statistics [analytic-id]",
		Short: "Print the tables persisted under an analytic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reader, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()
			if reader == nil {
				return fmt.Errorf("--sqlite or --database-url is required")
			}

			stored, err := reader.Statistics(cmd.Context(), core.AnalyticID(args[0]))
			if err != nil {
				return err
			}
			if len(stored) == 0 {
				return fmt.Errorf("no statistics stored under analytic %s", args[0])
			}

			outputs := make([]table.Output, 0, len(stored))
			for _, s := range stored {
				var payload struct {
					Tables []table.Table `json:"tables"`
				}
				if err := json.Unmarshal([]byte(s.OutputData), &payload); err != nil {
					return fmt.Errorf("statistic %s: %w", s.ID, err)
				}
				for _, t := range payload.Tables {
					outputs = append(outputs, table.Output{Component: table.Component(s.Components), Table: t})
				}
			}
			return printOutputs(cmd.OutOrStdout(), opts, outputs)
		},
	}
}

func runSubmission(cmd *cobra.Command, opts *globalOptions, submit func(context.Context, *app.SubmissionService) (*orchestrator.Orchestrator, error)) error {
	ctx := cmd.Context()
	logger := newLogger(opts)
	defer logger.Sync()

	provider, err := loadProvider(opts)
	if err != nil {
		return err
	}
	sink, _, closeStore, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	service := app.NewSubmissionService(app.ServiceDeps{
		Data:    provider,
		Catalog: provider,
		Sink:    sink,
		Runner:  executor.NewRunner(opts.workers, nonparametric.NewEngine().Compute, logger),
		Listener: ports.ListenerFuncs{
			Progress: func(p submission.Progress) {
				logger.Debug("progress %d/%d", p.Processed, p.Expected)
			},
		},
		Logger: logger,
	}, opts.timeout)

	orch, err := submit(ctx, service)
	if err != nil {
		return err
	}
	out, err := orch.Wait(ctx)
	if out.HasTables() {
		if printErr := printOutputs(cmd.OutOrStdout(), opts, out.Tables); printErr != nil {
			return printErr
		}
	}
	for _, jobErr := range out.JobErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", jobErr)
	}
	if out.Persisted != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "saved as analytic %s\n", out.Persisted.AnalyticID)
	}
	return err
}

func printOutputs(w io.Writer, opts *globalOptions, outputs []table.Output) error {
	if opts.jsonOutput {
		return writeJSON(w, outputs)
	}
	return formatter.Render(w, outputs)
}

func loadProvider(opts *globalOptions) (*memory.Provider, error) {
	if opts.file == "" {
		return nil, fmt.Errorf("--file is required")
	}
	cfg := excel.DefaultConfig()
	cfg.FilePath = opts.file
	cfg.Sheet = opts.sheet
	return excel.Load(cfg, newLogger(opts))
}

// openStore returns a nil sink when no database is configured
func openStore(ctx context.Context, opts *globalOptions) (ports.ResultSink, ports.ResultReader, func(), error) {
	driver, dsn := "", ""
	switch {
	case opts.databaseURL != "" && opts.sqlitePath != "":
		return nil, nil, nil, fmt.Errorf("--sqlite and --database-url are mutually exclusive")
	case opts.databaseURL != "":
		driver, dsn = "postgres", opts.databaseURL
	case opts.sqlitePath != "":
		driver, dsn = "sqlite3", opts.sqlitePath
	default:
		return nil, nil, func() {}, nil
	}

	db, err := postgres.Connect(ctx, driver, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	repo := postgres.NewResultRepository(db)
	return repo, repo, func() { db.Close() }, nil
}

func newLogger(opts *globalOptions) *internal.Logger {
	if opts.verbose {
		return internal.NewLogger(internal.LogLevelDebug)
	}
	return internal.NewLogger(internal.LogLevelWarn)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePairs splits "first:second" arguments
func parsePairs(args []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		first, second, ok := strings.Cut(arg, ":")
		if !ok || first == "" || second == "" {
			return nil, fmt.Errorf("invalid pair %q, expected first:second", arg)
		}
		pairs = append(pairs, [2]string{first, second})
	}
	return pairs, nil
}

// parseRange reads "lower,upper"; empty means categories come from the data
func parseRange(s string) (stats.ExpectedRange, error) {
	if s == "" {
		return stats.ExpectedRange{}, nil
	}
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return stats.ExpectedRange{}, fmt.Errorf("invalid range %q, expected lower,upper", s)
	}
	lower, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return stats.ExpectedRange{}, fmt.Errorf("invalid lower bound: %w", err)
	}
	upper, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return stats.ExpectedRange{}, fmt.Errorf("invalid upper bound: %w", err)
	}
	return stats.ExpectedRange{Specific: true, Lower: lower, Upper: upper}, nil
}

// parseExpected reads comma-separated weights; empty means all categories equal
func parseExpected(s string) (stats.ExpectedValues, error) {
	if s == "" {
		return stats.ExpectedValues{AllCategoriesEqual: true}, nil
	}
	parts := strings.Split(s, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return stats.ExpectedValues{}, fmt.Errorf("invalid expected value %q: %w", p, err)
		}
		values[i] = v
	}
	return stats.ExpectedValues{Values: values}, nil
}
