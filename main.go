// Command duckdb-benchmark measures DuckDB join queries over TPC-H under
// different thread and memory settings and plots the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := LoadDotenv(); err != nil {
		Logger.Warnf("failed to load .env: %v", err)
	}
	if level, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := SetLogLevel(level); err != nil {
			Logger.Warnf("failed to parse log level %q: %v", level, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		Logger.Errorf("%v", err)
		Logger.Sync()
		os.Exit(1)
	}
	Logger.Sync()
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "duckdb-benchmark",
		Short: "DuckDB join benchmark over TPC-H",
		Long: `duckdb-benchmark provisions a TPC-H database, runs join queries with
1, 2, 3, 5 and 10 joins under a sweep of DuckDB thread and memory settings,
appends timing statistics to a CSV file and renders charts from it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel == "" {
				return nil
			}
			return SetLogLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cfg := DefaultConfig()
	root.AddCommand(newSetupCmd(&cfg))
	root.AddCommand(newRunCmd(&cfg))
	root.AddCommand(newPlotCmd(&cfg))
	root.AddCommand(newReportCmd(&cfg))
	return root
}

func addDatasetFlags(cmd *cobra.Command, cfg *Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.Database, "db", cfg.Database,
		"DuckDB database file (default db_files/tpch_sf<sf>.duckdb)")
	flags.Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor,
		"TPC-H scale factor passed to dbgen")
}

func addResultsFlag(cmd *cobra.Command, cfg *Config) {
	cmd.Flags().StringVar(&cfg.Results, "results", cfg.Results,
		"Results CSV file (default results/results_sf<sf>.csv)")
}

func newSetupCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the TPC-H database file if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(); err != nil {
				return err
			}
			dataset := &DatasetTpch{ScaleFactor: cfg.ScaleFactor}
			queries, err := dataset.Load(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("setup %v: %w", dataset.Name(), err)
			}
			Logger.Infof("dataset %v ready at %v with %v queries", dataset.Name(), cfg.Database, len(queries))
			return nil
		},
	}
	addDatasetFlags(cmd, cfg)
	return cmd
}

func newRunCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the join queries under thread and memory sweeps",
		Long: `Each query is executed warmup+attempts times on one read-only
connection per setting; the warmup runs are discarded. One CSV row with mean,
sample standard deviation, median absolute deviation and the retained samples
is appended per (threads, memory, joins) cell.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(); err != nil {
				return err
			}
			var storage *Storage
			if cfg.ResultsDb != "" {
				var err error
				storage, err = OpenStorage(cfg.ResultsDb)
				if err != nil {
					return err
				}
				defer storage.Close()
			}
			system, err := NewSystem(*cfg, storage)
			if err != nil {
				return err
			}
			return system.Run(cmd.Context())
		},
	}

	addDatasetFlags(cmd, cfg)
	addResultsFlag(cmd, cfg)
	flags := cmd.Flags()
	flags.StringVar(&cfg.ResultsDb, "results-db", cfg.ResultsDb,
		"Also store measurements in a database: libsql://..., sqlite://path or duckdb://path")
	flags.IntVar(&cfg.Warmup, "warmup", cfg.Warmup,
		"Discarded executions per query")
	flags.IntVar(&cfg.Attempts, "attempts", cfg.Attempts,
		"Timed executions per query")
	flags.IntSliceVar(&cfg.Threads, "threads", cfg.Threads,
		"Thread counts to sweep (default powers of two up to the CPU count)")
	flags.StringSliceVar(&cfg.Memory, "memory", cfg.Memory,
		"Memory limits to sweep")
	flags.StringSliceVar(&cfg.Sweeps, "sweeps", cfg.Sweeps,
		"Sweeps to run: threads, memory, grid")
	flags.IntSliceVar(&cfg.Joins, "joins", cfg.Joins,
		"Only run queries with these join counts")
	flags.BoolVar(&cfg.ClearCaches, "clear-caches", cfg.ClearCaches,
		"Drop OS page caches before each timed execution (needs sudo)")
	flags.BoolVar(&cfg.ContinueOnError, "continue-on-error", cfg.ContinueOnError,
		"Log failed cells and keep going")
	return cmd
}

func newPlotCmd(cfg *Config) *cobra.Command {
	var (
		outDir string
		format string
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render bar charts of the results by threads and by memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(); err != nil {
				return err
			}
			files, err := PlotResults(cfg.Results, outDir, format)
			if err != nil {
				return err
			}
			for _, file := range files {
				fmt.Fprintln(cmd.OutOrStdout(), file)
			}
			return nil
		},
	}
	addResultsFlag(cmd, cfg)
	cmd.Flags().Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor,
		"TPC-H scale factor used to pick the default results file")
	cmd.Flags().StringVar(&outDir, "out-dir", StringEnv("BENCHMARK_PLOTS", "plots"),
		"Directory for rendered charts")
	cmd.Flags().StringVar(&format, "format", "png",
		"Image format: png, svg, pdf")
	return cmd
}

func newReportCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a markdown summary of the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(); err != nil {
				return err
			}
			results, err := ReadResults(cfg.Results)
			if err != nil {
				return fmt.Errorf("failed to read results: %w", err)
			}
			return GenerateReport(cmd.OutOrStdout(), results)
		},
	}
	addResultsFlag(cmd, cfg)
	cmd.Flags().Float64Var(&cfg.ScaleFactor, "scale-factor", cfg.ScaleFactor,
		"TPC-H scale factor used to pick the default results file")
	return cmd
}
