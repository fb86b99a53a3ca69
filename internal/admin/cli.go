// Package admin implements the campsift-admin command line tool. It
// drives the daemon's maintenance jobs over HTTP, paging each job to
// completion, and exposes read-only views of stats and source quality.
package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/okian/campsift/internal/jobs"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagURL       string
	flagTimeout   time.Duration
	flagDryRun    bool
	flagBatchSize int
	flagCursor    string
	flagJSON      bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campsift-admin",
		Short: "Operate a running campsift daemon",
		Long: `Administrative tool for the campsift listing engine.
Runs maintenance jobs (duplicate merging, cross-source scanning, data
quality checks) against a running daemon and inspects its state.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagURL, "url", "http://localhost:8080", "Base URL of the daemon")
	cmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Per-request timeout")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit raw JSON instead of text")

	cmd.AddCommand(
		newJobCmd("dedupe", "Merge exact duplicate sessions within each source"),
		newJobCmd("cross-source-scan", "Flag probable duplicate sessions across sources"),
		newJobCmd("quality-check", "Recompute source quality scores and raise alerts"),
		newStatsCmd(),
		newQualityCmd(),
	)

	return cmd
}

// newJobCmd builds one maintenance job subcommand. All three jobs share
// the same paging loop and flags.
func newJobCmd(job, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   job,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, job)
		},
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", true, "Report what would change without writing")
	cmd.Flags().IntVar(&flagBatchSize, "batch-size", 100, "Rows scanned per page")
	cmd.Flags().StringVar(&flagCursor, "cursor", "", "Resume from a previous run's cursor")

	return cmd
}

// runJob pages one job to completion, printing a line per page.
func runJob(cmd *cobra.Command, job string) error {
	client := NewClient(flagURL, flagTimeout)
	ctx := cmd.Context()

	var (
		totalScanned  int
		totalAffected int
		rowErrors     int
	)

	cursor := flagCursor
	for {
		report, err := client.RunJob(ctx, job, jobs.Options{
			DryRun:    flagDryRun,
			BatchSize: flagBatchSize,
			Cursor:    cursor,
		})
		if err != nil {
			return fmt.Errorf("running %s: %w", job, err)
		}

		totalScanned += report.Scanned
		totalAffected += report.Affected
		rowErrors += len(report.Errors)

		if flagJSON {
			if err := json.NewEncoder(cmd.OutOrStdout()).Encode(report); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: scanned=%d affected=%d errors=%d\n",
				report.Job, report.Scanned, report.Affected, len(report.Errors))
			for _, re := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  row %s: %s\n", re.ID, re.Message)
			}
		}

		if report.NextCursor == "" {
			break
		}
		cursor = report.NextCursor
	}

	if !flagJSON {
		mode := "applied"
		if flagDryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "done (%s): scanned=%d affected=%d errors=%d\n",
			mode, totalScanned, totalAffected, rowErrors)
	}
	if rowErrors > 0 {
		return fmt.Errorf("%s finished with %d row errors", job, rowErrors)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the daemon's stats snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(flagURL, flagTimeout)
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching stats: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newQualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality <source-id>",
		Short: "Show one source's quality report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(flagURL, flagTimeout)
			report, err := client.Quality(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching quality report: %w", err)
			}

			if flagJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:  %s (%s)\n", report.SourceID, report.Name)
			fmt.Fprintf(out, "quality: %d (%s)\n", report.DataQualityScore, report.Tier)
			fmt.Fprintf(out, "scraper: runs=%d failures=%d success_rate=%.2f\n",
				report.Health.TotalRuns, report.Health.ConsecutiveFailures, report.Health.SuccessRate)
			if len(report.Alerts) == 0 {
				fmt.Fprintln(out, "alerts:  none")
				return nil
			}
			fmt.Fprintf(out, "alerts:  %d open\n", len(report.Alerts))
			for _, a := range report.Alerts {
				fmt.Fprintf(out, "  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
			}
			return nil
		},
	}
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
