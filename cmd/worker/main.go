package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/config"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/logging"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "eval-worker",
	Short: "Evaluate the course relevance filter against an LLM judge",
	Long: `eval-worker judges every course the relevance filter scored, compares the
judge verdict with the filter decision and writes agreement reports.

Examples:
  # Evaluate a test set, resuming from cached verdicts
  eval-worker run testset.json

  # Rebuild the reports of a stored run
  eval-worker report reports/<run-id>

  # List cached verdicts of one query log
  eval-worker progress --query-log-id <query-log-id>

  # Show a run stored in Postgres
  eval-worker status <run-id>

  # Print the cache key of one course
  eval-worker fingerprint <query-log-id> <question> <subject-code>
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		cmd.SetContext(logging.Setup(cmd.Context(), os.Stderr, cfg.Log.Level, cfg.Log.Format))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newFingerprintCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newStatusCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		clog.FromContext(ctx).Errorf("eval-worker: %v", err)
		cancel()
		os.Exit(1)
	}
}
