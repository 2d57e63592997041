package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/progress"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

func newProgressCmd() *cobra.Command {
	var queryLogID string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "List the cached judge verdicts",
		Long: `progress prints every verdict in the progress store, the courses a re-run
will not send to the judge again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := progress.Open(ctx, &cfg.Progress, &cfg.Redis)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx)
			if err != nil {
				return err
			}
			return renderProgress(cmd.OutOrStdout(), entries, queryLogID)
		},
	}

	cmd.Flags().StringVar(&queryLogID, "query-log-id", "", "Only list courses of this query log")
	return cmd
}

func renderProgress(w io.Writer, entries []*progress.Entry, queryLogID string) error {
	table := report.NewTable(w, "Query log", "Course", "Verdict", "Score", "Agreement", "Judged at")
	n := 0
	for _, e := range entries {
		if queryLogID != "" && e.QueryLogID != queryLogID {
			continue
		}
		n++
		_ = table.Append([]string{
			e.QueryLogID, e.SubjectCode, string(e.Verdict.Verdict), fmt.Sprint(e.Outcome.SystemScore),
			string(e.Outcome.AgreementType), e.Timestamp.Format(time.RFC3339),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render progress: %w", err)
	}
	_, err := fmt.Fprintf(w, "\n%d cached verdicts\n", n)
	return err
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the bookkeeping of a run stored in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := storage.NewPostgresDB(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			run, err := storage.NewRecordRepo(db).GetRun(ctx, args[0])
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%s: %w", args[0], report.ErrRunNotFound)
			}
			if err != nil {
				return err
			}
			return renderRun(cmd.OutOrStdout(), run)
		},
	}
}

func renderRun(w io.Writer, run *storage.Run) error {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.RFC3339)
	}

	table := report.NewTable(w, "Field", "Value")
	rows := [][]string{
		{"Status", run.Status},
		{"Started", run.StartedAt.Format(time.RFC3339)},
		{"Finished", finished},
		{"Samples", fmt.Sprint(run.SampleCount)},
		{"Failed", fmt.Sprint(run.FailureCount)},
		{"Skipped", fmt.Sprint(run.SkippedCount)},
		{"Cached courses", fmt.Sprint(run.CachedCourses)},
		{"Judged courses", fmt.Sprint(run.JudgedCourses)},
		{"Judge tokens", fmt.Sprintf("%d ($%.4f)", run.TokenUsage.TotalTokens, run.TokenUsage.EstimatedCostUSD)},
	}
	for _, row := range rows {
		_ = table.Append(row)
	}

	fmt.Fprintf(w, "## Run %s\n\n", run.ID)
	if err := table.Render(); err != nil {
		return fmt.Errorf("render run: %w", err)
	}
	return nil
}
