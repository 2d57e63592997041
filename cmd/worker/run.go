package main

import (
	"context"
	"fmt"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/disagreement"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/evaluator"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/llm"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/progress"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/storage"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/testset"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/transform"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/worker"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runFlags struct {
	runID       string
	concurrency int
	failFast    bool
	provider    string
	model       string
	outputDir   string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <test-set.json>",
		Short: "Judge a test set and write the agreement reports",
		Long: `run loads the test set, merges each question's courses, asks the judge about
every course that has no cached verdict and writes metrics, disagreement and
exploratory-delta reports. Re-running with the same progress store only judges
courses that were not finished before.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.runID, "run-id", "", "Run id (default: random UUID)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Samples judged in parallel (default: EVAL_CONCURRENCY)")
	cmd.Flags().BoolVar(&flags.failFast, "fail-fast", false, "Stop at the first failed sample")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "LLM provider (default: LLM_DEFAULT_PROVIDER)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Judge model (default: LLM_JUDGE_MODEL)")
	cmd.Flags().StringVar(&flags.outputDir, "output", "", "Report directory (default: REPORT_OUTPUT_DIR)")

	return cmd
}

func runEvaluation(cmd *cobra.Command, testSetPath string, flags runFlags) error {
	ctx := cmd.Context()
	applyRunFlags(flags)

	rules, err := loadRules()
	if err != nil {
		return err
	}

	records, err := testset.Load(ctx, testSetPath)
	if err != nil {
		return err
	}
	samples := transform.NewTransformer().Transform(records)

	store, err := progress.Open(ctx, &cfg.Progress, &cfg.Redis)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := llm.NewClient(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	judge := evaluator.NewLLMJudge(client, cfg.LLM.JudgeModel)

	opts := worker.DefaultOptions()
	opts.RunID = flags.runID
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	opts.Concurrency = cfg.Runner.Concurrency
	opts.FailFast = cfg.Runner.FailFast
	opts.Retry = worker.RetryConfigFrom(&cfg.Runner)

	log := clog.FromContext(ctx).With("run_id", opts.RunID)
	log.Infof("Judging %d samples with provider %s", len(samples), client.DefaultProvider())

	var db *storage.PostgresDB
	var recordRepo *storage.RecordRepo
	if cfg.Database.Enabled {
		db, err = storage.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		recordRepo = storage.NewRecordRepo(db)
		if err := recordRepo.CreateRun(ctx, opts.RunID); err != nil {
			return err
		}
		opts.Sink = recordRepo
	}

	res, runErr := worker.NewRunner(judge, store, opts).Run(ctx, samples)
	judge.Usage().LogUsageSummary(ctx)

	// The run may have been interrupted; what finished is still written.
	saveCtx := context.WithoutCancel(ctx)
	if recordRepo != nil {
		if err := recordRepo.FinishRun(saveCtx, res, runErr); err != nil {
			log.Errorf("Failed to finish run: %v", err)
		}
	}

	bundle := report.NewBuilder(rules).Build(res.RunID, res.Records)
	dir, err := report.NewDir(cfg.Report.OutputDir).Save(saveCtx, bundle)
	if err != nil {
		return err
	}
	if db != nil {
		if _, err := storage.NewReportRepo(db).Save(saveCtx, bundle); err != nil {
			return err
		}
	}

	if err := report.RenderSummary(cmd.OutOrStdout(), bundle); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nReports written to %s\n", dir)

	if len(res.Failures) > 0 {
		log.Warnf("%d samples failed and are missing from the reports; re-run to retry them", len(res.Failures))
	}
	return runErr
}

func applyRunFlags(flags runFlags) {
	if flags.concurrency > 0 {
		cfg.Runner.Concurrency = flags.concurrency
	}
	if flags.failFast {
		cfg.Runner.FailFast = true
	}
	if flags.provider != "" {
		cfg.LLM.DefaultProvider = flags.provider
	}
	if flags.model != "" {
		cfg.LLM.JudgeModel = flags.model
	}
	if flags.outputDir != "" {
		cfg.Report.OutputDir = flags.outputDir
	}
}

func loadRules() ([]disagreement.Rule, error) {
	if cfg.Report.RulesFile == "" {
		return nil, nil
	}
	return disagreement.LoadRules(cfg.Report.RulesFile)
}
