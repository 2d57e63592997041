package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type reportFlags struct {
	runID     string
	outputDir string
	fromDB    bool
}

func newReportCmd() *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report <records.json | run-dir | run-id>",
		Short: "Rebuild the reports from stored sample records",
		Long: `report recomputes metrics, disagreement and exploratory-delta reports from
previously stored sample records without calling the judge. The source is a
records.json file, a run directory, or with --from-db a run id in Postgres.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rebuildReports(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.runID, "run-id", "", "Run id of the rebuilt reports (default: taken from the source)")
	cmd.Flags().StringVar(&flags.outputDir, "output", "", "Report directory (default: REPORT_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&flags.fromDB, "from-db", false, "Read records of the given run id from Postgres")

	return cmd
}

func rebuildReports(cmd *cobra.Command, source string, flags reportFlags) error {
	ctx := cmd.Context()
	if flags.outputDir != "" {
		cfg.Report.OutputDir = flags.outputDir
	}

	rules, err := loadRules()
	if err != nil {
		return err
	}

	var db *storage.PostgresDB
	if flags.fromDB || cfg.Database.Enabled {
		db, err = storage.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	var records []domain.SampleEvaluationRecord
	runID := flags.runID
	if flags.fromDB {
		records, err = storage.NewRecordRepo(db).LoadRecords(ctx, source)
		if runID == "" {
			runID = source
		}
	} else {
		records, err = report.LoadRecords(source)
		if runID == "" {
			runID = runIDFromPath(source)
		}
	}
	if err != nil {
		return err
	}

	bundle := report.NewBuilder(rules).Build(runID, records)
	dir, err := report.NewDir(cfg.Report.OutputDir).Save(ctx, bundle)
	if err != nil {
		return err
	}
	if db != nil {
		if _, err := storage.NewReportRepo(db).Save(ctx, bundle); err != nil {
			return err
		}
	}

	if err := report.RenderSummary(cmd.OutOrStdout(), bundle); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nReports written to %s\n", dir)
	return nil
}

// runIDFromPath names rebuilt reports after the run directory they came
// from, or a fresh UUID for a loose records file.
func runIDFromPath(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return filepath.Base(filepath.Clean(path))
	}
	if filepath.Base(path) == report.RecordsFile {
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return uuid.NewString()
}
