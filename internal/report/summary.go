package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// NewTable returns a markdown table writer with left aligned cells.
func NewTable(w io.Writer, headers ...string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

func ratio(r domain.Ratio) string {
	return fmt.Sprintf("%.1f%% (%d/%d)", 100*r.Value, r.Numerator, r.Denominator)
}

// RenderSummary writes markdown tables summarizing b.
func RenderSummary(w io.Writer, b *Bundle) error {
	m := b.Metrics

	fmt.Fprintf(w, "## Run %s\n\n", b.RunID)
	fmt.Fprintf(w, "%d samples, %d courses\n\n", m.TotalSamples, m.TotalCourses)

	table := NewTable(w, "Metric", "Value")
	rows := [][]string{
		{"Overall agreement", ratio(m.OverallAgreementRate)},
		{"Noise removal efficiency", ratio(m.NoiseRemovalEfficiency)},
		{"Exploratory recall", ratio(m.ExploratoryRecall)},
		{"Conservative drop rate", ratio(m.ConservativeDropRate)},
		{"Cohen's kappa", fmt.Sprintf("%.3f", m.CohenKappa)},
		{"Score/verdict correlation", fmt.Sprintf("%.3f", m.ScoreVerdictCorrelation)},
		{"Judge tokens", fmt.Sprintf("%d ($%.4f)", m.TokenUsage.TotalTokens, m.TokenUsage.EstimatedCostUSD)},
	}
	for _, row := range rows {
		_ = table.Append(row)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render metrics: %w", err)
	}

	fmt.Fprintln(w, "\n### Confusion matrix")
	cm := m.ConfusionMatrix
	table = NewTable(w, "Judge \\ System", "DROP", "KEEP", "Total")
	_ = table.Append([]string{"FAIL", fmt.Sprint(cm.Matrix[0][0]), fmt.Sprint(cm.Matrix[0][1]), fmt.Sprint(cm.Totals.JudgeFail)})
	_ = table.Append([]string{"PASS", fmt.Sprint(cm.Matrix[1][0]), fmt.Sprint(cm.Matrix[1][1]), fmt.Sprint(cm.Totals.JudgePass)})
	_ = table.Append([]string{"Total", fmt.Sprint(cm.Totals.SystemDrop), fmt.Sprint(cm.Totals.SystemKeep), fmt.Sprint(m.TotalCourses)})
	if err := table.Render(); err != nil {
		return fmt.Errorf("render confusion matrix: %w", err)
	}

	fmt.Fprintln(w, "\n### Score calibration")
	table = NewTable(w, "Score", "Courses", "Judge PASS", "Judge FAIL", "Pass rate")
	for _, s := range m.ScoreVerdictBreakdown {
		_ = table.Append([]string{
			fmt.Sprint(s.Score), fmt.Sprint(s.Total), fmt.Sprint(s.JudgePass), fmt.Sprint(s.JudgeFail),
			fmt.Sprintf("%.1f%%", 100*s.PassRate),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render calibration: %w", err)
	}

	fmt.Fprintln(w, "\n### Threshold sweep")
	table = NewTable(w, "Threshold", "Kept", "Precision", "Recall", "F1")
	for _, th := range m.ThresholdSweep {
		_ = table.Append([]string{
			th.Label, fmt.Sprint(th.CoursesKept), ratio(th.Precision), ratio(th.Recall), fmt.Sprintf("%.3f", th.F1),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render threshold sweep: %w", err)
	}

	if d := b.Disagreements; d != nil {
		fmt.Fprintf(w, "\n### Disagreements: %s\n\n", ratio(d.DisagreementRate))
		table = NewTable(w, "Type", "Pattern", "Count")
		types := make([]string, 0, len(d.ByType))
		for at := range d.ByType {
			types = append(types, string(at))
		}
		sort.Strings(types)
		for _, at := range types {
			bucket := d.ByType[domain.AgreementType(at)]
			_ = table.Append([]string{at, "(all)", fmt.Sprint(bucket.Count)})
			for _, p := range bucket.CommonPatterns {
				_ = table.Append([]string{at, string(p.Pattern), fmt.Sprint(p.Count)})
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("render disagreements: %w", err)
		}
		fmt.Fprintf(w, "\n%s\n\n%s\n", d.Insights.SystemCharacter, d.Insights.Recommendation)
	}

	return nil
}
