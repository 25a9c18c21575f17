package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s3_scoring"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

// printHeader prints a titled block header
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// printKeyValue prints key-value pairs
func printKeyValue(w io.Writer, key string, value interface{}) {
	fmt.Fprintf(w, "  %-12s : %v\n", key, value)
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// printTable prints left-aligned columns with a separator under the header
func printTable(w io.Writer, columns []string, widths []int, rows [][]string) {
	printRow(w, columns, widths)
	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
	for _, row := range rows {
		printRow(w, row, widths)
	}
}

func printRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// printRunSummary prints the run outcome and the top assets
func printRunSummary(w io.Writer, summary *contracts.RunSummary, assets []contracts.ScoredAsset, top int) {
	printHeader(w, "Scan "+summary.RunDate.Format(contracts.DateLayout))
	printKeyValue(w, "Run ID", summary.RunID)
	printKeyValue(w, "Config", shortHash(summary.ConfigHash))
	printKeyValue(w, "Loaded", summary.Loaded)
	printKeyValue(w, "Rejected", summary.Rejected)
	printKeyValue(w, "Scored", summary.Scored)
	printKeyValue(w, "Snapshot", fmt.Sprintf("+%d (skipped %d)", summary.SnapshotAppended, summary.SnapshotSkipped))
	printKeyValue(w, "Confidence", fmt.Sprintf("HIGH %d / MED %d / LOW %d",
		summary.Labels[contracts.ConfidenceHigh], summary.Labels[contracts.ConfidenceMed], summary.Labels[contracts.ConfidenceLow]))
	printKeyValue(w, "Duration", summary.Duration().Round(time.Millisecond))
	fmt.Fprintln(w, singleLine)

	if top <= 0 {
		top = len(assets)
	}
	ranked := s3_scoring.TopN(assets, top)

	rows := make([][]string, 0, len(ranked))
	for i, a := range ranked {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			a.Record.Identifier,
			fmt.Sprintf("%.2f", a.Result.Score),
			fmt.Sprintf("%.1f", a.Result.OpportunityScore),
			fmt.Sprintf("%.1f", a.Result.RiskScore),
			string(a.Result.ConfidenceLabel),
			string(a.Result.Regime),
		})
	}
	printTable(w, []string{"#", "Identifier", "Score", "Opp", "Risk", "Conf", "Regime"}, []int{3, 14, 7, 6, 6, 5, 8}, rows)
}

// printCalibration prints an S6 report
func printCalibration(w io.Writer, r *contracts.CalibrationReport) {
	printHeader(w, "Calibration "+r.AsOf.Format(contracts.DateLayout))
	printKeyValue(w, "Window", fmt.Sprintf("%s ~ %s", r.From.Format(contracts.DateLayout), r.AsOf.Format(contracts.DateLayout)))
	printKeyValue(w, "Horizon", fmt.Sprintf("%d trading days", r.HorizonDays))
	printKeyValue(w, "Rows", r.WindowRows)
	printKeyValue(w, "Samples", r.SampleSize)
	printKeyValue(w, "Excluded", fmt.Sprintf("no return %d, bad radar %d", r.Excluded.NoForwardReturn, r.Excluded.MalformedRadar))

	if r.SampleSize == 0 {
		fmt.Fprintln(w, singleLine)
		printWarning(w, "No valid forward-return matches in window")
		return
	}

	printKeyValue(w, "Hit rate", fmt.Sprintf("%.1f%%", r.HitRate*100))
	fmt.Fprintln(w, singleLine)

	names := make([]string, 0, len(r.Correlations))
	for name := range r.Correlations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printKeyValue(w, name, fmt.Sprintf("%+.3f", r.Correlations[name]))
	}

	if len(r.Quintiles) > 0 {
		fmt.Fprintln(w, singleLine)
		rows := make([][]string, 0, len(r.Quintiles))
		for _, q := range r.Quintiles {
			rows = append(rows, []string{
				fmt.Sprintf("Q%d", q.Quintile),
				fmt.Sprintf("%d", q.Count),
				fmt.Sprintf("%.1f~%.1f", q.MinScore, q.MaxScore),
				fmt.Sprintf("%+.2f%%", q.MeanReturn*100),
			})
		}
		printTable(w, []string{"Q", "N", "Score", "Mean ret"}, []int{3, 5, 13, 9}, rows)
	}

	if r.TopThreshold != nil {
		fmt.Fprintln(w, singleLine)
		printKeyValue(w, "Top cutoff", fmt.Sprintf("%.2f (top %.0f%%, %d candidates on %s)",
			r.TopThreshold.Threshold, r.TopThreshold.TopFraction*100, r.TopThreshold.Candidates,
			r.TopThreshold.Date.Format(contracts.DateLayout)))
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, singleLine)
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "   • %s\n", rec)
		}
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// parseDate parses YYYY-MM-DD; empty means today
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return contracts.TruncateDay(time.Now()), nil
	}
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
