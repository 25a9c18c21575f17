package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s1_winsorize"
)

// ScoreStats summarizes the score distribution of a run
type ScoreStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Health is the run health report
type Health struct {
	GeneratedAt time.Time                      `json:"generated_at"`
	Run         contracts.RunSummary           `json:"run"`
	Quality     *contracts.DataQualitySnapshot `json:"quality,omitempty"`
	Winsorize   []s1_winsorize.ColumnReport    `json:"winsorize,omitempty"`
	Rejected    []contracts.RejectedRow        `json:"rejected,omitempty"`
	Missing     []string                       `json:"missing_columns,omitempty"`
	Scores      ScoreStats                     `json:"scores"`
	Store       contracts.StoreStats           `json:"store"`
}

// BuildHealth collects the health report of a run
func BuildHealth(result *brain.RunResult, store contracts.StoreStats) *Health {
	h := &Health{
		GeneratedAt: time.Now(),
		Run:         result.Summary,
		Quality:     result.Quality,
		Scores:      ComputeScoreStats(result.Assets),
		Store:       store,
	}
	if result.Winsorize != nil {
		h.Winsorize = result.Winsorize.Columns
	}
	if result.Load != nil {
		h.Rejected = result.Load.Rejected
		h.Missing = result.Load.MissingColumns
	}
	return h
}

// ComputeScoreStats returns count/mean/std/min/median/max of scores
func ComputeScoreStats(assets []contracts.ScoredAsset) ScoreStats {
	if len(assets) == 0 {
		return ScoreStats{}
	}

	scores := make([]float64, len(assets))
	for i, a := range assets {
		scores[i] = a.Result.Score
	}
	sort.Float64s(scores)

	s := ScoreStats{
		Count:  len(scores),
		Mean:   stat.Mean(scores, nil),
		Min:    scores[0],
		Median: stat.Quantile(0.5, stat.Empirical, scores, nil),
		Max:    scores[len(scores)-1],
	}
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}
	return s
}

// WriteText renders the report for the terminal
func (h *Health) WriteText(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Scanner Health (%s) ===\n", h.Run.RunDate.Format(contracts.DateLayout))
	fmt.Fprintf(&b, "Run:        %s (config %s)\n", h.Run.RunID, shortHash(h.Run.ConfigHash))
	fmt.Fprintf(&b, "Rows:       %d loaded, %d rejected, %d scored\n", h.Run.Loaded, h.Run.Rejected, h.Run.Scored)
	fmt.Fprintf(&b, "Confidence: HIGH %d / MED %d / LOW %d\n",
		h.Run.Labels[contracts.ConfidenceHigh], h.Run.Labels[contracts.ConfidenceMed], h.Run.Labels[contracts.ConfidenceLow])
	fmt.Fprintf(&b, "Scores:     n=%d mean=%.1f std=%.1f min=%.1f median=%.1f max=%.1f\n",
		h.Scores.Count, h.Scores.Mean, h.Scores.StdDev, h.Scores.Min, h.Scores.Median, h.Scores.Max)

	if h.Quality != nil {
		status := "PASS"
		if !h.Quality.IsValid() {
			status = "WARN"
		}
		fmt.Fprintf(&b, "\n--- Coverage (quality %.2f, %s) ---\n", h.Quality.QualityScore, status)
		factors := make([]string, 0, len(h.Quality.Coverage))
		for f := range h.Quality.Coverage {
			factors = append(factors, f)
		}
		sort.Strings(factors)
		for _, f := range factors {
			fmt.Fprintf(&b, "  %-24s %5.1f%%\n", f, h.Quality.Coverage[f]*100)
		}
	}

	if len(h.Missing) > 0 {
		fmt.Fprintf(&b, "\nMissing columns: %s\n", strings.Join(h.Missing, ", "))
	}

	if len(h.Winsorize) > 0 {
		b.WriteString("\n--- Winsorize ---\n")
		for _, c := range h.Winsorize {
			if c.Skipped {
				fmt.Fprintf(&b, "  %-24s skipped (n=%d)\n", c.Factor, c.Sample)
				continue
			}
			fmt.Fprintf(&b, "  %-24s [%g, %g] low=%d high=%d (n=%d)\n",
				c.Factor, c.Bounds.Lower, c.Bounds.Upper, c.ClippedLow, c.ClippedHigh, c.Sample)
		}
	}

	if len(h.Rejected) > 0 {
		b.WriteString("\n--- Rejected rows ---\n")
		for _, r := range h.Rejected {
			fmt.Fprintf(&b, "  line %d %s: %s\n", r.Line, r.Identifier, r.Reason)
		}
	}

	b.WriteString("\n--- Snapshot store ---\n")
	fmt.Fprintf(&b, "  rows=%d identifiers=%d dates=%d with_forward_return=%d\n",
		h.Store.Rows, h.Store.Identifiers, h.Store.Dates, h.Store.WithForwardReturn)
	if h.Store.Rows > 0 {
		fmt.Fprintf(&b, "  range %s .. %s\n", h.Store.FirstDate.Format(contracts.DateLayout), h.Store.LastDate.Format(contracts.DateLayout))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
