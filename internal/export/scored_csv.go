package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
)

// ScoreColumns are appended to the input header
var ScoreColumns = []string{
	"Score",
	"OpportunityScore",
	"RiskScore",
	"ConfidenceScore",
	"ConfidenceLabel",
	"Regime",
	"Radar Vector",
	"ScoreError",
}

// Table is the raw input needed to rewrite the watchlist
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int // CSV line of each row
}

// ScoredCSVWriter writes the input rows plus score columns
// ⭐ SSOT: 출력 CSV 포맷은 여기서만
type ScoredCSVWriter struct {
	logger *logger.Logger
}

// NewScoredCSVWriter creates a new writer
func NewScoredCSVWriter(log *logger.Logger) *ScoredCSVWriter {
	return &ScoredCSVWriter{logger: log.WithField("component", "export")}
}

// Build returns header + rows in input order.
// Rejected rows stay in the output with empty scores and a ScoreError.
// Score columns already in the input (a re-scored export) are overwritten in
// place; cells beyond the input header width follow the score columns.
func Build(table Table, assets []contracts.ScoredAsset, rejected []contracts.RejectedRow) [][]string {
	byLine := make(map[int]*contracts.ScoredAsset, len(assets))
	for i := range assets {
		byLine[assets[i].Record.Line] = &assets[i]
	}
	reasons := make(map[int]string, len(rejected))
	for _, r := range rejected {
		reasons[r.Line] = r.Reason
	}

	inputWidth := len(table.Header)
	header := append([]string{}, table.Header...)

	// 기존 점수 열은 재사용, 없으면 뒤에 추가
	scoreIdx := make([]int, len(ScoreColumns))
	for k, col := range ScoreColumns {
		scoreIdx[k] = columnIndex(table.Header, col)
		if scoreIdx[k] < 0 {
			scoreIdx[k] = len(header)
			header = append(header, col)
		}
	}
	scoredWidth := len(header)

	overflow := 0
	for _, row := range table.Rows {
		overflow = max(overflow, len(row)-inputWidth)
	}
	width := scoredWidth + overflow
	header = append(header, make([]string, overflow)...)

	out := make([][]string, 0, len(table.Rows)+1)
	out = append(out, header)

	for i, row := range table.Rows {
		// 짧은 행은 헤더 폭까지 채움, 넘치는 셀은 점수 열 뒤로
		cells := make([]string, width)
		copy(cells, row[:min(len(row), inputWidth)])
		if len(row) > inputWidth {
			copy(cells[scoredWidth:], row[inputWidth:])
		}

		line := 0
		if i < len(table.Lines) {
			line = table.Lines[i]
		}

		values := make([]string, len(ScoreColumns))
		if asset, ok := byLine[line]; ok {
			values = scoreCells(asset.Result)
		} else {
			reason := reasons[line]
			if reason == "" {
				reason = "not scored"
			}
			values[len(values)-1] = reason
		}
		for k, idx := range scoreIdx {
			cells[idx] = values[k]
		}
		out = append(out, cells)
	}
	return out
}

// columnIndex finds a header cell (trimmed, case-insensitive, BOM stripped)
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
			return i
		}
	}
	return -1
}

func scoreCells(r contracts.ScoreResult) []string {
	return []string{
		formatScore(r.Score),
		formatScore(r.OpportunityScore),
		formatScore(r.RiskScore),
		formatScore(r.ConfidenceScore),
		string(r.ConfidenceLabel),
		string(r.Regime),
		r.Radar.JSON(),
		"",
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Write builds the output and replaces path atomically
func (w *ScoredCSVWriter) Write(path string, table Table, assets []contracts.ScoredAsset, rejected []contracts.RejectedRow) error {
	records := Build(table, assets, rejected)

	if err := WriteAtomic(path, records); err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"path":     path,
		"rows":     len(records) - 1,
		"scored":   len(assets),
		"rejected": len(rejected),
	}).Info("Scored CSV written")
	return nil
}

// WriteAtomic writes records to a temp file in the target directory and renames it
func WriteAtomic(path string, records [][]string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(records); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	})
}

// writeFileAtomic: temp file + fsync + rename. The file keeps the mode of the
// file it replaces, 0644 for a new one.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(FileMode(path)); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// FileMode returns the permission bits of an existing file, 0644 otherwise
func FileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}
