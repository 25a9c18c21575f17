package s0_data

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
	"github.com/wonny/scanner/pkg/logger"
)

// ErrNoRecords is returned (with the partial result) when no row survived loading
var ErrNoRecords = errors.New("no valid records in input")

// LoadResult holds the loaded records plus everything needed to rewrite the input
type LoadResult struct {
	Header   []string
	Rows     [][]string // raw cells of every data row, input order
	Lines    []int      // CSV line of each raw row
	Records  []contracts.AssetRecord
	Rejected []contracts.RejectedRow

	// MissingColumns lists configured factor columns absent from the header
	MissingColumns []string
}

// Loader reads the watchlist CSV into AssetRecords (S0)
// ⭐ SSOT: CSV → AssetRecord 변환은 여기서만
type Loader struct {
	cfg    *scoringconfig.Config
	parser cellParser
	logger *logger.Logger
	asOf   func() time.Time
}

// NewLoader creates a new loader
func NewLoader(cfg *scoringconfig.Config, log *logger.Logger) *Loader {
	return &Loader{
		cfg:    cfg,
		parser: newCellParser(cfg.Input.MissingTokens),
		logger: log.WithStage(contracts.StageData.ShortName()),
		asOf:   time.Now,
	}
}

// WithAsOf fixes the record timestamp (run date)
func (l *Loader) WithAsOf(t time.Time) *Loader {
	l.asOf = func() time.Time { return t }
	return l
}

// Load reads path. Per-row problems reject that row only.
func (l *Loader) Load(ctx context.Context, path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input csv: %w", err)
	}
	return l.LoadReader(ctx, bytes.NewReader(data))
}

// LoadReader reads CSV from r
func (l *Loader) LoadReader(ctx context.Context, r io.Reader) (*LoadResult, error) {
	br := bufio.NewReader(r)
	firstLine, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("peek header: %w", err)
	}
	headerLine := string(firstLine)
	if i := strings.IndexByte(headerLine, '\n'); i >= 0 {
		headerLine = headerLine[:i]
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(headerLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("input csv is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	cols := newColumnIndex(header)
	if !cols.hasAny(l.cfg.Input.IdentifierColumns) {
		return nil, fmt.Errorf("input has none of the identifier columns %v", l.cfg.Input.IdentifierColumns)
	}

	result := &LoadResult{Header: header}
	for _, rule := range l.cfg.Factors {
		if rule.Column != "" && !cols.has(rule.Column) {
			result.MissingColumns = append(result.MissingColumns, rule.Column)
		}
	}
	if len(result.MissingColumns) > 0 {
		l.logger.WithField("columns", result.MissingColumns).Warn("Factor columns not found, treated as missing")
	}

	asOf := l.asOf()
	seen := make(map[string]int)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// 파싱 불가 행은 원본 보존 없이 거부
			line := 0
			var pErr *csv.ParseError
			if errors.As(err, &pErr) {
				line = pErr.StartLine
			}
			result.Rejected = append(result.Rejected, contracts.RejectedRow{Line: line, Reason: err.Error()})
			l.logger.WithFields(map[string]interface{}{"line": line, "error": err.Error()}).Warn("Unreadable CSV row")
			continue
		}
		if isBlankRow(row) {
			continue
		}
		line, _ := reader.FieldPos(0)

		result.Rows = append(result.Rows, row)
		result.Lines = append(result.Lines, line)

		rec, reason := l.parseRow(cols, row, line, asOf)
		if reason == "" {
			if first, dup := seen[rec.Identifier]; dup {
				reason = fmt.Sprintf("duplicate identifier (first seen on line %d)", first)
			} else {
				seen[rec.Identifier] = line
			}
		}
		if reason != "" {
			result.Rejected = append(result.Rejected, contracts.RejectedRow{
				Line:       line,
				Identifier: rec.Identifier,
				Reason:     reason,
			})
			l.logger.WithFields(map[string]interface{}{
				"line":       line,
				"identifier": rec.Identifier,
				"reason":     reason,
			}).Warn("Row rejected")
			continue
		}

		result.Records = append(result.Records, rec)
	}

	l.logger.WithFields(map[string]interface{}{
		"loaded":   len(result.Records),
		"rejected": len(result.Rejected),
	}).Info("Input loaded")

	if len(result.Records) == 0 {
		return result, ErrNoRecords
	}
	return result, nil
}

// parseRow builds one record; a non-empty reason rejects the row
func (l *Loader) parseRow(cols columnIndex, row []string, line int, asOf time.Time) (contracts.AssetRecord, string) {
	in := l.cfg.Input
	get := func(name string) string { return cols.get(row, name) }

	rec := contracts.AssetRecord{
		Line:       line,
		Identifier: l.firstText(cols, row, in.IdentifierColumns),
		Ticker:     l.firstText(cols, row, in.TickerColumns),
		Name:       l.parser.text(get(in.NameColumn)),
		Sector:     l.parser.text(get(in.SectorColumn)),
		Currency:   l.parser.text(get(in.CurrencyColumn)),
		Factors:    make(map[string]float64),
		AsOf:       asOf,
	}
	if cols.has("ISIN") {
		rec.ISIN = l.parser.text(get("ISIN"))
	}
	if rec.Identifier == "" {
		return rec, "missing identifier"
	}

	symbol := rec.Ticker
	if symbol == "" {
		symbol = rec.Identifier
	}
	rec.AssetClass = contracts.InferAssetClass(symbol, rec.Sector)

	// Close price: first parseable close column
	for _, c := range in.CloseColumns {
		v, ok, err := l.parser.float(get(c))
		if err != nil {
			return rec, fmt.Sprintf("column %q: %v", c, err)
		}
		if ok {
			if v > 0 {
				rec.Close = v
			}
			break
		}
	}

	// Market context (lenient: a bad cell only loses the hint)
	regimeCol, trendCol := in.RegimeColumns.Stock, in.TrendColumns.Stock
	if rec.AssetClass == contracts.AssetCrypto {
		regimeCol, trendCol = in.RegimeColumns.Crypto, in.TrendColumns.Crypto
	}
	rec.RegimeHint = l.parser.text(get(regimeCol))
	if v, ok, err := l.parser.float(get(trendCol)); err == nil && ok {
		rec.MarketTrend = &v
	}

	// Column-backed factors
	for _, rule := range l.cfg.Factors {
		if rule.Column == "" {
			continue
		}
		v, ok, err := l.parser.float(get(rule.Column))
		if err != nil {
			return rec, fmt.Sprintf("column %q: %v", rule.Column, err)
		}
		if !ok || !meetsRequire(v, rule.Require) {
			continue
		}
		rec.Factors[rule.Name] = v
	}

	// Derived factors
	rec.ElliottSignal = l.parser.text(get(in.ElliottSignalColumn))
	if _, want := l.cfg.Rule(scoringconfig.FactorElliottQuality); want {
		if q, ok := elliottQuality(rec.ElliottSignal); ok {
			rec.Factors[scoringconfig.FactorElliottQuality] = q
		}
	}
	if _, want := l.cfg.Rule(scoringconfig.FactorTargetDistance); want {
		target, ok, err := l.parser.float(get(in.ElliottTargetColumn))
		if err != nil {
			return rec, fmt.Sprintf("column %q: %v", in.ElliottTargetColumn, err)
		}
		if ok && rec.Close > 0 {
			rec.Factors[scoringconfig.FactorTargetDistance] = target/rec.Close - 1
		}
	}

	return rec, ""
}

func (l *Loader) firstText(cols columnIndex, row []string, names []string) string {
	for _, name := range names {
		if v := l.parser.text(cols.get(row, name)); v != "" {
			return v
		}
	}
	return ""
}

// elliottQuality maps the signal text: BUY → 1, SELL → 0, other → 0.5
func elliottQuality(signal string) (float64, bool) {
	s := strings.ToUpper(strings.TrimSpace(signal))
	switch {
	case s == "":
		return 0, false
	case strings.Contains(s, "BUY"):
		return 1, true
	case strings.Contains(s, "SELL"):
		return 0, true
	default:
		return 0.5, true
	}
}

func meetsRequire(v float64, require string) bool {
	switch require {
	case scoringconfig.RequirePositive:
		return v > 0
	case scoringconfig.RequireNonNegative:
		return v >= 0
	default:
		return true
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// columnIndex maps header names to positions
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func (c columnIndex) has(name string) bool {
	_, ok := c[name]
	return name != "" && ok
}

func (c columnIndex) hasAny(names []string) bool {
	for _, n := range names {
		if c.has(n) {
			return true
		}
	}
	return false
}

// get returns the cell or "" when the column or cell is absent
func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || name == "" || i >= len(row) {
		return ""
	}
	return row[i]
}
