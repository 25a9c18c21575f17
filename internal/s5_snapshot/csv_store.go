package s5_snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/pkg/logger"
)

// csvHeader is the on-disk column order of the history file
var csvHeader = []string{
	"identifier", "date", "run_id", "config_hash", "ticker", "name", "sector",
	"asset_class", "regime", "close", "score", "opportunity_score", "risk_score",
	"confidence_score", "confidence_label", "radar_vector", "forward_return",
	"forward_horizon",
}

const (
	colIdentifier = iota
	colDate
	colRunID
	colConfigHash
	colTicker
	colName
	colSector
	colAssetClass
	colRegime
	colClose
	colScore
	colOpportunity
	colRisk
	colConfidence
	colLabel
	colRadar
	colForwardReturn
	colForwardHorizon
	numColumns
)

// legacyColumns is the width of history files written before forward_horizon existed
const legacyColumns = colForwardHorizon

// CSVStore keeps the snapshot history in one CSV file.
// Every write goes to a temp file in the same directory, is fsynced and renamed over the target.
type CSVStore struct {
	path   string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewCSVStore creates a CSV-backed store
func NewCSVStore(path string, log *logger.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: log.WithStage(contracts.StageSnapshot.ShortName()).WithField("store", "csv"),
	}
}

// Path returns the history file path
func (s *CSVStore) Path() string {
	return s.path
}

// historyFile is the raw file content; unparseable rows are kept verbatim
type historyFile struct {
	raw  [][]string
	rows []contracts.SnapshotRow
	pos  []int // rows[i] came from raw[pos[i]]
}

// Append adds rows whose (identifier, date) key is not yet stored
func (s *CSVStore) Append(ctx context.Context, rows []contracts.SnapshotRow) (contracts.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result contracts.AppendResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	hf, err := s.read()
	if err != nil {
		return result, err
	}

	existing := make(map[contracts.SnapshotKey]bool, len(hf.rows))
	for _, r := range hf.rows {
		existing[r.Key()] = true
	}

	for _, r := range rows {
		key := r.Key()
		if existing[key] {
			result.Skipped++
			continue
		}
		existing[key] = true
		hf.raw = append(hf.raw, encodeRow(r))
		result.Appended++
	}

	if result.Skipped > 0 {
		s.logger.WithField("skipped", result.Skipped).Warn("Snapshot keys already stored, rows skipped")
	}
	if result.Appended == 0 {
		return result, nil
	}

	if err := s.write(hf.raw); err != nil {
		return contracts.AppendResult{Skipped: result.Skipped}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"appended": result.Appended,
		"path":     s.path,
	}).Info("Snapshot appended")

	return result, nil
}

// Load returns parsed rows with from <= date <= to (zero bound = open)
func (s *CSVStore) Load(ctx context.Context, from, to time.Time) ([]contracts.SnapshotRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hf, err := s.read()
	if err != nil {
		return nil, err
	}
	return filterRange(hf.rows, from, to), nil
}

// BackfillForwardReturns fills forward_return cells that are empty or hold another
// horizon; only the forward_return and forward_horizon cells change
func (s *CSVStore) BackfillForwardReturns(ctx context.Context, horizon int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if horizon <= 0 {
		return 0, fmt.Errorf("horizon must be > 0, got %d", horizon)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	hf, err := s.read()
	if err != nil {
		return 0, err
	}

	returns := ForwardReturns(hf.rows, horizon)
	if len(returns) == 0 {
		return 0, nil
	}

	updated := 0
	for i, r := range hf.rows {
		fr, ok := returns[r.Key()]
		if !ok {
			continue
		}
		hf.raw[hf.pos[i]][colForwardReturn] = formatFloat(fr)
		hf.raw[hf.pos[i]][colForwardHorizon] = strconv.Itoa(horizon)
		updated++
	}

	if err := s.write(hf.raw); err != nil {
		return 0, err
	}

	s.logger.WithFields(map[string]interface{}{
		"updated": updated,
		"horizon": horizon,
	}).Info("Forward returns backfilled")

	return updated, nil
}

// Stats summarizes the history
func (s *CSVStore) Stats(ctx context.Context) (contracts.StoreStats, error) {
	rows, err := s.Load(ctx, time.Time{}, time.Time{})
	if err != nil {
		return contracts.StoreStats{}, err
	}
	return ComputeStats(rows), nil
}

// read loads the history file; a missing file is an empty history
func (s *CSVStore) read() (*historyFile, error) {
	hf := &historyFile{}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return hf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot history: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return hf, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if len(header) < legacyColumns || strings.TrimPrefix(header[0], "\ufeff") != csvHeader[0] {
		return nil, fmt.Errorf("snapshot history %s: unexpected header %v", s.path, header)
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot history: %w", err)
		}

		// 구버전 파일: forward_horizon 열 추가 (unknown)
		if len(rec) == legacyColumns {
			rec = append(rec, "")
		}
		hf.raw = append(hf.raw, rec)
		row, err := decodeRow(rec)
		if err != nil {
			line, _ := reader.FieldPos(0)
			s.logger.WithFields(map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			}).Warn("Unparseable snapshot row kept as is")
			continue
		}
		hf.rows = append(hf.rows, row)
		hf.pos = append(hf.pos, len(hf.raw)-1)
	}
	return hf, nil
}

// write replaces the history file atomically (temp + fsync + rename), keeping its mode
func (s *CSVStore) write(raw [][]string) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// 기존 파일 권한 유지 (CreateTemp 는 0600)
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(s.path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(csvHeader); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if err = w.WriteAll(raw); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot history: %w", err)
	}
	return nil
}

func encodeRow(r contracts.SnapshotRow) []string {
	rec := make([]string, numColumns)
	rec[colIdentifier] = r.Identifier
	rec[colDate] = r.Date.Format(contracts.DateLayout)
	rec[colRunID] = r.RunID
	rec[colConfigHash] = r.ConfigHash
	rec[colTicker] = r.Ticker
	rec[colName] = r.Name
	rec[colSector] = r.Sector
	rec[colAssetClass] = string(r.AssetClass)
	rec[colRegime] = string(r.Regime)
	rec[colClose] = formatFloat(r.Close)
	rec[colScore] = formatFloat(r.Score)
	rec[colOpportunity] = formatFloat(r.OpportunityScore)
	rec[colRisk] = formatFloat(r.RiskScore)
	rec[colConfidence] = formatFloat(r.ConfidenceScore)
	rec[colLabel] = string(r.ConfidenceLabel)
	rec[colRadar] = r.RadarVector
	if r.ForwardReturn != nil {
		rec[colForwardReturn] = formatFloat(*r.ForwardReturn)
		if r.ForwardHorizon > 0 {
			rec[colForwardHorizon] = strconv.Itoa(r.ForwardHorizon)
		}
	}
	return rec
}

func decodeRow(rec []string) (contracts.SnapshotRow, error) {
	var row contracts.SnapshotRow
	if len(rec) < numColumns {
		return row, fmt.Errorf("expected %d columns, got %d", numColumns, len(rec))
	}
	if rec[colIdentifier] == "" {
		return row, errors.New("empty identifier")
	}

	date, err := time.Parse(contracts.DateLayout, rec[colDate])
	if err != nil {
		return row, fmt.Errorf("date: %w", err)
	}

	row = contracts.SnapshotRow{
		Identifier:      rec[colIdentifier],
		Date:            date,
		RunID:           rec[colRunID],
		ConfigHash:      rec[colConfigHash],
		Ticker:          rec[colTicker],
		Name:            rec[colName],
		Sector:          rec[colSector],
		AssetClass:      contracts.AssetClass(rec[colAssetClass]),
		Regime:          contracts.Regime(rec[colRegime]),
		ConfidenceLabel: contracts.ConfidenceLabel(rec[colLabel]),
		RadarVector:     rec[colRadar],
	}

	floats := []struct {
		col int
		dst *float64
	}{
		{colClose, &row.Close},
		{colScore, &row.Score},
		{colOpportunity, &row.OpportunityScore},
		{colRisk, &row.RiskScore},
		{colConfidence, &row.ConfidenceScore},
	}
	for _, f := range floats {
		if rec[f.col] == "" {
			continue
		}
		v, err := strconv.ParseFloat(rec[f.col], 64)
		if err != nil {
			return row, fmt.Errorf("%s: %w", csvHeader[f.col], err)
		}
		*f.dst = v
	}

	if s := rec[colForwardReturn]; s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return row, fmt.Errorf("forward_return: %w", err)
		}
		row.ForwardReturn = &v
	}
	if s := rec[colForwardHorizon]; s != "" {
		h, err := strconv.Atoi(s)
		if err != nil {
			return row, fmt.Errorf("forward_horizon: %w", err)
		}
		row.ForwardHorizon = h
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func filterRange(rows []contracts.SnapshotRow, from, to time.Time) []contracts.SnapshotRow {
	out := make([]contracts.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		if !from.IsZero() && r.Date.Before(contracts.TruncateDay(from)) {
			continue
		}
		if !to.IsZero() && r.Date.After(contracts.TruncateDay(to)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ComputeStats summarizes rows for the health report
func ComputeStats(rows []contracts.SnapshotRow) contracts.StoreStats {
	stats := contracts.StoreStats{Rows: len(rows)}
	ids := make(map[string]bool)
	dates := make(map[string]bool)
	for _, r := range rows {
		ids[r.Identifier] = true
		dates[r.Date.Format(contracts.DateLayout)] = true
		if r.ForwardReturn != nil {
			stats.WithForwardReturn++
		}
		if stats.FirstDate.IsZero() || r.Date.Before(stats.FirstDate) {
			stats.FirstDate = r.Date
		}
		if r.Date.After(stats.LastDate) {
			stats.LastDate = r.Date
		}
	}
	stats.Identifiers = len(ids)
	stats.Dates = len(dates)
	return stats
}
