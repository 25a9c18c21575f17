package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/scoringconfig"
)

const watchlist = `ISIN,Ticker,Name,Sektor,Akt. Kurs,ROE %,Debt/Equity,CRV,Elliott-Signal,MarketRegimeStock
US0378331005,AAPL,Apple,Technology,200,22,0.5,2,BUY,bull
,MSFT,Microsoft,Technology,400,35,0.8,3,SELL,neutral
,,NoId,Technology,1,1,1,1,,
,BTC-USD,Bitcoin,Crypto,50000,-,n/a,,HOLD,
`

type paths struct {
	input, output, history, dashboard string
}

// setupEnv points every path at a temp dir and disables external services
func setupEnv(t *testing.T) paths {
	t.Helper()
	dir := t.TempDir()
	p := paths{
		input:     filepath.Join(dir, "watchlist.csv"),
		output:    filepath.Join(dir, "out", "scored.csv"),
		history:   filepath.Join(dir, "history.csv"),
		dashboard: filepath.Join(dir, "out", "dashboard.html"),
	}
	require.NoError(t, os.WriteFile(p.input, []byte(watchlist), 0o644))

	for k, v := range map[string]string{
		"ENV":                    "development",
		"SCANNER_INPUT_CSV":      p.input,
		"SCANNER_OUTPUT_CSV":     p.output,
		"SCANNER_DASHBOARD_HTML": p.dashboard,
		"SCANNER_SCORING_CONFIG": "",
		"SNAPSHOT_BACKEND":       "csv",
		"SNAPSHOT_CSV":           p.history,
		"REDIS_ENABLED":          "false",
		"TELEGRAM_ENABLED":       "false",
		"LOG_LEVEL":              "error",
	} {
		t.Setenv(k, v)
	}
	return p
}

func resetFlags() {
	scoringConfigFile, verbose = "", false
	runDate, runInput, runOutput, runDryRun, runDashboard, runTop = "", "", "", false, false, 10
	calAsOf, calLookback, calHorizon, calTop, calJSON = "", 0, 0, 0, false
	healthInput = ""
	dashboardInput, dashboardOut = "", ""
	portfolioInput, portfolioDate, portfolioOut = "", "", ""
	portfolioTop, portfolioMaxPositions, portfolioMinScore = 10, 20, 30
	portfolioNoCrypto, portfolioExclude, portfolioJSON = false, nil, false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunCommand(t *testing.T) {
	p := setupEnv(t)

	out, err := execute(t, "run", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Scan 2026-03-02")
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "+3 (skipped 0)")
	assert.FileExists(t, p.output)
	assert.FileExists(t, p.history)

	// 같은 날짜 재실행은 이력에 추가하지 않음
	out, err = execute(t, "run", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "+0 (skipped 3)")
}

func TestRunCommand_DryRunWithDashboard(t *testing.T) {
	p := setupEnv(t)

	_, err := execute(t, "run", "--date", "2026-03-02", "--dry-run", "--dashboard")
	require.NoError(t, err)
	assert.NoFileExists(t, p.history)
	assert.FileExists(t, p.dashboard)
}

func TestRunCommand_BadDate(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "run", "--date", "02.03.2026")
	assert.Error(t, err)
}

func TestCalibrateCommand_NoHistory(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "calibrate", "--as-of", "2026-03-02", "--json")
	require.NoError(t, err)

	var report contracts.CalibrationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.SampleSize)
	assert.Empty(t, report.Correlations)

	out, err = execute(t, "calibrate", "--as-of", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "No valid forward-return matches")
}

func TestBackfillCommand(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "run", "--date", "2026-03-02")
	require.NoError(t, err)

	out, err := execute(t, "backfill")
	require.NoError(t, err)
	assert.Contains(t, out, "Filled 0 forward returns")
}

func TestHealthCommand(t *testing.T) {
	p := setupEnv(t)

	out, err := execute(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "3 loaded, 1 rejected, 3 scored")
	assert.Contains(t, out, "line 4")
	assert.NoFileExists(t, p.output)
	assert.NoFileExists(t, p.history)
}

func TestPortfolioCommand(t *testing.T) {
	p := setupEnv(t)
	out := filepath.Join(filepath.Dir(p.output), "portfolio.csv")

	text, err := execute(t, "portfolio", "--date", "2026-03-02", "--min-score", "0", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, text, "Portfolio 2026-03-02")
	assert.Contains(t, text, "AAPL")
	assert.Contains(t, text, "Cash")
	assert.FileExists(t, out)
	assert.FileExists(t, filepath.Join(filepath.Dir(out), "portfolio_meta.json"))
	assert.NoFileExists(t, p.history, "dry run")

	text, err = execute(t, "portfolio", "--date", "2026-03-02", "--min-score", "0", "--no-crypto", "--exclude", "msft", "--json")
	require.NoError(t, err)
	var got contracts.Portfolio
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	require.Len(t, got.Positions, 1)
	assert.Equal(t, "US0378331005", got.Positions[0].Identifier)
	assert.False(t, got.Criteria.AllowCrypto)
	assert.InDelta(t, 1.0, got.Positions[0].Weight+got.Cash, 1e-9)

	_, err = execute(t, "portfolio", "--top", "0")
	assert.Error(t, err)
}

func TestDashboardCommand(t *testing.T) {
	setupEnv(t)
	out := filepath.Join(t.TempDir(), "dash.html")

	msg, err := execute(t, "dashboard", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "3 assets")

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(html), "<table id=\"scores\""))
}

func TestConfigCommands(t *testing.T) {
	setupEnv(t)

	want, err := scoringconfig.Hash(scoringconfig.Default())
	require.NoError(t, err)

	out, err := execute(t, "config", "hash")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	out, err = execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "built-in defaults is valid")

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# config_hash: "+want[:12])
	assert.Contains(t, out, "factors:")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("no_such_field: 1\n"), 0o644))
	_, err = execute(t, "config", "validate", "--scoring-config", bad)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("")
	require.NoError(t, err)
	assert.Equal(t, contracts.TruncateDay(time.Now()), d)

	_, err = parseDate("yesterday")
	assert.Error(t, err)
}
