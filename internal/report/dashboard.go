package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s3_scoring"
)

// histogram bins over [0, 200]
const (
	binWidth = 20.0
	numBins  = int(s3_scoring.MaxScore / binWidth)
)

// DashboardData is everything the static dashboard shows (TopN <= 0 = all assets)
type DashboardData struct {
	Summary     contracts.RunSummary
	Assets      []contracts.ScoredAsset
	Calibration *contracts.CalibrationReport
	TopN        int
}

type dashboardRow struct {
	Rank       int
	Identifier string
	Ticker     string
	Name       string
	Sector     string
	Score      float64
	Opp        float64
	Risk       float64
	Confidence float64
	Label      string
	Regime     string
	Radar      contracts.RadarVector
}

type dashboardView struct {
	Title       string
	Generated   string
	Summary     contracts.RunSummary
	Axes        [5]string
	Rows        []dashboardRow
	Chart       template.URL
	Stats       ScoreStats
	Calibration *contracts.CalibrationReport
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"f1":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"f3":  func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #111827; }
table { border-collapse: collapse; }
th, td { padding: 4px 10px; border-bottom: 1px solid #e5e7eb; text-align: right; }
th:nth-child(-n+3), td:nth-child(-n+3) { text-align: left; }
.HIGH { color: #15803d; } .MED { color: #b45309; } .LOW { color: #b91c1c; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p id="summary">Run {{.Summary.RunID}} &middot; {{.Summary.Loaded}} loaded &middot; {{.Summary.Rejected}} rejected &middot; {{.Summary.Scored}} scored &middot; generated {{.Generated}}</p>
<p id="stats">mean {{f1 .Stats.Mean}} &middot; median {{f1 .Stats.Median}} &middot; max {{f1 .Stats.Max}}</p>
{{if .Chart}}<img id="distribution" alt="Score distribution" src="{{.Chart}}">{{end}}
<table id="scores">
<thead><tr><th>#</th><th>Ticker</th><th>Name</th><th>Score</th><th>Opp</th><th>Risk</th><th>Conf</th><th>Label</th><th>Regime</th>{{range .Axes}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr data-id="{{.Identifier}}"><td>{{.Rank}}</td><td>{{.Ticker}}</td><td>{{.Name}}</td><td class="score">{{f1 .Score}}</td><td>{{f1 .Opp}}</td><td>{{f1 .Risk}}</td><td>{{f1 .Confidence}}</td><td class="{{.Label}}">{{.Label}}</td><td>{{.Regime}}</td>{{range .Radar}}<td>{{f1 .}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{with .Calibration}}
<h2>Calibration</h2>
<p id="calibration">{{.SampleSize}} samples &middot; horizon {{.HorizonDays}}d &middot; hit rate {{pct .HitRate}}</p>
<table id="correlations">{{range $k, $v := .Correlations}}<tr><td>{{$k}}</td><td>{{f3 $v}}</td></tr>{{end}}</table>
<ul>{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul>
{{end}}
</body>
</html>
`))

// RenderDashboard writes the static HTML dashboard
func RenderDashboard(w io.Writer, data DashboardData) error {
	n := data.TopN
	if n <= 0 {
		n = len(data.Assets)
	}
	ranked := s3_scoring.TopN(data.Assets, n)

	view := dashboardView{
		Title:       fmt.Sprintf("Scanner %s", data.Summary.RunDate.Format(contracts.DateLayout)),
		Generated:   time.Now().Format(time.RFC3339),
		Summary:     data.Summary,
		Axes:        contracts.RadarAxes,
		Rows:        make([]dashboardRow, 0, len(ranked)),
		Stats:       ComputeScoreStats(data.Assets),
		Calibration: data.Calibration,
	}
	for i, a := range ranked {
		view.Rows = append(view.Rows, dashboardRow{
			Rank:       i + 1,
			Identifier: a.Record.Identifier,
			Ticker:     a.Record.Ticker,
			Name:       a.Record.Name,
			Sector:     a.Record.Sector,
			Score:      a.Result.Score,
			Opp:        a.Result.OpportunityScore,
			Risk:       a.Result.RiskScore,
			Confidence: a.Result.ConfidenceScore,
			Label:      string(a.Result.ConfidenceLabel),
			Regime:     string(a.Result.Regime),
			Radar:      a.Result.Radar,
		})
	}

	if len(data.Assets) > 0 {
		png, err := RenderDistributionChart(data.Assets)
		if err != nil {
			return err
		}
		view.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	return dashboardTmpl.Execute(w, view)
}

// Histogram counts scores per 20-point bin over [0, 200]
func Histogram(assets []contracts.ScoredAsset) [numBins]int {
	var bins [numBins]int
	for _, a := range assets {
		i := int(a.Result.Score / binWidth)
		if i >= numBins {
			i = numBins - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i]++
	}
	return bins
}

// RenderDistributionChart renders the score histogram as PNG
func RenderDistributionChart(assets []contracts.ScoredAsset) ([]byte, error) {
	bins := Histogram(assets)

	maxCount := 0
	bars := make([]chart.Value, 0, numBins)
	for i, n := range bins {
		if n > maxCount {
			maxCount = n
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%d", int(float64(i)*binWidth)),
			Value: float64(n),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("2563eb"),
				StrokeColor: drawing.ColorFromHex("1d4ed8"),
				StrokeWidth: 1,
			},
		})
	}

	graph := chart.BarChart{
		Title:      "Score distribution",
		Width:      1000,
		Height:     320,
		BarWidth:   60,
		BarSpacing: 20,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount + 1)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDashboardFile renders the dashboard to path, creating the directory
func WriteDashboardFile(path string, data DashboardData) error {
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, data); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dashboard dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}
