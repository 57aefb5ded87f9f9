package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Movers Report — standalone HTML export of one dashboard snapshot
// ════════════════════════════════════════════════════════════════════

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Title    string      // custom report title (optional)
	ChartCfg ChartConfig // chart rendering config
	// ChartCount limits how many winner/loser charts are inlined.
	ChartCount int
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		ChartCfg:   DefaultChartConfig(),
		ChartCount: 1,
	}
}

// MoversReport is the input for one report: the ranked tables plus the
// price series to chart.
type MoversReport struct {
	Index     string
	Window    int
	TopN      int
	Winners   []models.MoverResult
	Losers    []models.MoverResult
	Skipped   []string
	Series    map[string]models.PriceSeries // per-symbol series for inline charts
	FetchedAt time.Time
}

// reportData is the flattened template model.
type reportData struct {
	Title       string
	Index       string
	Window      int
	TopN        int
	GeneratedAt string
	Winners     []moverRow
	Losers      []moverRow
	Skipped     []string
	Charts      []chartBlock
}

type moverRow struct {
	Rank       int
	Symbol     string
	Company    string
	FirstClose string
	LastClose  string
	ChangePct  string
	Class      string // "positive" or "negative"
}

type chartBlock struct {
	Symbol string
	SVG    template.HTML
}

// GenerateHTML renders a movers snapshot as a standalone HTML document.
func GenerateHTML(r MoversReport, cfg ReportConfig) (string, error) {
	title := cfg.Title
	if title == "" {
		title = fmt.Sprintf("%s Movers — %d Trading Days", r.Index, r.Window)
	}

	data := reportData{
		Title:       title,
		Index:       r.Index,
		Window:      r.Window,
		TopN:        r.TopN,
		GeneratedAt: r.FetchedAt.Format("Jan 02, 2006 15:04 MST"),
		Winners:     toRows(r.Winners),
		Losers:      toRows(r.Losers),
		Skipped:     r.Skipped,
	}

	// Inline a chart for the leading winners and losers, when their
	// series are available.
	chartCount := cfg.ChartCount
	if chartCount < 0 {
		chartCount = 0
	}
	for _, rows := range [][]models.MoverResult{r.Winners, r.Losers} {
		for i := 0; i < chartCount && i < len(rows); i++ {
			series, ok := r.Series[rows[i].Symbol]
			if !ok || len(series) == 0 {
				continue
			}
			svg := PriceTrendChart(rows[i].Symbol, series, cfg.ChartCfg)
			data.Charts = append(data.Charts, chartBlock{
				Symbol: rows[i].Symbol,
				SVG:    template.HTML(svg), //nolint:gosec // SVG is generated locally, not user input
			})
		}
	}

	tmpl, err := template.New("movers").Parse(moversTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

func toRows(results []models.MoverResult) []moverRow {
	rows := make([]moverRow, 0, len(results))
	for i, m := range results {
		class := "positive"
		if m.ChangePct < 0 {
			class = "negative"
		}
		rows = append(rows, moverRow{
			Rank:       i + 1,
			Symbol:     m.Symbol,
			Company:    m.Company,
			FirstClose: fmt.Sprintf("%.2f", m.FirstClose),
			LastClose:  fmt.Sprintf("%.2f", m.LastClose),
			ChangePct:  fmt.Sprintf("%+.2f%%", m.ChangePct),
			Class:      class,
		})
	}
	return rows
}

// moversTemplate is the HTML template for the movers report.
// It is embedded as a Go constant — no external file dependencies.
const moversTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); }
  th { background: var(--section-bg); font-size: 0.8rem; text-transform: uppercase; color: var(--muted); }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .positive { color: var(--green); font-weight: 600; }
  .negative { color: var(--red); font-weight: 600; }
  .chart { margin: 12px 0; }
  .skipped { background: var(--section-bg); padding: 8px 12px; border-radius: 6px; font-size: 0.85rem; color: var(--muted); }
  .footer { margin-top: 32px; padding-top: 8px; border-top: 1px solid var(--border); font-size: 0.75rem; color: var(--muted); }
</style>
</head>
<body>
<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">{{.Index}} &middot; {{.Window}}-trading-day window &middot; generated {{.GeneratedAt}}</p>
</div>

<h2>Top {{.TopN}} Winners</h2>
<table>
  <thead><tr><th>#</th><th>Symbol</th><th>Company</th><th>First</th><th>Last</th><th>Change</th></tr></thead>
  <tbody>
  {{range .Winners}}<tr>
    <td>{{.Rank}}</td><td><strong>{{.Symbol}}</strong></td><td>{{.Company}}</td>
    <td class="num">{{.FirstClose}}</td><td class="num">{{.LastClose}}</td>
    <td class="num {{.Class}}">{{.ChangePct}}</td>
  </tr>{{end}}
  </tbody>
</table>

<h2>Top {{.TopN}} Losers</h2>
<table>
  <thead><tr><th>#</th><th>Symbol</th><th>Company</th><th>First</th><th>Last</th><th>Change</th></tr></thead>
  <tbody>
  {{range .Losers}}<tr>
    <td>{{.Rank}}</td><td><strong>{{.Symbol}}</strong></td><td>{{.Company}}</td>
    <td class="num">{{.FirstClose}}</td><td class="num">{{.LastClose}}</td>
    <td class="num {{.Class}}">{{.ChangePct}}</td>
  </tr>{{end}}
  </tbody>
</table>

{{if .Charts}}<h2>Price Trends</h2>
{{range .Charts}}<div class="chart">{{.SVG}}</div>{{end}}{{end}}

{{if .Skipped}}<p class="skipped">No usable data for: {{range $i, $s := .Skipped}}{{if $i}}, {{end}}{{$s}}{{end}}</p>{{end}}

<div class="footer">Generated by stockanalysis. Price data from Yahoo Finance; constituents from Wikipedia.</div>
</body>
</html>`
