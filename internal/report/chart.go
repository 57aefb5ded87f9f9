// Package report renders SVG charts for the dashboard. Charts are pure-Go
// SVG strings, served directly by the chart endpoint and embedded in the
// web UI as images.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	LineColor    string // series color (default: "#2196f3")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		LineColor:    "#2196f3",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// PriceTrendChart generates an SVG line chart of a symbol's closing prices.
// The title defaults to "SYMBOL Price Trend (N days)" where N is the number
// of day-over-day changes the series spans.
func PriceTrendChart(symbol string, series models.PriceSeries, cfg ChartConfig) string {
	if len(series) == 0 {
		return emptySVG(cfg, "No price data for "+symbol)
	}

	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if cfg.Title == "" {
		cfg.Title = fmt.Sprintf("%s Price Trend (%d days)", symbol, len(series)-1)
	}

	px, py, pw, ph := cfg.plotArea()

	// Value range with 5% headroom.
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	for _, p := range series {
		if p.Close < minVal {
			minVal = p.Close
		}
		if p.Close > maxVal {
			maxVal = p.Close
		}
	}
	vRange := maxVal - minVal
	if vRange < 0.001 {
		vRange = 1
	}
	minVal -= vRange * 0.05
	maxVal += vRange * 0.05
	vRange = maxVal - minVal

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y-axis grid and price labels.
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := minVal + vRange*float64(i)/float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%.2f</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, val))
	}

	// Price path.
	step := 0.0
	if len(series) > 1 {
		step = float64(pw) / float64(len(series)-1)
	}
	var pathParts []string
	for i, p := range series {
		cx := float64(px) + float64(i)*step
		ratio := (p.Close - minVal) / vRange
		cy := float64(py+ph) - ratio*float64(ph)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, cx, cy))
	}
	if len(pathParts) > 1 {
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
			strings.Join(pathParts, " "), cfg.LineColor))
	} else {
		// Single point: mark it so the chart is not blank.
		sb.WriteString(fmt.Sprintf(`<circle cx="%d" cy="%.1f" r="3" fill="%s"/>`,
			px, float64(py+ph)-((series[0].Close-minVal)/vRange)*float64(ph), cfg.LineColor))
	}

	// X-axis date labels, at most 6 across the width.
	interval := len(series) / 6
	if interval < 1 {
		interval = 1
	}
	for i := 0; i < len(series); i += interval {
		cx := float64(px) + float64(i)*step
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, py+ph+18, cfg.FontSize-1, cfg.TextColor, series[i].Date.Format("Jan 02")))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
