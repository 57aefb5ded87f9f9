// Package dashboard orchestrates one end-to-end dashboard recomputation:
// constituents → price history → movers ranking. Each request is stateless;
// nothing is persisted between snapshots.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hucanghe/stock-analysis/internal/datasource"
	"github.com/hucanghe/stock-analysis/internal/movers"
	"github.com/hucanghe/stock-analysis/pkg/models"
)

// SnapshotRequest carries the user-selected controls for one recomputation.
type SnapshotRequest struct {
	Index  string // index name, e.g., "NASDAQ-100"
	Window int    // trailing trading days
	TopN   int    // table length
}

// Snapshot is the result of one full dashboard recomputation.
type Snapshot struct {
	Index     string               `json:"index"`
	Window    int                  `json:"window"`
	TopN      int                  `json:"top_n"`
	Winners   []models.MoverResult `json:"winners"`
	Losers    []models.MoverResult `json:"losers"`
	Skipped   []string             `json:"skipped,omitempty"` // symbols without usable data, informational
	FetchedAt time.Time            `json:"fetched_at"`
}

// Service wires the providers into the movers computation.
type Service struct {
	constituents datasource.ConstituentProvider
	prices       datasource.PriceHistoryProvider
	lookbackDays int // calendar days of price history to download
}

// NewService creates a dashboard service. lookbackDays is the calendar-day
// price download range; it must comfortably cover the largest trading-day
// window (90 calendar days for a 60-day window).
func NewService(constituents datasource.ConstituentProvider, prices datasource.PriceHistoryProvider, lookbackDays int) *Service {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &Service{
		constituents: constituents,
		prices:       prices,
		lookbackDays: lookbackDays,
	}
}

// Snapshot runs one end-to-end recomputation. A constituent failure is
// terminal; per-symbol price failures only remove those symbols from the
// ranking and show up in Snapshot.Skipped.
func (s *Service) Snapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error) {
	if req.Window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", req.Window)
	}
	if req.TopN < 1 {
		return nil, fmt.Errorf("top-N must be at least 1, got %d", req.TopN)
	}

	constituents, err := s.constituents.GetConstituents(ctx, req.Index)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(constituents))
	companies := make(map[string]string, len(constituents))
	for _, c := range constituents {
		symbols = append(symbols, c.Symbol)
		companies[c.Symbol] = c.Company
	}

	to := time.Now()
	from := to.AddDate(0, 0, -s.lookbackDays)
	series, failed, err := s.prices.GetPriceHistory(ctx, symbols, from, to)
	if err != nil {
		return nil, err
	}

	winners, losers := movers.Compute(series, req.Window, req.TopN)
	withCompany(winners, companies)
	withCompany(losers, companies)

	skipped := movers.Skipped(series, req.Window)
	for symbol := range failed {
		skipped = append(skipped, symbol)
	}
	sort.Strings(skipped)

	return &Snapshot{
		Index:     req.Index,
		Window:    req.Window,
		TopN:      req.TopN,
		Winners:   winners,
		Losers:    losers,
		Skipped:   skipped,
		FetchedAt: time.Now(),
	}, nil
}

// PriceTrend returns the trailing window+1 closes for one symbol, for the
// price chart. One extra point is included so the chart spans the full
// window of changes.
func (s *Service) PriceTrend(ctx context.Context, symbol string, window int) (models.PriceSeries, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	to := time.Now()
	from := to.AddDate(0, 0, -s.lookbackDays)
	series, failed, err := s.prices.GetPriceHistory(ctx, []string{symbol}, from, to)
	if err != nil {
		return nil, err
	}
	if ferr, ok := failed[symbol]; ok {
		return nil, ferr
	}

	trend := series[symbol].Last(window + 1)
	if len(trend) == 0 {
		return nil, fmt.Errorf("%w: %s", datasource.ErrNoData, symbol)
	}
	return trend, nil
}

// withCompany joins company names from the constituent list onto results.
func withCompany(results []models.MoverResult, companies map[string]string) {
	for i := range results {
		results[i].Company = companies[results[i].Symbol]
	}
}
