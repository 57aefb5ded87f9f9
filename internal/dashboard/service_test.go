package dashboard

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/hucanghe/stock-analysis/internal/datasource"
	"github.com/hucanghe/stock-analysis/pkg/models"
)

// --- Stub providers ---

type stubConstituents struct {
	list []models.Constituent
	err  error
}

func (s *stubConstituents) GetConstituents(_ context.Context, _ string) ([]models.Constituent, error) {
	return s.list, s.err
}

type stubPrices struct {
	series map[string]models.PriceSeries
	failed map[string]error
	err    error
}

func (s *stubPrices) GetPriceHistory(_ context.Context, symbols []string, _, _ time.Time) (map[string]models.PriceSeries, map[string]error, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	out := make(map[string]models.PriceSeries)
	failed := make(map[string]error)
	for _, sym := range symbols {
		if err, ok := s.failed[sym]; ok {
			failed[sym] = err
			continue
		}
		if ps, ok := s.series[sym]; ok {
			out[sym] = ps
		}
	}
	return out, failed, nil
}

func closes(prices ...float64) models.PriceSeries {
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, 0, len(prices))
	for i, p := range prices {
		s = append(s, models.PricePoint{Date: base.AddDate(0, 0, i), Close: p})
	}
	return s
}

func TestSnapshotEndToEnd(t *testing.T) {
	svc := NewService(
		&stubConstituents{list: []models.Constituent{
			{Symbol: "AAPL", Company: "Apple Inc."},
			{Symbol: "MSFT", Company: "Microsoft"},
		}},
		&stubPrices{series: map[string]models.PriceSeries{
			"AAPL": closes(100, 110),
			"MSFT": closes(200, 180),
		}},
		90,
	)

	snap, err := svc.Snapshot(context.Background(), SnapshotRequest{Index: "NASDAQ-100", Window: 2, TopN: 1})
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(snap.Winners) != 1 || snap.Winners[0].Symbol != "AAPL" {
		t.Fatalf("winners = %+v, want AAPL", snap.Winners)
	}
	if snap.Winners[0].Company != "Apple Inc." {
		t.Errorf("company not joined: %+v", snap.Winners[0])
	}
	if len(snap.Losers) != 1 || snap.Losers[0].Symbol != "MSFT" {
		t.Fatalf("losers = %+v, want MSFT", snap.Losers)
	}
	if snap.Index != "NASDAQ-100" || snap.Window != 2 || snap.TopN != 1 {
		t.Errorf("request echo wrong: %+v", snap)
	}
}

func TestSnapshotConstituentFailureIsTerminal(t *testing.T) {
	svc := NewService(
		&stubConstituents{err: fmt.Errorf("%w: structure changed", datasource.ErrSourceUnavailable)},
		&stubPrices{},
		90,
	)

	_, err := svc.Snapshot(context.Background(), SnapshotRequest{Index: "S&P 500", Window: 30, TopN: 10})
	if !errors.Is(err, datasource.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestSnapshotContainsPerSymbolFailures(t *testing.T) {
	svc := NewService(
		&stubConstituents{list: []models.Constituent{
			{Symbol: "AAPL"}, {Symbol: "BAD"}, {Symbol: "SHORT"},
		}},
		&stubPrices{
			series: map[string]models.PriceSeries{
				"AAPL":  closes(100, 120),
				"SHORT": closes(100),
			},
			failed: map[string]error{"BAD": datasource.ErrTickerNotFound},
		},
		90,
	)

	snap, err := svc.Snapshot(context.Background(), SnapshotRequest{Index: "NASDAQ-100", Window: 30, TopN: 10})
	if err != nil {
		t.Fatalf("per-symbol failures must not abort the batch: %v", err)
	}

	for _, r := range append(snap.Winners, snap.Losers...) {
		if r.Symbol == "BAD" || r.Symbol == "SHORT" {
			t.Errorf("excluded symbol %s appeared in results", r.Symbol)
		}
	}
	if !reflect.DeepEqual(snap.Skipped, []string{"BAD", "SHORT"}) {
		t.Errorf("Skipped = %v, want [BAD SHORT]", snap.Skipped)
	}
}

func TestSnapshotValidatesControls(t *testing.T) {
	svc := NewService(&stubConstituents{}, &stubPrices{}, 90)

	if _, err := svc.Snapshot(context.Background(), SnapshotRequest{Index: "NASDAQ-100", Window: 0, TopN: 10}); err == nil {
		t.Error("expected error for window < 1")
	}
	if _, err := svc.Snapshot(context.Background(), SnapshotRequest{Index: "NASDAQ-100", Window: 30, TopN: 0}); err == nil {
		t.Error("expected error for topN < 1")
	}
}

func TestPriceTrendReturnsWindowPlusOne(t *testing.T) {
	svc := NewService(
		&stubConstituents{},
		&stubPrices{series: map[string]models.PriceSeries{
			"AAPL": closes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		}},
		90,
	)

	trend, err := svc.PriceTrend(context.Background(), "AAPL", 3)
	if err != nil {
		t.Fatalf("PriceTrend: %v", err)
	}

	// window+1 points so the chart spans window changes.
	if len(trend) != 4 {
		t.Fatalf("got %d points, want 4", len(trend))
	}
	if trend[0].Close != 7 || trend[3].Close != 10 {
		t.Errorf("wrong trailing points: %+v", trend)
	}
}

func TestPriceTrendUnknownSymbol(t *testing.T) {
	svc := NewService(
		&stubConstituents{},
		&stubPrices{failed: map[string]error{"NOPE": datasource.ErrTickerNotFound}},
		90,
	)

	_, err := svc.PriceTrend(context.Background(), "NOPE", 30)
	if !errors.Is(err, datasource.ErrTickerNotFound) {
		t.Fatalf("err = %v, want ErrTickerNotFound", err)
	}
}
