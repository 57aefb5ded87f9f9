package movers

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// series builds an ascending daily close series from the given prices.
func series(prices ...float64) models.PriceSeries {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, 0, len(prices))
	for i, p := range prices {
		s = append(s, models.PricePoint{Date: base.AddDate(0, 0, i), Close: p})
	}
	return s
}

func symbols(results []models.MoverResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Symbol)
	}
	return out
}

func TestComputeBasicWinnersLosers(t *testing.T) {
	input := map[string]models.PriceSeries{
		"AAPL": series(100, 110),
		"MSFT": series(200, 180),
	}

	winners, losers := Compute(input, 2, 1)

	if len(winners) != 1 || winners[0].Symbol != "AAPL" {
		t.Fatalf("winners = %v, want [AAPL]", symbols(winners))
	}
	if math.Abs(winners[0].ChangePct-10.0) > 1e-9 {
		t.Errorf("AAPL change = %v, want +10", winners[0].ChangePct)
	}
	if winners[0].FirstClose != 100 || winners[0].LastClose != 110 {
		t.Errorf("AAPL boundary prices = %v/%v, want 100/110", winners[0].FirstClose, winners[0].LastClose)
	}

	if len(losers) != 1 || losers[0].Symbol != "MSFT" {
		t.Fatalf("losers = %v, want [MSFT]", symbols(losers))
	}
	if math.Abs(losers[0].ChangePct-(-10.0)) > 1e-9 {
		t.Errorf("MSFT change = %v, want -10", losers[0].ChangePct)
	}
}

func TestComputeWindowSelectsTrailingPoints(t *testing.T) {
	// Only the last 3 points should matter: 50 → 100 is +100%.
	input := map[string]models.PriceSeries{
		"NVDA": series(10, 20, 50, 75, 100),
	}

	winners, _ := Compute(input, 3, 5)
	if len(winners) != 1 {
		t.Fatalf("got %d winners, want 1", len(winners))
	}
	if math.Abs(winners[0].ChangePct-100.0) > 1e-9 {
		t.Errorf("change = %v, want +100 over trailing window", winners[0].ChangePct)
	}
}

func TestComputeShortSeriesUsesAllPoints(t *testing.T) {
	// Window 30 but only 5 points: degrade to all 5, no error.
	input := map[string]models.PriceSeries{
		"AMD": series(100, 101, 102, 103, 110),
	}

	winners, losers := Compute(input, 30, 10)
	if len(winners) != 1 || len(losers) != 1 {
		t.Fatalf("winners=%d losers=%d, want 1/1", len(winners), len(losers))
	}
	if math.Abs(winners[0].ChangePct-10.0) > 1e-9 {
		t.Errorf("change = %v, want +10 using all available points", winners[0].ChangePct)
	}
}

func TestComputeExcludesShortAndEmptySeries(t *testing.T) {
	input := map[string]models.PriceSeries{
		"GOOD":   series(100, 120),
		"SINGLE": series(100),
		"EMPTY":  nil,
	}

	winners, losers := Compute(input, 30, 10)
	if got := symbols(winners); !reflect.DeepEqual(got, []string{"GOOD"}) {
		t.Errorf("winners = %v, want [GOOD]", got)
	}
	if got := symbols(losers); !reflect.DeepEqual(got, []string{"GOOD"}) {
		t.Errorf("losers = %v, want [GOOD]", got)
	}
}

func TestComputeTruncatesToTopN(t *testing.T) {
	input := map[string]models.PriceSeries{
		"A": series(100, 105),
		"B": series(100, 110),
		"C": series(100, 115),
		"D": series(100, 90),
	}

	winners, losers := Compute(input, 2, 2)
	if got := symbols(winners); !reflect.DeepEqual(got, []string{"C", "B"}) {
		t.Errorf("winners = %v, want [C B]", got)
	}
	if got := symbols(losers); !reflect.DeepEqual(got, []string{"D", "A"}) {
		t.Errorf("losers = %v, want [D A]", got)
	}
}

func TestComputeSortOrders(t *testing.T) {
	input := map[string]models.PriceSeries{
		"A": series(100, 130),
		"B": series(100, 80),
		"C": series(100, 101),
		"D": series(100, 99),
		"E": series(100, 100),
	}

	winners, losers := Compute(input, 2, 5)

	for i := 1; i < len(winners); i++ {
		if winners[i].ChangePct > winners[i-1].ChangePct {
			t.Fatalf("winners not sorted non-increasing: %v", winners)
		}
	}
	for i := 1; i < len(losers); i++ {
		if losers[i].ChangePct < losers[i-1].ChangePct {
			t.Fatalf("losers not sorted non-decreasing: %v", losers)
		}
	}
}

func TestComputeTieBreakBySymbol(t *testing.T) {
	// Identical +10% moves; ordering must fall back to symbol name.
	input := map[string]models.PriceSeries{
		"ZZZ": series(50, 55),
		"AAA": series(100, 110),
		"MMM": series(200, 220),
	}

	winners, losers := Compute(input, 2, 3)
	want := []string{"AAA", "MMM", "ZZZ"}
	if got := symbols(winners); !reflect.DeepEqual(got, want) {
		t.Errorf("winners tie-break = %v, want %v", got, want)
	}
	if got := symbols(losers); !reflect.DeepEqual(got, want) {
		t.Errorf("losers tie-break = %v, want %v", got, want)
	}
}

func TestComputeDeterminism(t *testing.T) {
	input := map[string]models.PriceSeries{
		"A": series(100, 110),
		"B": series(100, 110),
		"C": series(100, 95),
		"D": series(100, 95),
		"E": series(100),
	}

	w1, l1 := Compute(input, 30, 3)
	w2, l2 := Compute(input, 30, 3)
	if !reflect.DeepEqual(w1, w2) || !reflect.DeepEqual(l1, l2) {
		t.Fatal("Compute is not deterministic for identical inputs")
	}
}

func TestComputeListLengthBounds(t *testing.T) {
	input := map[string]models.PriceSeries{
		"A": series(100, 110),
		"B": series(100, 90),
	}

	winners, losers := Compute(input, 2, 10)
	if len(winners) != 2 || len(losers) != 2 {
		t.Errorf("lists should be bounded by eligible count: got %d/%d", len(winners), len(losers))
	}

	winners, losers = Compute(input, 2, 0)
	if winners != nil || losers != nil {
		t.Errorf("topN=0 should yield empty results, got %v/%v", winners, losers)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	winners, losers := Compute(nil, 30, 10)
	if len(winners) != 0 || len(losers) != 0 {
		t.Errorf("empty input should yield empty output, got %v/%v", winners, losers)
	}
}

func TestSkipped(t *testing.T) {
	input := map[string]models.PriceSeries{
		"GOOD":  series(100, 110),
		"ONE":   series(100),
		"EMPTY": nil,
	}

	got := Skipped(input, 30)
	if !reflect.DeepEqual(got, []string{"EMPTY", "ONE"}) {
		t.Errorf("Skipped = %v, want [EMPTY ONE]", got)
	}
}
