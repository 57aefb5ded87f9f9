package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// chartJSON builds a minimal v8 chart response body for one symbol.
func chartJSON(timestamps []int64, closes []string, adjCloses []string) string {
	var b strings.Builder
	b.WriteString(`{"chart":{"result":[{"meta":{"symbol":"TEST","currency":"USD"},"timestamp":[`)
	for i, ts := range timestamps {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", ts)
	}
	b.WriteString(`],"indicators":{"quote":[{"close":[`)
	b.WriteString(strings.Join(closes, ","))
	b.WriteString(`]}]`)
	if adjCloses != nil {
		b.WriteString(`,"adjclose":[{"adjclose":[`)
		b.WriteString(strings.Join(adjCloses, ","))
		b.WriteString(`]}]`)
	}
	b.WriteString(`}}],"error":null}}`)
	return b.String()
}

func TestGetDailyClosesParsesSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(chartJSON(
			[]int64{1700000000, 1700086400, 1700172800},
			[]string{"100.0", "101.0", "102.0"},
			[]string{"99.5", "100.5", "101.5"},
		)))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	series, err := yf.GetDailyCloses(context.Background(), "AAPL", time.Unix(1699900000, 0), time.Unix(1700200000, 0))
	if err != nil {
		t.Fatalf("GetDailyCloses: %v", err)
	}

	if len(series) != 3 {
		t.Fatalf("got %d points, want 3", len(series))
	}
	// Adjusted close preferred over regular close.
	if series[0].Close != 99.5 || series[2].Close != 101.5 {
		t.Errorf("series = %+v, want adjusted closes", series)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			t.Fatal("series dates not strictly ascending")
		}
	}
}

func TestGetDailyClosesSkipsNullEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON(
			[]int64{1700000000, 1700086400, 1700172800},
			[]string{"100.0", "null", "102.0"},
			nil,
		)))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	series, err := yf.GetDailyCloses(context.Background(), "AAPL", time.Unix(0, 0), time.Unix(1, 0))
	if err != nil {
		t.Fatalf("GetDailyCloses: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("null closes should be skipped: got %d points, want 2", len(series))
	}
}

func TestGetDailyClosesUnknownTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	_, err := yf.GetDailyCloses(context.Background(), "NOPE", time.Unix(0, 0), time.Unix(1, 0))
	if !errors.Is(err, ErrTickerNotFound) {
		t.Fatalf("err = %v, want ErrTickerNotFound", err)
	}
}

func TestGetDailyClosesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	_, err := yf.GetDailyCloses(context.Background(), "X", time.Unix(0, 0), time.Unix(1, 0))
	if err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Fatalf("err = %v, want chart error description", err)
	}
}

func TestGetPriceHistoryContainsPerSymbolFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// BAD gets an empty result set; everything else succeeds.
		if strings.Contains(r.URL.Path, "/BAD") {
			w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
			return
		}
		w.Write([]byte(chartJSON(
			[]int64{1700000000, 1700086400},
			[]string{"100.0", "110.0"},
			nil,
		)))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	series, failed, err := yf.GetPriceHistory(context.Background(),
		[]string{"AAPL", "BAD", "MSFT"}, time.Unix(0, 0), time.Unix(1, 0))
	if err != nil {
		t.Fatalf("partial failure must not abort the batch: %v", err)
	}

	if len(series) != 2 {
		t.Errorf("got %d series, want 2", len(series))
	}
	if _, ok := series["BAD"]; ok {
		t.Error("failed symbol must be absent from the series map")
	}
	if !errors.Is(failed["BAD"], ErrTickerNotFound) {
		t.Errorf("failed[BAD] = %v, want ErrTickerNotFound", failed["BAD"])
	}
}

func TestGetPriceHistoryAllSymbolsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	_, failed, err := yf.GetPriceHistory(context.Background(),
		[]string{"A", "B"}, time.Unix(0, 0), time.Unix(1, 0))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData when every symbol fails", err)
	}
	if len(failed) != 2 {
		t.Errorf("failed map has %d entries, want 2", len(failed))
	}
}

func TestGetPriceHistoryChunksRequests(t *testing.T) {
	var mu sync.Mutex
	requested := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		mu.Lock()
		requested[parts[len(parts)-1]] = true
		mu.Unlock()
		w.Write([]byte(chartJSON(
			[]int64{1700000000, 1700086400},
			[]string{"10.0", "11.0"},
			nil,
		)))
	}))
	defer server.Close()

	symbols := []string{"A", "B", "C", "D", "E"}
	yf := NewYFinance(WithBaseURL(server.URL), WithChunkSize(2), WithConcurrency(2))
	series, _, err := yf.GetPriceHistory(context.Background(), symbols, time.Unix(0, 0), time.Unix(1, 0))
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(series) != len(symbols) {
		t.Fatalf("got %d series, want %d", len(series), len(symbols))
	}
	for _, s := range symbols {
		if !requested[s] {
			t.Errorf("symbol %s never requested", s)
		}
	}
}

func TestGetPriceHistoryEmptySymbolList(t *testing.T) {
	yf := NewYFinance()
	series, failed, err := yf.GetPriceHistory(context.Background(), nil, time.Unix(0, 0), time.Unix(1, 0))
	if err != nil {
		t.Fatalf("empty symbol list should not error: %v", err)
	}
	if len(series) != 0 || len(failed) != 0 {
		t.Errorf("expected empty maps, got %v / %v", series, failed)
	}
}

func TestGetDailyClosesCaches(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(chartJSON(
			[]int64{1700000000, 1700086400},
			[]string{"100.0", "110.0"},
			nil,
		)))
	}))
	defer server.Close()

	yf := NewYFinance(WithBaseURL(server.URL))
	ctx := context.Background()
	from, to := time.Unix(0, 0), time.Unix(1, 0)
	if _, err := yf.GetDailyCloses(ctx, "AAPL", from, to); err != nil {
		t.Fatal(err)
	}
	if _, err := yf.GetDailyCloses(ctx, "AAPL", from, to); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("upstream hit %d times, want 1 (cached)", hits)
	}
}

func TestYFinanceName(t *testing.T) {
	yf := NewYFinance()
	if yf.Name() != "Yahoo Finance" {
		t.Errorf("Name() = %q, want %q", yf.Name(), "Yahoo Finance")
	}
}
