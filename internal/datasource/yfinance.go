package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// DefaultYFinanceBaseURL is the production Yahoo Finance API host.
const DefaultYFinanceBaseURL = "https://query1.finance.yahoo.com"

// Yahoo blocks large bursts; download in chunks of 30 symbols.
const defaultChunkSize = 30

// YFinance implements PriceHistoryProvider using the Yahoo Finance v8
// chart API.
type YFinance struct {
	baseURL     string
	chunkSize   int
	concurrency int
	cache       *Cache
	limiter     *RateLimiter
}

// YFinanceOption customizes a YFinance provider.
type YFinanceOption func(*YFinance)

// WithBaseURL overrides the API host, mainly for tests.
func WithBaseURL(url string) YFinanceOption {
	return func(y *YFinance) { y.baseURL = strings.TrimSuffix(url, "/") }
}

// WithChunkSize overrides the batch chunk size.
func WithChunkSize(n int) YFinanceOption {
	return func(y *YFinance) {
		if n > 0 {
			y.chunkSize = n
		}
	}
}

// WithConcurrency overrides the number of parallel symbol fetches per chunk.
func WithConcurrency(n int) YFinanceOption {
	return func(y *YFinance) {
		if n > 0 {
			y.concurrency = n
		}
	}
}

// NewYFinance creates a new Yahoo Finance price history provider.
func NewYFinance(opts ...YFinanceOption) *YFinance {
	y := &YFinance{
		baseURL:     DefaultYFinanceBaseURL,
		chunkSize:   defaultChunkSize,
		concurrency: 5,
		cache:       NewCache(15 * time.Minute),
		limiter:     NewRateLimiter(5, time.Second), // 5 req/s
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 chart API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote    []yfQuoteBlock `json:"quote"`
	AdjClose []yfAdjClose   `json:"adjclose"`
}

type yfQuoteBlock struct {
	Close []*float64 `json:"close"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetDailyCloses returns the daily closing price series for one symbol.
// Adjusted closes are preferred when the API provides them, matching what
// the dashboard tables and chart are computed from.
func (y *YFinance) GetDailyCloses(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	yfTicker := toYahooSymbol(symbol)

	cacheKey := fmt.Sprintf("closes:%s:%d:%d", yfTicker, from.Unix(), to.Unix())
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(models.PriceSeries), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		y.baseURL, yfTicker, from.Unix(), to.Unix(),
	)

	body, _, err := doGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", yfTicker, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yfinance chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	series := parseCloses(resp.Chart.Result[0])
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	y.cache.Set(cacheKey, series)
	return series, nil
}

// GetPriceHistory downloads close series for a batch of symbols. Symbols
// are fetched in chunks with a bounded number of parallel requests per
// chunk. A failed symbol is reported in the returned error map and does
// not abort the batch; the call fails outright only when no symbol
// produced data.
func (y *YFinance) GetPriceHistory(ctx context.Context, symbols []string, from, to time.Time) (map[string]models.PriceSeries, map[string]error, error) {
	series := make(map[string]models.PriceSeries, len(symbols))
	failed := make(map[string]error)
	var mu sync.Mutex

	for start := 0; start < len(symbols); start += y.chunkSize {
		end := start + y.chunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(y.concurrency)

		for _, symbol := range chunk {
			g.Go(func() error {
				s, err := y.GetDailyCloses(gctx, symbol, from, to)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					// Contained: record and move on.
					failed[symbol] = err
					return nil
				}
				series[symbol] = s
				return nil
			})
		}

		// Only context cancellation surfaces here; per-symbol errors are
		// swallowed into the failed map above.
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	if len(series) == 0 && len(symbols) > 0 {
		return nil, failed, fmt.Errorf("%w: all %d symbols failed", ErrNoData, len(symbols))
	}
	return series, failed, nil
}

// --- Helpers ---

// parseCloses converts a chart result into an ascending close series.
// Null entries (halted days, missing data) are skipped.
func parseCloses(result yfChartResult) models.PriceSeries {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	closes := result.Indicators.Quote[0].Close
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	series := make(models.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		var price *float64
		if i < len(adjCloses) && adjCloses[i] != nil {
			price = adjCloses[i]
		} else if i < len(closes) && closes[i] != nil {
			price = closes[i]
		}
		if price == nil || *price <= 0 {
			continue
		}
		series = append(series, models.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *price,
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// toYahooSymbol maps an index constituent symbol to Yahoo Finance form.
// Wikipedia lists share classes with a dot (BRK.B); Yahoo uses a dash.
func toYahooSymbol(symbol string) string {
	if strings.HasPrefix(symbol, "^") {
		return symbol
	}
	return strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-")
}
