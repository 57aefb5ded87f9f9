package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// IndexSource describes where and how to scrape one index constituent list.
type IndexSource struct {
	Name          string // e.g., "NASDAQ-100"
	URL           string // Wikipedia page URL
	TickerColumn  string // header of the ticker column, e.g., "Ticker" or "Symbol"
	CompanyColumn string // header of the company name column
}

// DefaultIndexSources lists the indices supported out of the box.
var DefaultIndexSources = []IndexSource{
	{
		Name:          "NASDAQ-100",
		URL:           "https://en.wikipedia.org/wiki/Nasdaq-100",
		TickerColumn:  "Ticker",
		CompanyColumn: "Company",
	},
	{
		Name:          "S&P 500",
		URL:           "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
		TickerColumn:  "Symbol",
		CompanyColumn: "Security",
	},
}

// Wikipedia implements ConstituentProvider by scraping index pages on
// Wikipedia. The constituent table is located by its column headers rather
// than by position, so reordering of tables on the page does not break the
// scrape.
type Wikipedia struct {
	sources map[string]IndexSource // keyed by lowercase index name
	order   []string               // insertion order of index names
	cache   *Cache
	limiter *RateLimiter
}

// NewWikipedia creates a constituent provider for the default indices.
func NewWikipedia() *Wikipedia {
	return NewWikipediaWithSources(DefaultIndexSources)
}

// NewWikipediaWithSources creates a constituent provider with a custom
// index catalog.
func NewWikipediaWithSources(sources []IndexSource) *Wikipedia {
	w := &Wikipedia{
		sources: make(map[string]IndexSource, len(sources)),
		cache:   NewCache(30 * time.Minute),
		limiter: NewRateLimiter(1, time.Second), // conservative: 1 req/s
	}
	for _, s := range sources {
		key := strings.ToLower(s.Name)
		if _, dup := w.sources[key]; !dup {
			w.order = append(w.order, s.Name)
		}
		w.sources[key] = s
	}
	return w
}

// Name returns the data source name.
func (w *Wikipedia) Name() string { return "Wikipedia" }

// Indices returns the configured index names in catalog order.
func (w *Wikipedia) Indices() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// GetConstituents returns the constituent list of the named index.
func (w *Wikipedia) GetConstituents(ctx context.Context, indexName string) ([]models.Constituent, error) {
	src, ok := w.sources[strings.ToLower(indexName)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported index %q", ErrSourceUnavailable, indexName)
	}

	cacheKey := "wiki:" + src.Name
	if cached, ok := w.cache.Get(cacheKey); ok {
		return cached.([]models.Constituent), nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _, err := doGet(ctx, src.URL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrSourceUnavailable, src.Name, err)
	}

	constituents := parseConstituentTable(doc, src)
	if len(constituents) == 0 {
		return nil, fmt.Errorf("%w: no constituent table with columns %q/%q on %s",
			ErrSourceUnavailable, src.TickerColumn, src.CompanyColumn, src.URL)
	}

	w.cache.Set(cacheKey, constituents)
	return constituents, nil
}

// parseConstituentTable finds the first wikitable whose header row carries
// the configured ticker and company columns, and extracts its rows.
func parseConstituentTable(doc *goquery.Document, src IndexSource) []models.Constituent {
	var constituents []models.Constituent

	doc.Find("table.wikitable").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		tickerCol, companyCol := -1, -1
		table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
			switch header := strings.TrimSpace(th.Text()); {
			case strings.EqualFold(header, src.TickerColumn):
				tickerCol = i
			case strings.EqualFold(header, src.CompanyColumn):
				companyCol = i
			}
		})
		if tickerCol < 0 || companyCol < 0 {
			return true // not the constituent table; keep looking
		}

		seen := make(map[string]bool)
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= tickerCol || cells.Length() <= companyCol {
				return
			}
			symbol := strings.TrimSpace(cells.Eq(tickerCol).Text())
			company := strings.TrimSpace(cells.Eq(companyCol).Text())
			if symbol == "" || seen[symbol] {
				return
			}
			seen[symbol] = true
			constituents = append(constituents, models.Constituent{
				Symbol:  symbol,
				Company: company,
			})
		})
		return false // matched table found; stop
	})

	return constituents
}
