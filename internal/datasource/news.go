package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// DefaultNewsFeedURL is the per-symbol Yahoo Finance headline feed.
// %s is replaced by the ticker symbol.
const DefaultNewsFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// News implements NewsProvider over a per-symbol RSS feed.
type News struct {
	feedURL string
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewNews creates a news provider reading the default Yahoo Finance feed.
func NewNews() *News {
	return NewNewsWithFeed(DefaultNewsFeedURL)
}

// NewNewsWithFeed creates a news provider with a custom feed URL template.
// The template must contain a single %s for the symbol.
func NewNewsWithFeed(feedURL string) *News {
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	return &News{
		feedURL: feedURL,
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  parser,
	}
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance News" }

// GetSymbolNews returns recent headlines for a symbol, newest first.
func (n *News) GetSymbolNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrTickerNotFound)
	}

	cacheKey := fmt.Sprintf("news:%s:%d", symbol, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(fmt.Sprintf(n.feedURL, toYahooSymbol(symbol)), ctx)
	if err != nil {
		return nil, fmt.Errorf("news feed %s: %w", symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:  strings.TrimSpace(item.Title),
			Source: feed.Title,
			URL:    item.Link,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}
