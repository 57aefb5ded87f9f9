// Package models defines the core data structures shared across the
// index movers dashboard.
package models

import "time"

// Constituent is a security that is a member of a stock market index.
type Constituent struct {
	Symbol  string `json:"symbol"`  // e.g., "AAPL"
	Company string `json:"company"` // e.g., "Apple Inc."
}

// PricePoint is a single daily closing price observation.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered sequence of daily closes for one symbol,
// sorted by date ascending with unique dates.
type PriceSeries []PricePoint

// Last returns the trailing n points of the series, or the whole series
// when it has fewer than n points.
func (s PriceSeries) Last(n int) PriceSeries {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// MoverResult ranks a symbol by its percentage price change over a window.
// FirstClose and LastClose are the boundary prices the change was
// computed from.
type MoverResult struct {
	Symbol     string  `json:"symbol"`
	Company    string  `json:"company,omitempty"`
	ChangePct  float64 `json:"change_pct"`
	FirstClose float64 `json:"first_close"`
	LastClose  float64 `json:"last_close"`
}

// NewsArticle is a single news headline relating to a symbol.
type NewsArticle struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}
