// Package movers ranks index constituents by their percentage price change
// over a rolling window of trading days.
package movers

import (
	"sort"

	"github.com/hucanghe/stock-analysis/pkg/models"
)

// Compute ranks symbols by percentage close-to-close change over the last
// window trading days and returns the top-N winners and losers.
//
// For each symbol the trailing min(window, len(series)) points are used; a
// series shorter than the window degrades to all available points rather
// than erroring. Symbols with fewer than two usable points are excluded.
// The change is (last-first)/first*100 over the selected slice. Winners are
// sorted by change descending, losers ascending, and both lists are
// truncated to topN. Exact ties are broken by symbol name ascending so the
// output is deterministic.
//
// Compute is a pure function: it never fails, and identical inputs yield
// identical ordered output.
func Compute(seriesBySymbol map[string]models.PriceSeries, window, topN int) (winners, losers []models.MoverResult) {
	if topN < 1 {
		return nil, nil
	}

	eligible := make([]models.MoverResult, 0, len(seriesBySymbol))
	for symbol, series := range seriesBySymbol {
		tail := series.Last(window)
		if len(tail) < 2 {
			continue
		}
		first := tail[0].Close
		last := tail[len(tail)-1].Close
		if first == 0 {
			continue
		}
		eligible = append(eligible, models.MoverResult{
			Symbol:     symbol,
			ChangePct:  (last - first) / first * 100,
			FirstClose: first,
			LastClose:  last,
		})
	}

	winners = rank(eligible, topN, func(a, b models.MoverResult) bool {
		return a.ChangePct > b.ChangePct
	})
	losers = rank(eligible, topN, func(a, b models.MoverResult) bool {
		return a.ChangePct < b.ChangePct
	})
	return winners, losers
}

// Skipped returns the symbols of seriesBySymbol that Compute would exclude
// for having fewer than two points in the window, sorted ascending. Used to
// surface an informational note alongside the ranked tables.
func Skipped(seriesBySymbol map[string]models.PriceSeries, window int) []string {
	var skipped []string
	for symbol, series := range seriesBySymbol {
		if len(series.Last(window)) < 2 {
			skipped = append(skipped, symbol)
		}
	}
	sort.Strings(skipped)
	return skipped
}

// rank sorts a copy of results with the given ordering, breaking exact
// percentage ties by symbol name, and truncates to topN.
func rank(results []models.MoverResult, topN int, before func(a, b models.MoverResult) bool) []models.MoverResult {
	ranked := make([]models.MoverResult, len(results))
	copy(ranked, results)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ChangePct == ranked[j].ChangePct {
			return ranked[i].Symbol < ranked[j].Symbol
		}
		return before(ranked[i], ranked[j])
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
