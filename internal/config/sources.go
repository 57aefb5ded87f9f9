package config

import "os"

// SourceOrigin represents where an endpoint value comes from.
type SourceOrigin string

const (
	SourceOriginEnv     SourceOrigin = "env"
	SourceOriginConfig  SourceOrigin = "config"
	SourceOriginDefault SourceOrigin = "default"
)

// SourceStatus describes one configured external data endpoint.
type SourceStatus struct {
	Name   string       `json:"name"`
	URL    string       `json:"url"`
	Origin SourceOrigin `json:"origin"`
}

// CheckSources returns the status of all external data endpoints, with
// the origin of each value (environment override, config file, or
// built-in default).
func CheckSources(cfg *Config) []SourceStatus {
	statuses := []SourceStatus{
		checkSource("Price History API", cfg.Sources.YFinanceBaseURL,
			"https://query1.finance.yahoo.com", "STOCKANALYSIS_SOURCES_YFINANCE_BASE_URL"),
		checkSource("News Feed", cfg.Sources.NewsFeedURL,
			"https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US",
			"STOCKANALYSIS_SOURCES_NEWS_FEED_URL"),
	}
	for _, idx := range cfg.Sources.Indices {
		statuses = append(statuses, checkSource(idx.Name+" Constituents", idx.URL, "", ""))
	}
	return statuses
}

// checkSource determines where an endpoint value came from.
func checkSource(name, value, defaultValue, envVar string) SourceStatus {
	status := SourceStatus{
		Name: name,
		URL:  value,
	}

	switch {
	case envVar != "" && os.Getenv(envVar) != "":
		status.Origin = SourceOriginEnv
	case value == defaultValue && defaultValue != "":
		status.Origin = SourceOriginDefault
	default:
		status.Origin = SourceOriginConfig
	}

	return status
}
