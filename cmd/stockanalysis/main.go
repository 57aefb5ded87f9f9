// Index movers dashboard — top winners and losers of a stock market index
// over a rolling trading-day window.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hucanghe/stock-analysis/api"
	"github.com/hucanghe/stock-analysis/internal/config"
	"github.com/hucanghe/stock-analysis/internal/dashboard"
	"github.com/hucanghe/stock-analysis/internal/datasource"
	"github.com/hucanghe/stock-analysis/internal/report"
	"github.com/hucanghe/stock-analysis/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockanalysis",
	Short: "Index movers dashboard — top winners and losers of an index",
	Long: `stockanalysis scrapes the constituent list of a stock market index,
downloads daily closing prices for every member, and ranks the top
winners and losers over a rolling trading-day window. Results are
available as terminal tables, SVG charts, or a web dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(moversCmd)
	rootCmd.AddCommand(constituentsCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newCatalog builds the constituent catalog from config, falling back to
// the built-in index sources.
func newCatalog() *datasource.Wikipedia {
	if len(cfg.Sources.Indices) == 0 {
		return datasource.NewWikipedia()
	}
	sources := make([]datasource.IndexSource, 0, len(cfg.Sources.Indices))
	for _, idx := range cfg.Sources.Indices {
		sources = append(sources, datasource.IndexSource{
			Name:          idx.Name,
			URL:           idx.URL,
			TickerColumn:  idx.TickerColumn,
			CompanyColumn: idx.CompanyColumn,
		})
	}
	return datasource.NewWikipediaWithSources(sources)
}

// newService wires the configured providers into a dashboard service.
func newService() (*dashboard.Service, *datasource.Wikipedia) {
	catalog := newCatalog()

	var yfOpts []datasource.YFinanceOption
	if cfg.Sources.YFinanceBaseURL != "" {
		yfOpts = append(yfOpts, datasource.WithBaseURL(cfg.Sources.YFinanceBaseURL))
	}
	if cfg.Sources.ChunkSize > 0 {
		yfOpts = append(yfOpts, datasource.WithChunkSize(cfg.Sources.ChunkSize))
	}
	if cfg.Sources.ConcurrentFetches > 0 {
		yfOpts = append(yfOpts, datasource.WithConcurrency(cfg.Sources.ConcurrentFetches))
	}
	yf := datasource.NewYFinance(yfOpts...)

	return dashboard.NewService(catalog, yf, cfg.Dashboard.CalendarLookbackDays), catalog
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockanalysis %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Movers Command ---

var moversCmd = &cobra.Command{
	Use:   "movers [index]",
	Short: "Show the top winners and losers of an index",
	Long: `Fetch the constituents of an index, download their recent closing
prices, and print the top winners and losers over the trailing window.

Examples:
  stockanalysis movers "NASDAQ-100"
  stockanalysis movers "S&P 500" --window 10 --top 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, catalog := newService()

		index := ""
		if len(args) > 0 {
			index = args[0]
		} else if names := catalog.Indices(); len(names) > 0 {
			index = names[0]
		}

		windowFlag, _ := cmd.Flags().GetInt("window")
		topFlag, _ := cmd.Flags().GetInt("top")
		window, err := cfg.ValidateWindow(windowFlag)
		if err != nil {
			return err
		}
		topN, err := cfg.ValidateTopN(topFlag)
		if err != nil {
			return err
		}

		fmt.Printf("Fetching %s constituents and %d days of prices…\n", index, window)

		snap, err := svc.Snapshot(cmd.Context(), dashboard.SnapshotRequest{
			Index:  index,
			Window: window,
			TopN:   topN,
		})
		if err != nil {
			return err
		}

		fmt.Printf("\nTop %d Winners — %s (%d trading days)\n", snap.TopN, snap.Index, snap.Window)
		printMoversTable(snap.Winners)

		fmt.Printf("\nTop %d Losers — %s (%d trading days)\n", snap.TopN, snap.Index, snap.Window)
		printMoversTable(snap.Losers)

		if len(snap.Skipped) > 0 {
			fmt.Printf("\nNo usable data for: %s\n", strings.Join(snap.Skipped, ", "))
		}

		if out, _ := cmd.Flags().GetString("output"); out != "" {
			if err := exportSnapshot(cmd, svc, snap, out); err != nil {
				return err
			}
			fmt.Printf("\nWrote %s\n", out)
		}
		return nil
	},
}

func init() {
	moversCmd.Flags().Int("window", 0, "trailing trading-day window (default from config)")
	moversCmd.Flags().Int("top", 0, "number of winners/losers to show (default from config)")
	moversCmd.Flags().StringP("output", "o", "", "export the snapshot as an HTML (or .pdf) report")
}

// exportSnapshot renders the snapshot as a standalone HTML report, with
// inline charts for the leading winner and loser, and writes it to path.
// A .pdf extension converts via an installed HTML-to-PDF engine.
func exportSnapshot(cmd *cobra.Command, svc *dashboard.Service, snap *dashboard.Snapshot, path string) error {
	r := report.MoversReport{
		Index:     snap.Index,
		Window:    snap.Window,
		TopN:      snap.TopN,
		Winners:   snap.Winners,
		Losers:    snap.Losers,
		Skipped:   snap.Skipped,
		Series:    make(map[string]models.PriceSeries),
		FetchedAt: snap.FetchedAt,
	}
	for _, rows := range [][]models.MoverResult{snap.Winners, snap.Losers} {
		if len(rows) == 0 {
			continue
		}
		if series, err := svc.PriceTrend(cmd.Context(), rows[0].Symbol, snap.Window); err == nil {
			r.Series[rows[0].Symbol] = series
		}
	}

	html, err := report.GenerateHTML(r, report.DefaultReportConfig())
	if err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		pdfCfg := report.DefaultPDFConfig()
		pdfCfg.OutputPath = path
		return report.GeneratePDF(html, pdfCfg)
	}
	return os.WriteFile(path, []byte(html), 0644)
}

// printMoversTable prints a ranked movers list as an aligned text table.
func printMoversTable(rows []models.MoverResult) {
	if len(rows) == 0 {
		fmt.Println("  (no data)")
		return
	}
	fmt.Printf("  %-4s %-8s %-32s %10s %10s %9s\n", "#", "Symbol", "Company", "First", "Last", "Change%")
	for i, m := range rows {
		company := m.Company
		if len(company) > 32 {
			company = company[:31] + "…"
		}
		fmt.Printf("  %-4d %-8s %-32s %10.2f %10.2f %+8.2f%%\n",
			i+1, m.Symbol, company, m.FirstClose, m.LastClose, m.ChangePct)
	}
}

// --- Constituents Command ---

var constituentsCmd = &cobra.Command{
	Use:   "constituents [index]",
	Short: "List the constituents of an index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := newCatalog()

		index := ""
		if len(args) > 0 {
			index = args[0]
		} else if names := catalog.Indices(); len(names) > 0 {
			index = names[0]
		}

		constituents, err := catalog.GetConstituents(cmd.Context(), index)
		if err != nil {
			return err
		}

		fmt.Printf("%s — %d constituents\n\n", index, len(constituents))
		for _, c := range constituents {
			fmt.Printf("  %-8s %s\n", c.Symbol, c.Company)
		}
		return nil
	},
}

// --- Chart Command ---

var chartCmd = &cobra.Command{
	Use:   "chart [symbol]",
	Short: "Write an SVG price trend chart for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(args[0])
		svc, _ := newService()

		windowFlag, _ := cmd.Flags().GetInt("window")
		window, err := cfg.ValidateWindow(windowFlag)
		if err != nil {
			return err
		}

		series, err := svc.PriceTrend(cmd.Context(), symbol, window)
		if err != nil {
			return err
		}

		svg := report.PriceTrendChart(symbol, series, report.DefaultChartConfig())

		out, _ := cmd.Flags().GetString("output")
		if out == "" || out == "-" {
			fmt.Println(svg)
			return nil
		}
		if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Printf("Wrote %s (%d points)\n", out, len(series))
		return nil
	},
}

func init() {
	chartCmd.Flags().Int("window", 0, "trailing trading-day window (default from config)")
	chartCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [symbol]",
	Short: "Show recent headlines for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feedURL := cfg.Sources.NewsFeedURL
		if feedURL == "" {
			feedURL = datasource.DefaultNewsFeedURL
		}
		news := datasource.NewNewsWithFeed(feedURL)

		limit, _ := cmd.Flags().GetInt("limit")
		articles, err := news.GetSymbolNews(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		if len(articles) == 0 {
			fmt.Println("No recent headlines.")
			return nil
		}
		for _, a := range articles {
			when := ""
			if !a.PublishedAt.IsZero() {
				when = a.PublishedAt.Format("Jan 02 15:04")
			}
			fmt.Printf("  %-13s %s\n                %s\n", when, a.Title, a.URL)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 10, "maximum number of headlines")
}

// --- Serve Command (API Server + Web UI) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := api.NewServer(cfg)

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting dashboard server on http://%s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve the JSON API only, without the embedded web UI")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and data source status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stockanalysis — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Dashboard controls:")
		fmt.Printf("    Window:    %d trading days (%d–%d)\n",
			cfg.Dashboard.Window, cfg.Dashboard.MinWindow, cfg.Dashboard.MaxWindow)
		fmt.Printf("    Top N:     %d (%d–%d)\n",
			cfg.Dashboard.TopN, cfg.Dashboard.MinTopN, cfg.Dashboard.MaxTopN)
		fmt.Printf("    Lookback:  %d calendar days\n", cfg.Dashboard.CalendarLookbackDays)
		fmt.Printf("    API:       %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  Data sources:")
		for _, s := range config.CheckSources(cfg) {
			fmt.Printf("    %-28s %s (%s)\n", s.Name+":", s.URL, s.Origin)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
