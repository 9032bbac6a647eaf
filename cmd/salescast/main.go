// Command salescast forecasts monthly sales per product category.
//
// It loads sales records from a CSV file or a SQL database, selects a
// SARIMA model for every category by back-testing the candidate grid on the
// last months of history, and prints the back-test and future forecasts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/gridsearch"
	"github.com/sartorproj/salescast/internal/config"
	"github.com/sartorproj/salescast/internal/logger"
	"github.com/sartorproj/salescast/sales"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "salescast: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if path := envPath(os.Args[1:]); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Flags default to the environment and override it.
	fs := flag.NewFlagSet("salescast", flag.ExitOnError)
	fs.String("env", "", "path to a .env file (default: ./.env when present)")
	fs.StringVar(&cfg.Input, "input", cfg.Input, "sales CSV file")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "database source (mysql://, mariadb://, sqlite:// or a file path)")
	fs.StringVar(&cfg.Query, "query", cfg.Query, "query returning date, category, sales")
	fs.StringVar(&cfg.DateColumn, "date-column", cfg.DateColumn, "CSV date column")
	fs.StringVar(&cfg.CategoryColumn, "category-column", cfg.CategoryColumn, "CSV category column")
	fs.StringVar(&cfg.SalesColumn, "sales-column", cfg.SalesColumn, "CSV sales column")
	fs.IntVar(&cfg.Horizon, "horizon", cfg.Horizon, "back-test and forecast months")
	fs.IntVar(&cfg.MinTrain, "min-train", cfg.MinTrain, "minimum training months")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel fits per category")
	fs.IntVar(&cfg.CategoryWorkers, "category-workers", cfg.CategoryWorkers, "categories processed at once")
	fs.DurationVar(&cfg.FitTimeout, "fit-timeout", cfg.FitTimeout, "budget per candidate fit (0 = none)")
	fs.DurationVar(&cfg.CategoryTimeout, "category-timeout", cfg.CategoryTimeout, "budget per category (0 = none)")
	fs.IntVar(&cfg.MaxFits, "max-fits", cfg.MaxFits, "candidates tried per category (0 = whole grid)")
	fs.IntVar(&cfg.MaxDiff, "max-diff", cfg.MaxDiff, "maximum differencing order")
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "stationarity significance level")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "result cache lifetime (0 = disabled)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "JSON export path")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	log := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return err
	}

	printHeader("SALES DATA")
	printSummaries(ds)

	search := gridsearch.DefaultConfig()
	search.Workers = cfg.Workers
	search.FitTimeout = cfg.FitTimeout
	search.MaxFits = cfg.MaxFits

	fcfg := forecast.DefaultConfig()
	fcfg.Horizon = cfg.Horizon
	fcfg.MinTrainLength = cfg.MinTrain
	fcfg.MaxDifferencing = cfg.MaxDiff
	fcfg.Alpha = cfg.Alpha
	fcfg.Search = search
	fcfg.CategoryWorkers = cfg.CategoryWorkers
	fcfg.CategoryTimeout = cfg.CategoryTimeout
	fcfg.CacheTTL = cfg.CacheTTL
	fcfg.Logger = log

	bar := progressbar.Default(int64(len(ds.Categories())), "forecasting")
	fcfg.Progress = func(string, int, int) {
		_ = bar.Add(1)
	}

	engine, err := forecast.NewEngine(fcfg)
	if err != nil {
		return err
	}
	report := engine.Run(ctx, ds)
	_ = bar.Finish()

	printHeader("FORECASTS")
	printReport(report)

	if cfg.Output != "" {
		if err := writeExport(cfg.Output, report); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("\nExported %d categories to %s\n", len(report.Results), cfg.Output)
	}
	return nil
}

// envPath finds -env before the other flags are parsed, since the file it
// names supplies their defaults.
func envPath(args []string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		switch {
		case a == "--":
			return ""
		case name == "env" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(name, "env="):
			return strings.TrimPrefix(name, "env=")
		}
	}
	return ""
}

func loadDataset(ctx context.Context, cfg *config.Config) (*sales.Dataset, error) {
	var (
		ds  *sales.Dataset
		st  sales.LoadStats
		err error
	)
	switch {
	case cfg.Input != "":
		ds, st, err = sales.LoadCSV(cfg.Input, &sales.CSVOptions{
			DateColumn:     cfg.DateColumn,
			CategoryColumn: cfg.CategoryColumn,
			SalesColumn:    cfg.SalesColumn,
		})
	case cfg.DSN != "":
		db, openErr := sales.OpenDB(cfg.DSN)
		if openErr != nil {
			return nil, openErr
		}
		defer db.Close()
		ds, st, err = sales.LoadSQL(ctx, db, cfg.Query)
	default:
		return nil, fmt.Errorf("no input: set -input or -dsn")
	}
	if err != nil {
		return nil, err
	}

	logger.L.Info("dataset_loaded",
		"rows", st.Rows,
		"loaded", st.Loaded,
		"bad_sales", st.BadSales,
		"no_category", st.NoCategory,
		"invalid_dates", st.InvalidDates)
	return ds, nil
}

func printHeader(title string) {
	fmt.Printf("\n%s\n%s\n%s\n", strings.Repeat("=", 80), title, strings.Repeat("=", 80))
}

func printSummaries(ds *sales.Dataset) {
	for _, s := range ds.Summaries() {
		if s.First.IsZero() {
			fmt.Printf("   %-20s %6d records, no valid dates\n", s.Category, s.Records)
			continue
		}
		fmt.Printf("   %-20s %6d records  %s to %s  total %s\n",
			s.Category, s.Records,
			s.First.Format("2006-01-02"), s.Last.Format("2006-01-02"),
			s.Total.StringFixed(2))
	}
}

func printReport(r *forecast.Report) {
	for _, s := range r.Skipped {
		fmt.Printf("\n%s: skipped (%s): %v\n", s.Category, s.Reason, s.Err)
	}

	for _, category := range sortedResults(r) {
		res := r.Results[category]
		fmt.Printf("\n%s: %s", category, res.Model.Order)
		if res.Cached {
			fmt.Print(" (cached)")
		}
		fmt.Printf("\n   d=%d  MAE=%.2f  RMSE=%.2f  MAPE=%s  (%d/%d candidates fitted)\n",
			res.D, res.MAE, res.RMSE, formatPercent(res.MAPE), res.Search.Succeeded, res.Search.Attempted)

		fmt.Printf("   %-8s %12s %12s\n", "month", "actual", "backtest")
		for i, t := range res.Backtest.Timestamps {
			fmt.Printf("   %-8s %12.2f %12.2f\n", t.Format("2006-01"), res.Actual.Values[i], res.Backtest.Values[i])
		}
		fmt.Printf("   %-8s %12s\n", "month", "forecast")
		for i, t := range res.Future.Timestamps {
			fmt.Printf("   %-8s %12.2f\n", t.Format("2006-01"), res.Future.Values[i])
		}
	}

	fmt.Printf("\nRun %s: %d forecast, %d skipped in %s\n",
		r.RunID, len(r.Results), len(r.Skipped), r.Duration.Round(time.Millisecond))
}
