package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sartorproj/salescast/gridsearch"
	"github.com/sartorproj/salescast/sales"
	"github.com/sartorproj/salescast/sarima"
	"github.com/sartorproj/salescast/timeseries"
)

var (
	quiet = slog.New(slog.NewTextHandler(io.Discard, nil))
	jan15 = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func monthlyRecords(category string, start time.Time, values []float64) []sales.Record {
	records := make([]sales.Record, 0, len(values))
	for i, v := range values {
		day := timeseries.AddMonths(start, i).AddDate(0, 0, 14)
		records = append(records, sales.Record{
			Date:     day.Format("02-01-2006"),
			Category: category,
			Sales:    decimal.NewFromFloat(v),
		})
	}
	return records
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Search.Workers = 4
	cfg.Logger = quiet
	return cfg
}

func TestRunScenarios(t *testing.T) {
	trend := make([]float64, 36)
	for i := range trend {
		trend[i] = 10 + 3*float64(i)
	}

	var records []sales.Record
	records = append(records, monthlyRecords("Furniture", jan15, constant(36, 100))...)
	records = append(records, monthlyRecords("Technology", jan15, constant(14, 80))...)
	records = append(records, monthlyRecords("Office Supplies", jan15, constant(36, 60))...)
	records = append(records, monthlyRecords("Appliances", jan15, constant(36, 50))...)
	records = append(records, monthlyRecords("Trend", jan15, trend)...)
	records = append(records, sales.Record{Date: "someday", Category: "Undated", Sales: decimal.NewFromInt(5)})
	ds := sales.NewDataset(records)

	cfg := testConfig()
	cfg.MaxDifferencing = 0
	cfg.Search.Fit = func(ctx context.Context, order sarima.Order, train *timeseries.Series) (gridsearch.Forecaster, error) {
		if train.Name == "Office Supplies" {
			return nil, errors.New("injected fault")
		}
		return gridsearch.FitSARIMA(ctx, order, train)
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report := engine.Run(context.Background(), ds)

	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("Expected a UUID run id, got %q", report.RunID)
	}

	for _, category := range []string{"Furniture", "Appliances"} {
		if report.Models[category] == nil || report.Backtests[category] == nil {
			t.Errorf("Expected %s to be forecast", category)
		}
	}

	wantSkips := map[string]SkipReason{
		"Technology":      SkipData,
		"Office Supplies": SkipNoViableModel,
		"Trend":           SkipNonStationary,
		"Undated":         SkipData,
	}
	if len(report.Skipped) != len(wantSkips) {
		t.Fatalf("Expected %d skipped categories, got %v", len(wantSkips), report.Skipped)
	}
	for _, skip := range report.Skipped {
		if want := wantSkips[skip.Category]; skip.Reason != want {
			t.Errorf("%s: expected reason %s, got %s (%v)", skip.Category, want, skip.Reason, skip.Err)
		}
		if _, ok := report.Models[skip.Category]; ok {
			t.Errorf("Skipped category %s should have no model", skip.Category)
		}
	}

	if skip := findSkip(report, "Technology"); !errors.Is(skip.Err, ErrInsufficientHistory) {
		t.Errorf("Expected ErrInsufficientHistory for Technology, got %v", skip.Err)
	}
	if skip := findSkip(report, "Undated"); !errors.Is(skip.Err, ErrNoValidDates) {
		t.Errorf("Expected ErrNoValidDates, got %v", skip.Err)
	}
	if skip := findSkip(report, "Office Supplies"); !errors.Is(skip, ErrNoViableModel) {
		t.Errorf("Expected ErrNoViableModel, got %v", skip.Err)
	}
}

func findSkip(r *Report, category string) Skip {
	for _, s := range r.Skipped {
		if s.Category == category {
			return s
		}
	}
	return Skip{}
}

func TestRunConstantCategory(t *testing.T) {
	ds := sales.NewDataset(monthlyRecords("Furniture", jan15, constant(36, 100)))

	engine, err := NewEngine(testConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report := engine.Run(context.Background(), ds)

	r := report.Results["Furniture"]
	if r == nil {
		t.Fatalf("Expected Furniture to be forecast, skipped: %v", report.Skipped)
	}
	if r.D != 0 || !r.Degenerate {
		t.Errorf("Expected degenerate d=0, got d=%d degenerate=%v", r.D, r.Degenerate)
	}
	if r.MAE > 1e-6 {
		t.Errorf("Expected near-zero MAE, got %f", r.MAE)
	}
	if r.Backtest.Len() != 12 || r.Future.Len() != 12 {
		t.Fatalf("Expected 12-month forecasts, got %d and %d", r.Backtest.Len(), r.Future.Len())
	}
	for i := 0; i < 12; i++ {
		if math.Abs(r.Backtest.Values[i]-100) > 1e-6 || math.Abs(r.Future.Values[i]-100) > 1e-6 {
			t.Errorf("Month %d: backtest %f future %f, want 100", i, r.Backtest.Values[i], r.Future.Values[i])
		}
	}
	if r.Search.Attempted != 405 {
		t.Errorf("Expected 405 candidates attempted, got %d", r.Search.Attempted)
	}
}

func TestForecastWindows(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 400 + 80*math.Sin(2*math.Pi*float64(i)/12) + float64(i%7)
	}
	ds := sales.NewDataset(monthlyRecords("Furniture", jan15, values))

	cfg := testConfig()
	cfg.Search.MaxP, cfg.Search.MaxQ = 1, 1
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	r, err := engine.Category(context.Background(), ds, "Furniture")
	if err != nil {
		t.Fatalf("Category: %v", err)
	}

	trainEnd := r.Model.TrainEnd
	if want := timeseries.AddMonths(jan15, 35); !trainEnd.Equal(want) {
		t.Errorf("Expected train cutoff %v, got %v", want, trainEnd)
	}
	for i := 0; i < 12; i++ {
		if want := timeseries.AddMonths(trainEnd, i+1); !r.Backtest.Timestamps[i].Equal(want) {
			t.Errorf("Backtest month %d = %v, want %v", i, r.Backtest.Timestamps[i], want)
		}
		if !r.Backtest.Timestamps[i].Equal(r.Actual.Timestamps[i]) {
			t.Errorf("Backtest month %d not aligned with the held-out month", i)
		}
		if want := timeseries.AddMonths(trainEnd, 12+i+1); !r.Future.Timestamps[i].Equal(want) {
			t.Errorf("Future month %d = %v, want %v", i, r.Future.Timestamps[i], want)
		}
	}

	t.Logf("best %s MAE=%.2f RMSE=%.2f MAPE=%.2f%%", r.Model.Order, r.MAE, r.RMSE, r.MAPE)
}

func TestProduceIdempotent(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 200 + 30*math.Cos(2*math.Pi*float64(i)/12) + float64(i%4)
	}
	series := timeseries.NewMonthly(jan15, values)
	train, _, err := series.SplitTail(12)
	if err != nil {
		t.Fatal(err)
	}

	order := sarima.Order{P: 1, D: 0, Q: 1, SP: 0, SD: 1, SQ: 0, M: 12}
	first, err := Produce(context.Background(), "Furniture", order, train, 12)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	second, err := Produce(context.Background(), "Furniture", order, train, 12)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	for i := 0; i < 12; i++ {
		if first.Backtest.Values[i] != second.Backtest.Values[i] || first.Future.Values[i] != second.Future.Values[i] {
			t.Errorf("Month %d differs between identical runs", i)
		}
	}

	interval, err := first.Model.ForecastWithInterval(24, 0.8)
	if err != nil {
		t.Fatalf("ForecastWithInterval: %v", err)
	}
	for i := 0; i < 12; i++ {
		if interval.Forecast.Values[12+i] != first.Future.Values[i] {
			t.Errorf("Interval forecast month %d differs from future forecast", 12+i)
		}
	}
	if first.Model.Summary() == nil {
		t.Error("Expected a model summary")
	}
}

func TestRunCache(t *testing.T) {
	ds := sales.NewDataset(monthlyRecords("Furniture", jan15, constant(30, 100)))

	cfg := testConfig()
	cfg.CacheTTL = time.Minute
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	first := engine.Run(context.Background(), ds)
	second := engine.Run(context.Background(), ds)

	if first.Results["Furniture"] == nil || second.Results["Furniture"] == nil {
		t.Fatal("Expected Furniture in both runs")
	}
	if first.Results["Furniture"].Cached {
		t.Error("First run should not be cached")
	}
	if !second.Results["Furniture"].Cached {
		t.Error("Second run should be served from the cache")
	}
	if first.Models["Furniture"] != second.Models["Furniture"] {
		t.Error("Cached run should return the same model")
	}
	if first.RunID == second.RunID {
		t.Error("Each run should have its own id")
	}
}

func TestRunCanceled(t *testing.T) {
	var records []sales.Record
	records = append(records, monthlyRecords("Furniture", jan15, constant(36, 100))...)
	records = append(records, monthlyRecords("Appliances", jan15, constant(36, 50))...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, err := NewEngine(testConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report := engine.Run(ctx, sales.NewDataset(records))

	if len(report.Models) != 0 || len(report.Skipped) != 2 {
		t.Fatalf("Expected every category skipped, got models=%d skipped=%d", len(report.Models), len(report.Skipped))
	}
	for _, s := range report.Skipped {
		if s.Reason != SkipCanceled {
			t.Errorf("%s: expected canceled, got %s", s.Category, s.Reason)
		}
	}
}

func TestRunProgressAndWorkers(t *testing.T) {
	var records []sales.Record
	for _, c := range []string{"A", "B", "C", "D"} {
		records = append(records, monthlyRecords(c, jan15, constant(30, 10))...)
	}
	records = append(records, monthlyRecords("Short", jan15, constant(5, 10))...)

	var calls []int
	cfg := testConfig()
	cfg.CategoryWorkers = 3
	cfg.Progress = func(category string, done, total int) {
		if total != 5 {
			t.Errorf("Expected total 5, got %d", total)
		}
		calls = append(calls, done)
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report := engine.Run(context.Background(), sales.NewDataset(records))

	if len(calls) != 5 {
		t.Fatalf("Expected 5 progress calls, got %d", len(calls))
	}
	for i, done := range calls {
		if done != i+1 {
			t.Errorf("Progress call %d reported %d", i, done)
		}
	}
	if len(report.Models) != 4 || len(report.Skipped) != 1 {
		t.Errorf("Expected 4 models and 1 skip, got %d and %d", len(report.Models), len(report.Skipped))
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero horizon", func(c *Config) { c.Horizon = 0 }},
		{"alpha out of range", func(c *Config) { c.Alpha = 1.5 }},
		{"negative differencing", func(c *Config) { c.MaxDifferencing = -1 }},
		{"bad grid", func(c *Config) { c.Search.Period = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if _, err := NewEngine(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
