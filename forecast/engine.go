package forecast

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salescast/gridsearch"
	"github.com/sartorproj/salescast/sales"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// SearchStats summarizes the candidate search of one category.
type SearchStats struct {
	Candidates int
	Attempted  int
	Succeeded  int
	Failed     int
	TimedOut   int
	Skipped    int
	Duration   time.Duration
}

// CategoryResult is everything produced for one forecast category.
type CategoryResult struct {
	Category string
	Model    *CategoryModel
	Backtest *timeseries.Series
	Future   *timeseries.Series
	Actual   *timeseries.Series // held-out months the back-test is scored against

	D          int     // differencing order from the stationarity test
	PValue     float64 // ADF p-value at D, NaN when the series was constant
	Degenerate bool    // series constant at order D

	MAE  float64
	RMSE float64
	MAPE float64 // NaN when every actual value is zero

	Search SearchStats
	Cached bool
}

// Report is the output of Engine.Run. Models and Backtests have an entry
// for every category in Results; Skipped lists the others.
type Report struct {
	RunID     string
	Models    map[string]*CategoryModel
	Backtests map[string]*timeseries.Series
	Futures   map[string]*timeseries.Series
	Results   map[string]*CategoryResult
	Skipped   []Skip
	Started   time.Time
	Duration  time.Duration
}

// Engine runs the per-category forecasting pipeline.
type Engine struct {
	cfg    Config
	search gridsearch.Config
	cache  *cache.Cache
	log    *slog.Logger
}

// NewEngine validates cfg and creates an Engine.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: *cfg, log: cfg.Logger}
	if e.log == nil {
		e.log = slog.Default()
	}
	if cfg.Search != nil {
		e.search = *cfg.Search
	} else {
		e.search = *gridsearch.DefaultConfig()
	}
	e.search.Horizon = cfg.Horizon
	if e.cfg.CategoryWorkers < 1 {
		e.cfg.CategoryWorkers = 1
	}
	if cfg.CacheTTL > 0 {
		e.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return e, nil
}

// Run forecasts every category of ds. It always returns a report; a
// category that fails is recorded in Report.Skipped and does not affect
// the others. Cancelling ctx skips the categories not yet finished.
func (e *Engine) Run(ctx context.Context, ds *sales.Dataset) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		Models:    make(map[string]*CategoryModel),
		Backtests: make(map[string]*timeseries.Series),
		Futures:   make(map[string]*timeseries.Series),
		Results:   make(map[string]*CategoryResult),
		Started:   time.Now(),
	}
	log := e.log.With("run_id", report.RunID)

	categories := ds.Categories()
	results := make([]*CategoryResult, len(categories))
	errs := make([]error, len(categories))

	log.Info("run_started", "categories", len(categories), "category_workers", e.cfg.CategoryWorkers)

	var mu sync.Mutex
	done := 0

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.CategoryWorkers)
	for i, category := range categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
			} else {
				results[i], errs[i] = e.category(ctx, log, ds, category)
			}

			if e.cfg.Progress != nil {
				mu.Lock()
				done++
				e.cfg.Progress(category, done, len(categories))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, category := range categories {
		if err := errs[i]; err != nil {
			skip := Skip{Category: category, Reason: classify(err), Err: err}
			report.Skipped = append(report.Skipped, skip)
			log.Warn("category_skipped", "category", category, "reason", string(skip.Reason), "error", err)
			continue
		}
		r := results[i]
		report.Results[category] = r
		report.Models[category] = r.Model
		report.Backtests[category] = r.Backtest
		report.Futures[category] = r.Future
	}

	report.Duration = time.Since(report.Started)
	log.Info("run_done",
		"forecast", len(report.Results),
		"skipped", len(report.Skipped),
		"duration", report.Duration)

	return report
}

// Category runs the pipeline for a single category.
func (e *Engine) Category(ctx context.Context, ds *sales.Dataset, category string) (*CategoryResult, error) {
	r, err := e.category(ctx, e.log, ds, category)
	if err != nil {
		return nil, Skip{Category: category, Reason: classify(err), Err: err}
	}
	return r, nil
}

func (e *Engine) category(ctx context.Context, log *slog.Logger, ds *sales.Dataset, category string) (*CategoryResult, error) {
	log = log.With("category", category)
	h := e.cfg.Horizon

	series, err := sales.BuildMonthly(ds, category)
	if err != nil {
		return nil, err
	}
	if n := series.Len(); n <= h || n-h < e.cfg.MinTrainLength {
		return nil, fmt.Errorf("%w: %d months, need more than %d plus %d for training",
			ErrInsufficientHistory, n, h, e.cfg.MinTrainLength)
	}

	key := e.cacheKey(series)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			cached := *v.(*CategoryResult)
			cached.Cached = true
			log.Debug("category_cache_hit")
			return &cached, nil
		}
	}

	if e.cfg.CategoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CategoryTimeout)
		defer cancel()
	}

	st, err := stats.DifferencingOrder(series, e.cfg.MaxDifferencing, e.cfg.Alpha)
	if err != nil {
		return nil, err
	}
	log.Debug("stationarity", "d", st.D, "p_value", st.PValue, "degenerate", st.Degenerate)

	search := e.search
	search.Logger = log
	res, err := gridsearch.Search(ctx, series, st.D, &search)
	if err != nil {
		return nil, err
	}

	train, test, err := series.SplitTail(h)
	if err != nil {
		return nil, err
	}
	fc, err := Produce(ctx, category, res.Best.Order, train, h)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("refit %s: %w", res.Best.Order, err)
		}
		return nil, err
	}

	r := &CategoryResult{
		Category:   category,
		Model:      fc.Model,
		Backtest:   fc.Backtest,
		Future:     fc.Future,
		Actual:     test,
		D:          st.D,
		PValue:     st.PValue,
		Degenerate: st.Degenerate,
		Search: SearchStats{
			Candidates: res.Candidates,
			Attempted:  res.Attempted,
			Succeeded:  res.Succeeded,
			Failed:     res.Failed,
			TimedOut:   res.TimedOut,
			Skipped:    res.Skipped,
			Duration:   res.Duration,
		},
	}
	r.MAE, _ = stats.MAE(test.Values, fc.Backtest.Values)
	r.RMSE, _ = stats.RMSE(test.Values, fc.Backtest.Values)
	r.MAPE, _ = stats.MAPE(test.Values, fc.Backtest.Values)

	log.Info("category_done",
		"order", res.Best.Order.String(),
		"mae", r.MAE,
		"rmse", r.RMSE)

	if e.cache != nil {
		e.cache.Set(key, r, cache.DefaultExpiration)
	}
	return r, nil
}

// cacheKey identifies a category's series together with every setting that
// affects its result.
func (e *Engine) cacheKey(series *timeseries.Series) string {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range series.Values {
		bits := math.Float64bits(v)
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	s := e.search
	return fmt.Sprintf("%s|%s|%x|h%d|t%d|d%d|a%g|g%d.%d.%d.%d.%d.%d|f%d",
		series.Name, series.Timestamps[0].Format("2006-01"), h.Sum64(),
		e.cfg.Horizon, e.cfg.MinTrainLength, e.cfg.MaxDifferencing, e.cfg.Alpha,
		s.MaxP, s.MaxQ, s.MaxSP, s.MaxSD, s.MaxSQ, s.Period, s.MaxFits)
}
