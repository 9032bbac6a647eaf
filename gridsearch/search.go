package gridsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/salescast/sarima"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

var (
	// ErrNoViableConfig is returned when every candidate failed.
	ErrNoViableConfig = errors.New("no viable configuration")

	// ErrFitTimeout marks a candidate that did not finish within FitTimeout.
	ErrFitTimeout = errors.New("fit timed out")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid search configuration")
)

// Forecaster produces point forecasts from a fitted candidate.
type Forecaster interface {
	Predict(steps int) ([]float64, error)
}

// FitFunc fits order on train. It should return promptly once ctx is done.
type FitFunc func(ctx context.Context, order sarima.Order, train *timeseries.Series) (Forecaster, error)

// FitSARIMA is the default FitFunc.
func FitSARIMA(ctx context.Context, order sarima.Order, train *timeseries.Series) (Forecaster, error) {
	model := sarima.NewWithOrder(order)
	if err := model.Fit(ctx, train); err != nil {
		return nil, err
	}
	return model, nil
}

// Config holds configuration for the candidate search.
type Config struct {
	MaxP   int // Maximum AR order (default: 2)
	MaxQ   int // Maximum MA order (default: 2)
	MaxSP  int // Maximum seasonal AR order (default: 2)
	MaxSD  int // Maximum seasonal differencing order (default: 4)
	MaxSQ  int // Maximum seasonal MA order (default: 2)
	Period int // Seasonal period (default: 12)

	Horizon    int           // Held-out points (default: 12)
	Workers    int           // Parallel fits, GOMAXPROCS when < 1
	FitTimeout time.Duration // Per-candidate limit, none when 0
	MaxFits    int           // Evaluate only the first MaxFits candidates, all when 0
	Trace      bool          // Keep every outcome in Result.Outcomes

	Fit    FitFunc      // FitSARIMA when nil
	Logger *slog.Logger // slog.Default() when nil
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:       2,
		MaxQ:       2,
		MaxSP:      2,
		MaxSD:      4,
		MaxSQ:      2,
		Period:     12,
		Horizon:    12,
		FitTimeout: 10 * time.Second,
	}
}

// Validate reports whether the configuration can be searched.
func (c *Config) Validate() error {
	switch {
	case c.MaxP < 0 || c.MaxQ < 0 || c.MaxSP < 0 || c.MaxSD < 0 || c.MaxSQ < 0:
		return fmt.Errorf("%w: negative maximum order", ErrInvalidConfig)
	case c.Period < 1:
		return fmt.Errorf("%w: period must be positive", ErrInvalidConfig)
	case c.Horizon < 1:
		return fmt.Errorf("%w: horizon must be positive", ErrInvalidConfig)
	case c.FitTimeout < 0 || c.MaxFits < 0:
		return fmt.Errorf("%w: negative limit", ErrInvalidConfig)
	}
	return nil
}

// Outcome is the result of evaluating one candidate. Err is nil on success.
type Outcome struct {
	Index    int // position in Grid
	Order    sarima.Order
	MAE      float64
	Forecast []float64
	Err      error
}

// OK reports whether the candidate produced a usable forecast.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// better orders successful outcomes by MAE, then by grid position.
func better(a, b Outcome) bool {
	if a.MAE != b.MAE {
		return a.MAE < b.MAE
	}
	return a.Index < b.Index
}

// Result represents the result of a search.
type Result struct {
	Best Outcome

	Candidates int // size of the grid
	Attempted  int
	Succeeded  int
	Failed     int // includes TimedOut
	TimedOut   int
	Skipped    int // not attempted because of MaxFits

	Duration time.Duration
	Outcomes []Outcome // every attempted outcome in grid order, with Trace
}

type tally struct {
	best      Outcome
	found     bool
	attempted int
	succeeded int
	failed    int
	timedOut  int
}

// Search evaluates the grid for series with differencing order d and
// returns the candidate with the lowest back-test MAE. Individual candidate
// failures never abort the search; ErrNoViableConfig is returned when none
// succeeded. Cancelling ctx stops the search and returns ctx.Err().
func Search(ctx context.Context, series *timeseries.Series, d int, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	train, test, err := series.SplitTail(cfg.Horizon)
	if err != nil {
		return nil, err
	}

	fit := cfg.Fit
	if fit == nil {
		fit = FitSARIMA
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	grid := Grid(d, cfg)
	res := &Result{Candidates: len(grid)}
	if cfg.MaxFits > 0 && cfg.MaxFits < len(grid) {
		res.Skipped = len(grid) - cfg.MaxFits
		grid = grid[:cfg.MaxFits]
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(grid))

	var outcomes []Outcome
	if cfg.Trace {
		outcomes = make([]Outcome, len(grid))
	}

	start := time.Now()
	tallies := make([]tally, workers)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := &tallies[w]
			for i := w; i < len(grid); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}

				o := evaluate(gctx, fit, i, grid[i], train, test, cfg.FitTimeout)
				local.attempted++

				if outcomes != nil {
					outcomes[i] = o
				}

				if !o.OK() {
					// A parent cancellation is not a candidate failure.
					if ctx.Err() != nil {
						return ctx.Err()
					}
					local.failed++
					if errors.Is(o.Err, ErrFitTimeout) {
						local.timedOut++
					}
					log.Debug("candidate_failed",
						"series", series.Name,
						"order", o.Order.String(),
						"error", o.Err)
					continue
				}

				local.succeeded++
				if !local.found || better(o, local.best) {
					local.best = o
					local.found = true
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := false
	for _, t := range tallies {
		res.Attempted += t.attempted
		res.Succeeded += t.succeeded
		res.Failed += t.failed
		res.TimedOut += t.timedOut
		if t.found && (!found || better(t.best, res.Best)) {
			res.Best = t.best
			found = true
		}
	}
	res.Duration = time.Since(start)
	res.Outcomes = outcomes

	log.Info("search_done",
		"series", series.Name,
		"d", d,
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"timed_out", res.TimedOut,
		"duration", res.Duration)

	if !found {
		return res, fmt.Errorf("%w: %d of %d candidates failed", ErrNoViableConfig, res.Failed, res.Attempted)
	}

	log.Debug("search_best",
		"series", series.Name,
		"order", res.Best.Order.String(),
		"mae", res.Best.MAE)

	return res, nil
}

type fitted struct {
	forecast []float64
	err      error
}

// evaluate fits and scores one candidate. The fit runs in its own goroutine
// so a FitFunc that ignores its context still cannot hold the worker past
// the timeout.
func evaluate(ctx context.Context, fit FitFunc, index int, order sarima.Order, train, test *timeseries.Series, timeout time.Duration) Outcome {
	out := Outcome{Index: index, Order: order, MAE: math.Inf(1)}

	fctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := make(chan fitted, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fitted{err: fmt.Errorf("fit panicked: %v", r)}
			}
		}()
		model, err := fit(fctx, order, train)
		if err != nil {
			ch <- fitted{err: err}
			return
		}
		forecast, err := model.Predict(test.Len())
		ch <- fitted{forecast: forecast, err: err}
	}()

	var r fitted
	select {
	case r = <-ch:
	case <-fctx.Done():
		r = fitted{err: fctx.Err()}
	}

	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			out.Err = fmt.Errorf("%w after %s: %w", ErrFitTimeout, timeout, r.err)
		} else {
			out.Err = r.err
		}
		return out
	}

	mae, err := stats.MAE(test.Values, r.forecast)
	if err != nil {
		out.Err = fmt.Errorf("score %s: %w", order, err)
		return out
	}
	if math.IsNaN(mae) || math.IsInf(mae, 0) {
		out.Err = fmt.Errorf("score %s: %w", order, sarima.ErrNonFinite)
		return out
	}

	out.MAE = mae
	out.Forecast = r.forecast
	return out
}
