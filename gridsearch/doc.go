// Package gridsearch selects a SARIMA configuration by back-test error.
//
// For a series with a fixed non-seasonal differencing order d, Search
// splits off the last Horizon points, fits every configuration of the grid
// p, q, P, Q in 0..2 and D in 0..4 (405 with the defaults) on the rest, and
// keeps the one whose forecast has the lowest mean absolute error on the
// held-out points:
//
//	res, err := gridsearch.Search(ctx, series, d, gridsearch.DefaultConfig())
//	if errors.Is(err, gridsearch.ErrNoViableConfig) {
//	    // every candidate failed
//	}
//	fmt.Println(res.Best.Order, res.Best.MAE)
//
// Candidates are evaluated by a pool of workers. Each worker folds its
// share of the grid into a local best and the locals are merged at the
// end, so the winner does not depend on scheduling: ties on MAE go to the
// configuration that comes first in grid order (p outermost, Q innermost).
//
// Each fit runs under its own timeout. Failed, non-finite and timed-out
// candidates are discarded and counted.
package gridsearch
