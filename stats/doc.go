// Package stats provides the statistical tests behind model selection.
//
// # Stationarity
//
// ADF runs the Augmented Dickey-Fuller test with a constant term and
// MacKinnon p-values. DifferencingOrder applies it repeatedly to pick the
// smallest number of first differences that makes a series stationary:
//
//	st, err := stats.DifferencingOrder(series, 2, stats.DefaultAlpha)
//	if errors.Is(err, stats.ErrNonStationary) {
//	    // skip the series
//	}
//	fmt.Println(st.D, st.PValue)
//
// A series that is constant at some order is accepted at that order without
// running the test.
//
// # Diagnostics and metrics
//
// LjungBox tests residuals for remaining autocorrelation. MAE, RMSE and
// MAPE score a forecast against held-out actuals.
package stats
