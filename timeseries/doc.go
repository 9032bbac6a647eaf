// Package timeseries provides the monthly series type shared by the
// forecasting packages.
//
// A Series pairs month-start timestamps with values. Series produced by the
// sales package are strictly increasing by month with no gaps; New and
// NewMonthly build such series directly from values.
//
// # Creating a Series
//
//	series := timeseries.NewMonthly(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
//	    []float64{100, 102, 105, 103, 108, 110})
//
// # Differencing
//
//	diff := series.Diff()             // first difference, one point shorter
//	diff2 := series.DiffTimes(2)      // first difference applied twice
//	sdiff := series.SeasonalDiff(12)  // y[t] - y[t-12]
//
// # Back-test Split
//
// Hold out the final h months:
//
//	train, test, err := series.SplitTail(12)
//	if errors.Is(err, timeseries.ErrSplitTooShort) {
//	    // not enough history
//	}
//
// # Month Arithmetic
//
//	m := timeseries.MonthStart(t)          // first instant of t's month, UTC
//	next := timeseries.AddMonths(m, 1)
//	months := timeseries.MonthRange(m, 12) // the 12 month starts after m
package timeseries
