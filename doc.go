// Package salescast forecasts monthly sales per product category with
// seasonal ARIMA models.
//
// For every category the sales records are summed into a gap-free monthly
// series, the differencing order is chosen with an augmented Dickey-Fuller
// test, and a grid of SARIMA(p,d,q)(P,D,Q)[12] candidates is back-tested on
// the last months of history. The candidate with the lowest mean absolute
// error is refitted on the training months and forecasts both the held-out
// months and the months after them.
//
// # Quick Start
//
//	ds, _, err := sales.LoadCSV("superstore.csv", nil)
//	if err != nil {
//		return err
//	}
//	engine, err := forecast.NewEngine(forecast.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	report := engine.Run(ctx, ds)
//	for category, future := range report.Futures {
//		fmt.Println(category, future.Values)
//	}
//
// # Packages
//
//   - timeseries: Monthly series, differencing and splitting
//   - sales: Sales records, CSV and SQL loaders, monthly aggregation
//   - stats: Stationarity test, autocorrelation, Ljung-Box, error metrics
//   - sarima: Seasonal ARIMA model fitting and forecasting
//   - gridsearch: Parallel back-test search over candidate orders
//   - forecast: Per-category pipeline and run report
//
// The salescast command in cmd/salescast wraps the pipeline with
// environment configuration, a progress bar and JSON export.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - MacKinnon, J.G. (1994). Approximate asymptotic distribution functions for unit-root tests
package salescast
