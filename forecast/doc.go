// Package forecast produces per-category sales forecasts.
//
// Engine.Run processes every category of a sales.Dataset independently:
// it builds the monthly series, finds the differencing order that makes it
// stationary, searches the SARIMA grid for the configuration with the
// lowest back-test error, and fits that configuration on the training part
// of the series. Categories that cannot be forecast are skipped and listed
// in Report.Skipped with a reason; Run itself never fails.
//
//	engine, err := forecast.NewEngine(forecast.DefaultConfig())
//	report := engine.Run(ctx, dataset)
//	for category, model := range report.Models {
//	    backtest := report.Backtests[category]
//	    ...
//	}
//
// The model is fitted on the training months only. The back-test forecast
// covers the held-out last Horizon months, and the future forecast covers
// the Horizon months after those, that is months Horizon+1 through
// 2*Horizon after the training cutoff.
package forecast
