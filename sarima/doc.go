// Package sarima implements Seasonal ARIMA (SARIMA) models.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model differences the series d times at lag 1
// and D times at lag m, then fits AR(p), MA(q), seasonal AR(P) and seasonal
// MA(Q) terms by conditional sum of squares:
//
//	model := sarima.New(1, 1, 0, 0, 1, 1, 12)
//	if err := model.Fit(ctx, series); err != nil {
//	    return err
//	}
//	forecasts, lower, upper, err := model.PredictWithInterval(12, 0.95)
//
// Fit honours ctx cancellation between optimizer iterations. Forecasts are
// integrated back through every differencing step, so any combination of
// d and D is returned on the original scale. Fits whose residuals or
// forecasts are not finite report ErrNonFinite.
package sarima
