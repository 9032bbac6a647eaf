package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned by the error metrics when the inputs are
// empty or of different lengths.
var ErrLengthMismatch = errors.New("actual and forecast must be non-empty and of equal length")

// MAE returns the mean absolute error between actual and forecast.
func MAE(actual, forecast []float64) (float64, error) {
	if len(actual) == 0 || len(actual) != len(forecast) {
		return math.NaN(), ErrLengthMismatch
	}
	return floats.Distance(actual, forecast, 1) / float64(len(actual)), nil
}

// RMSE returns the root mean squared error between actual and forecast.
func RMSE(actual, forecast []float64) (float64, error) {
	if len(actual) == 0 || len(actual) != len(forecast) {
		return math.NaN(), ErrLengthMismatch
	}
	return floats.Distance(actual, forecast, 2) / math.Sqrt(float64(len(actual))), nil
}

// MAPE returns the mean absolute percentage error, skipping points where
// the actual value is zero. Returns NaN when every actual value is zero.
func MAPE(actual, forecast []float64) (float64, error) {
	if len(actual) == 0 || len(actual) != len(forecast) {
		return math.NaN(), ErrLengthMismatch
	}
	sum := 0.0
	count := 0
	for i, a := range actual {
		if a == 0 {
			continue
		}
		sum += math.Abs((a - forecast[i]) / a)
		count++
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return 100 * sum / float64(count), nil
}

// AllFinite reports whether every value is neither NaN nor infinite.
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
