package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/salescast/timeseries"
)

var (
	// ErrNonStationary is returned when no differencing order up to the
	// allowed maximum produces a stationary series.
	ErrNonStationary = errors.New("series not stationary within the maximum differencing order")

	// ErrSeriesTooShort is returned when a series is too short to test.
	ErrSeriesTooShort = errors.New("series too short for a stationarity test")
)

// DefaultAlpha is the significance level for the unit-root test.
const DefaultAlpha = 0.05

// Stationarity is the outcome of DifferencingOrder.
type Stationarity struct {
	// D is the number of first differences applied.
	D int
	// Differenced is the series after D differences. It is used only for
	// testing; models are fitted on Original with order D.
	Differenced *timeseries.Series
	// Original is the undifferenced input.
	Original *timeseries.Series
	// PValue is the ADF p-value at order D, NaN when Degenerate.
	PValue float64
	// Degenerate is set when the series at order D has zero variance and
	// was accepted without running the test.
	Degenerate bool
}

// MaxDifferencing returns the largest order that keeps a series of length
// n at least MinADFLength points long, capped at limit.
func MaxDifferencing(n, limit int) int {
	bound := n - MinADFLength
	if bound < 0 {
		bound = 0
	}
	if limit < bound {
		return limit
	}
	return bound
}

// DifferencingOrder finds the smallest d such that differencing series d
// times yields an ADF p-value at or below alpha. A constant series (at any
// order) counts as stationary. The search never goes beyond
// MaxDifferencing(series.Len(), maxD); exhausting it returns an error
// wrapping ErrNonStationary.
func DifferencingOrder(series *timeseries.Series, maxD int, alpha float64) (*Stationarity, error) {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	if maxD < 0 {
		maxD = 0
	}

	limit := MaxDifferencing(series.Len(), maxD)
	current := series
	lastP := math.NaN()

	for d := 0; ; d++ {
		if current.Len() > 0 && current.IsConstant() {
			return &Stationarity{
				D:           d,
				Differenced: current,
				Original:    series,
				PValue:      math.NaN(),
				Degenerate:  true,
			}, nil
		}
		if current.Len() < MinADFLength {
			return nil, fmt.Errorf("%w: %w (%d points at d=%d)", ErrNonStationary, ErrSeriesTooShort, current.Len(), d)
		}

		if result := ADF(current, 0); result != nil {
			lastP = result.PValue
			if result.PValue <= alpha {
				return &Stationarity{
					D:           d,
					Differenced: current,
					Original:    series,
					PValue:      result.PValue,
				}, nil
			}
		}

		if d >= limit {
			break
		}
		current = current.Diff()
	}

	return nil, fmt.Errorf("%w: max order %d reached (last p-value %.4f)", ErrNonStationary, limit, lastP)
}
