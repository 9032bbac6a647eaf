package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/sartorproj/salescast/gridsearch"
	"github.com/sartorproj/salescast/sales"
	"github.com/sartorproj/salescast/stats"
)

// Category-level failures. Each causes the category to be skipped.
var (
	// ErrNoValidDates: the category has no record with a parseable date.
	ErrNoValidDates = sales.ErrNoValidDates

	// ErrInsufficientHistory: the series cannot be split into a training
	// part of at least MinTrainLength months and Horizon test months.
	ErrInsufficientHistory = errors.New("insufficient history for the back-test horizon")

	// ErrNonStationary: no differencing order up to the maximum passes the
	// stationarity test.
	ErrNonStationary = stats.ErrNonStationary

	// ErrNoViableModel: every candidate configuration failed.
	ErrNoViableModel = gridsearch.ErrNoViableConfig
)

// SkipReason classifies why a category was skipped.
type SkipReason string

const (
	SkipData          SkipReason = "data"
	SkipNonStationary SkipReason = "non_stationary"
	SkipNoViableModel SkipReason = "no_viable_model"
	SkipFitFailed     SkipReason = "fit_failed"
	SkipCanceled      SkipReason = "canceled"
)

// Skip records a category that produced no forecast.
type Skip struct {
	Category string
	Reason   SkipReason
	Err      error
}

func (s Skip) Error() string {
	return fmt.Sprintf("category %q skipped (%s): %v", s.Category, s.Reason, s.Err)
}

func (s Skip) Unwrap() error {
	return s.Err
}

func classify(err error) SkipReason {
	switch {
	case errors.Is(err, ErrNoValidDates), errors.Is(err, ErrInsufficientHistory):
		return SkipData
	case errors.Is(err, ErrNonStationary):
		return SkipNonStationary
	case errors.Is(err, ErrNoViableModel):
		return SkipNoViableModel
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SkipCanceled
	}
	return SkipFitFailed
}
