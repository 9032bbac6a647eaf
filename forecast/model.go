package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/sartorproj/salescast/sarima"
	"github.com/sartorproj/salescast/timeseries"
)

// CategoryModel is the fitted model of one category. It is not modified
// after creation and is safe for concurrent use.
type CategoryModel struct {
	Category   string
	Order      sarima.Order
	TrainStart time.Time // first training month
	TrainEnd   time.Time // last training month, the forecast origin

	model *sarima.Model
}

// FitCategoryModel fits order on train.
func FitCategoryModel(ctx context.Context, category string, order sarima.Order, train *timeseries.Series) (*CategoryModel, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("fit %s: %w", order, sarima.ErrInsufficientData)
	}
	model := sarima.NewWithOrder(order)
	if err := model.Fit(ctx, train); err != nil {
		return nil, err
	}
	return &CategoryModel{
		Category:   category,
		Order:      order,
		TrainStart: train.Timestamps[0],
		TrainEnd:   train.Last(),
		model:      model,
	}, nil
}

// Forecast returns steps monthly predictions starting the month after
// TrainEnd.
func (m *CategoryModel) Forecast(steps int) (*timeseries.Series, error) {
	values, err := m.model.Predict(steps)
	if err != nil {
		return nil, err
	}
	return m.stamp(values), nil
}

// IntervalForecast is a point forecast with prediction bounds.
type IntervalForecast struct {
	Forecast   *timeseries.Series
	Lower      []float64
	Upper      []float64
	Confidence float64
}

// ForecastWithInterval is Forecast with bounds at the given confidence
// level (0.95 when out of range).
func (m *CategoryModel) ForecastWithInterval(steps int, confidence float64) (*IntervalForecast, error) {
	values, lower, upper, err := m.model.PredictWithInterval(steps, confidence)
	if err != nil {
		return nil, err
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	return &IntervalForecast{
		Forecast:   m.stamp(values),
		Lower:      lower,
		Upper:      upper,
		Confidence: confidence,
	}, nil
}

// Summary describes the fitted coefficients and residual diagnostics.
func (m *CategoryModel) Summary() *sarima.Summary {
	return m.model.Summary()
}

func (m *CategoryModel) stamp(values []float64) *timeseries.Series {
	s, _ := timeseries.NewWithTimestamps(timeseries.MonthRange(m.TrainEnd, len(values)), values)
	s.Name = m.Category
	return s
}

// Forecasts is the output of Produce.
type Forecasts struct {
	Model    *CategoryModel
	Backtest *timeseries.Series // months 1..horizon after the training cutoff
	Future   *timeseries.Series // months horizon+1..2*horizon after the cutoff
}

// Produce fits order on train and forecasts 2*horizon months. The first
// horizon months form the back-test forecast and the rest the future
// forecast, so the two never overlap.
func Produce(ctx context.Context, category string, order sarima.Order, train *timeseries.Series, horizon int) (*Forecasts, error) {
	model, err := FitCategoryModel(ctx, category, order, train)
	if err != nil {
		return nil, err
	}

	all, err := model.Forecast(2 * horizon)
	if err != nil {
		return nil, err
	}

	return &Forecasts{
		Model:    model,
		Backtest: all.Slice(0, horizon),
		Future:   all.Slice(horizon, 2*horizon),
	}, nil
}
