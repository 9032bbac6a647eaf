// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epoch is the first month used by New when no timestamps are supplied.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrSplitTooShort is returned by SplitTail when the series cannot provide
// a non-empty train part and a test part of the requested length.
var ErrSplitTooShort = errors.New("series too short for the requested split")

// Series represents a monthly time series with timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a monthly series from values, stamped from Epoch onwards.
func New(values []float64) *Series {
	return NewMonthly(Epoch, values)
}

// NewMonthly creates a series whose i-th value belongs to the month i
// months after the month containing start.
func NewMonthly(start time.Time, values []float64) *Series {
	first := MonthStart(start)
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = AddMonths(first, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the unbiased sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// IsConstant reports whether every value equals the first one.
// Empty and single-point series are constant.
func (s *Series) IsConstant() bool {
	for _, v := range s.Values {
		if v != s.Values[0] {
			return false
		}
	}
	return true
}

// Diff calculates the first difference of the series.
// The result is one point shorter and keeps the later timestamps.
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// DiffTimes applies first differencing d times.
func (s *Series) DiffTimes(d int) *Series {
	out := s
	for i := 0; i < d; i++ {
		out = out.Diff()
	}
	return out
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_seasonal_diff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Values: []float64{}, Name: s.Name + suffix}
	}

	result := make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		result[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	timestamps := make([]time.Time, len(result))
	if len(s.Timestamps) == len(s.Values) {
		copy(timestamps, s.Timestamps[lag:])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     result,
		Name:       s.Name + suffix,
	}
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// SplitTail splits off the last h points as test and returns the
// remaining prefix as train. Both parts must be non-empty.
func (s *Series) SplitTail(h int) (train, test *Series, err error) {
	n := s.Len()
	if h < 1 || n <= h {
		return nil, nil, ErrSplitTooShort
	}
	return s.Slice(0, n-h), s.Slice(n-h, n), nil
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}
}

// Last returns the timestamp of the final observation, or the zero time
// for an empty or unstamped series.
func (s *Series) Last() time.Time {
	if len(s.Timestamps) == 0 || len(s.Timestamps) != len(s.Values) {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}
