package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/sartorproj/salescast/timeseries"
)

func gaussianNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func noisyTrend(n int, slope float64, seed int64) []float64 {
	values := gaussianNoise(n, seed)
	for i := range values {
		values[i] += 50 + slope*float64(i)
	}
	return values
}

func TestACF(t *testing.T) {
	n := 100
	phi := 0.8
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}

	acf := ACF(timeseries.New(values), 10)
	if acf == nil {
		t.Fatal("ACF returned nil")
	}
	if math.Abs(acf[0]-1.0) > 1e-10 {
		t.Errorf("ACF at lag 0 should be 1, got %f", acf[0])
	}
	if acf[1] < 0.5 {
		t.Errorf("Expected strong lag-1 autocorrelation, got %f", acf[1])
	}
}

func TestACFConstantSeries(t *testing.T) {
	if acf := ACF(timeseries.New([]float64{3, 3, 3, 3}), 2); acf != nil {
		t.Errorf("Expected nil ACF for constant series, got %v", acf)
	}
}

func TestADFStationaryNoise(t *testing.T) {
	series := timeseries.New(gaussianNoise(120, 1))
	result := ADF(series, 0)
	if result == nil {
		t.Fatal("ADF returned nil for white noise")
	}

	t.Logf("ADF Statistic: %f, P-Value: %f, Lags: %d", result.Statistic, result.PValue, result.Lags)

	if !result.IsStationary {
		t.Errorf("Expected white noise to be stationary, p=%f", result.PValue)
	}
	if result.NObs != 120-result.Lags-1 {
		t.Errorf("Expected %d regression rows, got %d", 120-result.Lags-1, result.NObs)
	}
}

func TestADFTrendNotStationary(t *testing.T) {
	result := ADF(timeseries.New(noisyTrend(60, 2, 7)), 0)
	if result == nil {
		t.Fatal("ADF returned nil for trending data")
	}

	t.Logf("ADF Trend - Statistic: %f, P-Value: %f", result.Statistic, result.PValue)

	if result.IsStationary {
		t.Errorf("Expected trending series to be non-stationary, p=%f", result.PValue)
	}
}

func TestADFDegenerateInputs(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"too short", []float64{1, 4, 2, 5, 3}},
		{"exact linear trend", func() []float64 {
			v := make([]float64, 40)
			for i := range v {
				v[i] = 10 + 2*float64(i)
			}
			return v
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ADF(timeseries.New(tt.values), 0); result != nil {
				t.Errorf("Expected nil, got %+v", result)
			}
		})
	}
}

func TestMackinnonPValue(t *testing.T) {
	tests := []struct {
		stat float64
		want float64
		tol  float64
	}{
		{-2.86, 0.05, 0.005},
		{-3.43, 0.01, 0.003},
		{-2.57, 0.10, 0.02},
		{3.5, 1, 0},
		{-25, 0, 0},
	}

	for _, tt := range tests {
		got := mackinnonPValue(tt.stat)
		if math.Abs(got-tt.want) > tt.tol {
			t.Errorf("mackinnonPValue(%f) = %f, want %f±%f", tt.stat, got, tt.want, tt.tol)
		}
	}

	prev := 0.0
	for stat := -18.0; stat <= 2.5; stat += 0.25 {
		p := mackinnonPValue(stat)
		if p < prev-1e-9 {
			t.Errorf("p-value not monotone at %f: %f < %f", stat, p, prev)
		}
		prev = p
	}
}

func TestDifferencingOrderConstant(t *testing.T) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 100
	}
	series := timeseries.New(values)

	result, err := DifferencingOrder(series, 2, DefaultAlpha)
	if err != nil {
		t.Fatalf("DifferencingOrder: %v", err)
	}
	if result.D != 0 || !result.Degenerate {
		t.Errorf("Expected degenerate d=0, got d=%d degenerate=%v", result.D, result.Degenerate)
	}
	if result.Original != series {
		t.Error("Expected the original series to be returned unchanged")
	}
}

func TestDifferencingOrderStationary(t *testing.T) {
	result, err := DifferencingOrder(timeseries.New(gaussianNoise(120, 3)), 2, DefaultAlpha)
	if err != nil {
		t.Fatalf("DifferencingOrder: %v", err)
	}
	if result.D != 0 {
		t.Errorf("Expected d=0 for white noise, got %d", result.D)
	}
	if result.PValue > DefaultAlpha {
		t.Errorf("Expected p <= %f, got %f", DefaultAlpha, result.PValue)
	}
	if result.Differenced.Len() != 120 {
		t.Errorf("Expected undifferenced test series, got %d points", result.Differenced.Len())
	}
}

func TestDifferencingOrderTrend(t *testing.T) {
	series := timeseries.New(noisyTrend(60, 2, 11))

	result, err := DifferencingOrder(series, 2, DefaultAlpha)
	if err != nil {
		t.Fatalf("DifferencingOrder: %v", err)
	}
	if result.D != 1 {
		t.Errorf("Expected d=1 for a noisy linear trend, got %d (p=%f)", result.D, result.PValue)
	}
	if result.Differenced.Len() != 59 {
		t.Errorf("Expected 59 differenced points, got %d", result.Differenced.Len())
	}
	if result.Original.Len() != 60 {
		t.Errorf("Expected original series of 60 points, got %d", result.Original.Len())
	}
}

func TestDifferencingOrderExactTrendDegeneratesAtOne(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 5 + 3*float64(i)
	}

	result, err := DifferencingOrder(timeseries.New(values), 2, DefaultAlpha)
	if err != nil {
		t.Fatalf("DifferencingOrder: %v", err)
	}
	if result.D != 1 || !result.Degenerate {
		t.Errorf("Expected degenerate d=1, got d=%d degenerate=%v", result.D, result.Degenerate)
	}
}

func TestDifferencingOrderBounded(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 5 + 3*float64(i)
	}

	_, err := DifferencingOrder(timeseries.New(values), 0, DefaultAlpha)
	if !errors.Is(err, ErrNonStationary) {
		t.Fatalf("Expected ErrNonStationary with maxD=0, got %v", err)
	}
}

func TestDifferencingOrderTooShort(t *testing.T) {
	_, err := DifferencingOrder(timeseries.New([]float64{1, 5, 2, 8, 3, 9}), 2, DefaultAlpha)
	if !errors.Is(err, ErrNonStationary) {
		t.Errorf("Expected ErrNonStationary, got %v", err)
	}
	if !errors.Is(err, ErrSeriesTooShort) {
		t.Errorf("Expected ErrSeriesTooShort cause, got %v", err)
	}
}

func TestMaxDifferencing(t *testing.T) {
	tests := []struct {
		n, limit, want int
	}{
		{36, 2, 2},
		{14, 5, 1},
		{10, 2, 0},
		{100, 0, 0},
	}

	for _, tt := range tests {
		if got := MaxDifferencing(tt.n, tt.limit); got != tt.want {
			t.Errorf("MaxDifferencing(%d, %d) = %d, want %d", tt.n, tt.limit, got, tt.want)
		}
	}
}

func TestLjungBox(t *testing.T) {
	result := LjungBox(timeseries.New(gaussianNoise(100, 5)), 10, 0)
	if result == nil {
		t.Fatal("LjungBox returned nil")
	}

	t.Logf("Ljung-Box - Q: %f, P-Value: %f, DOF: %d", result.Statistic, result.PValue, result.DOF)

	if result.DOF != 10 {
		t.Errorf("Expected 10 degrees of freedom, got %d", result.DOF)
	}

	n := 100
	autocorrelated := make([]float64, n)
	noise := gaussianNoise(n, 6)
	for i := 1; i < n; i++ {
		autocorrelated[i] = 0.9*autocorrelated[i-1] + noise[i]
	}

	result2 := LjungBox(timeseries.New(autocorrelated), 10, 2)
	if result2 == nil {
		t.Fatal("LjungBox returned nil for autocorrelated data")
	}
	if result2.PValue > 0.01 {
		t.Errorf("Expected autocorrelation to be detected, p=%f", result2.PValue)
	}
	if result2.DOF != 8 {
		t.Errorf("Expected 8 degrees of freedom, got %d", result2.DOF)
	}
}
