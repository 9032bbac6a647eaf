package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salescast/timeseries"
)

// MinADFLength is the shortest series ADF accepts: with the default lag
// order it leaves ten observations for the test regression.
const MinADFLength = 13

// minRegressionObs is the minimum number of rows in the ADF regression.
const minRegressionObs = 10

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test for unit root with a
// constant term. The null hypothesis is that the series has a unit root.
// A p-value at or below 0.05 rejects it and marks the series stationary.
// Returns nil when the series is too short or the regression is singular.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < minRegressionObs {
		return nil
	}

	// Default lag selection: floor((n-1)^(1/3))
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()
	if diff.IsConstant() {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}) + e_t
	nObs := n - maxLag - 1
	if nObs < minRegressionObs {
		return nil
	}

	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff.Values[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	coeffs, se := olsRegression(x, y)
	if coeffs == nil || se == nil || se[1] == 0 || math.IsNaN(se[1]) {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue <= 0.05,
	}
}

// olsRegression performs ordinary least squares regression.
// Returns coefficients and their standard errors, or nil when the design
// matrix is rank deficient.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, nil
	}

	var resid mat.VecDense
	resid.MulVec(x, &beta)
	resid.SubVec(y, &resid)
	s2 := mat.Dot(&resid, &resid) / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}

	return coeffs, stdErrors
}

// MacKinnon (1994) response surface for a constant-only regression with a
// single integrated variable.
const (
	tauMax  = 2.74
	tauMin  = -18.83
	tauStar = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// mackinnonPValue approximates the ADF p-value for a test statistic.
func mackinnonPValue(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}

	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}

	z := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		z = z*stat + coef[i]
	}
	return distuv.UnitNormal.CDF(z)
}
