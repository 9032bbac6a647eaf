package sarima

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

var (
	// ErrInvalidOrder is returned for negative orders or a seasonal
	// component without a positive period.
	ErrInvalidOrder = errors.New("invalid model order")

	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")

	// ErrNotFitted is returned when forecasting from an unfitted model.
	ErrNotFitted = errors.New("model must be fitted before prediction")

	// ErrNonFinite is returned when fitting or forecasting produces NaN or Inf.
	ErrNonFinite = errors.New("non-finite value produced")
)

// minResidualObs is the number of points beyond the lag structure needed
// for a meaningful conditional sum of squares.
const minResidualObs = 10

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (12 for monthly data with yearly seasonality)
}

// String formats the order as SARIMA(p,d,q)(P,D,Q)[m].
func (o Order) String() string {
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// Validate checks that every order is non-negative and that seasonal
// terms come with a positive period.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 || o.M < 0 {
		return fmt.Errorf("%w: negative order in %s", ErrInvalidOrder, o)
	}
	if o.SP+o.SD+o.SQ > 0 && o.M < 1 {
		return fmt.Errorf("%w: seasonal terms require a period", ErrInvalidOrder)
	}
	return nil
}

// MinObservations returns the shortest series Fit accepts for the order.
func (o Order) MinObservations() int {
	return o.P + o.Q + o.D + o.M*(o.SP+o.SD+o.SQ) + minResidualObs
}

// NumParams is the number of estimated coefficients including the intercept.
func (o Order) NumParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64
	Iter      int // optimizer iterations run

	fitted     bool
	data       *timeseries.Series
	levels     [][]float64 // series before each differencing step, outermost first
	lags       []int       // lag removed at each differencing step
	diffData   []float64
	startIdx   int
	residuals  []float64
	fittedVals []float64
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return NewWithOrder(Order{P: p, D: d, Q: q, SP: sp, SD: sd, SQ: sq, M: m})
}

// NewWithOrder creates an unfitted model for order.
func NewWithOrder(order Order) *Model {
	return &Model{
		Order:     order,
		ARCoeffs:  make([]float64, max(order.P, 0)),
		MACoeffs:  make([]float64, max(order.Q, 0)),
		SARCoeffs: make([]float64, max(order.SP, 0)),
		SMACoeffs: make([]float64, max(order.SQ, 0)),
	}
}

// Fit estimates the model on series by conditional sum of squares.
// The context is checked on every optimizer iteration; a canceled or
// expired context aborts the fit with an error wrapping ctx.Err().
func (m *Model) Fit(ctx context.Context, series *timeseries.Series) error {
	if err := m.Order.Validate(); err != nil {
		return err
	}
	if n, need := series.Len(), m.Order.MinObservations(); n < need {
		return fmt.Errorf("%w: %s needs %d points, got %d", ErrInsufficientData, m.Order, need, n)
	}
	if !stats.AllFinite(series.Values) {
		return fmt.Errorf("%w: input series", ErrNonFinite)
	}

	m.fitted = false
	m.data = series
	m.levels = m.levels[:0]
	m.lags = m.lags[:0]

	// Non-seasonal differences first, then seasonal, as in the fitted model.
	current := series.Values
	for i := 0; i < m.Order.D; i++ {
		current = m.pushLevel(current, 1)
	}
	for i := 0; i < m.Order.SD; i++ {
		current = m.pushLevel(current, m.Order.M)
	}
	if len(current) == 0 {
		return fmt.Errorf("%w: differencing left no data", ErrInsufficientData)
	}
	m.diffData = current

	if err := m.fitCSS(ctx); err != nil {
		return err
	}

	m.calculateIC()
	m.fitted = true
	return nil
}

func (m *Model) pushLevel(values []float64, lag int) []float64 {
	m.levels = append(m.levels, values)
	m.lags = append(m.lags, lag)
	if len(values) <= lag {
		return nil
	}
	out := make([]float64, len(values)-lag)
	for i := lag; i < len(values); i++ {
		out[i-lag] = values[i] - values[i-lag]
	}
	return out
}

// fitCSS initializes coefficients from the autocorrelations and refines
// them with momentum gradient descent.
func (m *Model) fitCSS(ctx context.Context) error {
	y := m.diffData
	diffSeries := timeseries.New(y)
	m.Intercept = stat.Mean(y, nil)
	clear(m.ARCoeffs)
	clear(m.SARCoeffs)

	if p := m.Order.P; p > 0 {
		if acf := stats.ACF(diffSeries, p); acf != nil {
			for i := 0; i < p && i+1 < len(acf); i++ {
				m.ARCoeffs[i] = acf[i+1] * 0.5
			}
		}
	}

	if sp := m.Order.SP; sp > 0 {
		if acf := stats.ACF(diffSeries, sp*m.Order.M); acf != nil {
			for i := 0; i < sp; i++ {
				if idx := (i + 1) * m.Order.M; idx < len(acf) {
					m.SARCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}

	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	return m.optimizeCSS(ctx, y)
}

// predictAt returns the one-step prediction of y[t] given the values and
// residuals before t.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	period := m.Order.M
	pred := m.Intercept

	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.SMACoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

// filter fills residuals from startIdx on and returns their sum of squares.
func (m *Model) filter(y, residuals []float64, startIdx int) float64 {
	sse := 0.0
	for t := startIdx; t < len(y); t++ {
		residuals[t] = y[t] - m.predictAt(y, residuals, t)
		sse += residuals[t] * residuals[t]
	}
	return sse
}

// optimizeCSS optimizes SARIMA parameters with adaptive learning and momentum.
// Gradients are scaled by the variance of y so the step size does not
// depend on the magnitude of the data.
func (m *Model) optimizeCSS(ctx context.Context, y []float64) error {
	n := len(y)
	p, q, sp, sq := m.Order.P, m.Order.Q, m.Order.SP, m.Order.SQ
	period := m.Order.M

	const (
		maxIter   = 200
		tolerance = 1e-8
		momentum  = 0.9
		decay     = 0.99
		bound     = 0.99
	)
	learningRate := 0.005

	scale := stat.Variance(y, nil)
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}

	arMomentum := make([]float64, p)
	maMomentum := make([]float64, q)
	sarMomentum := make([]float64, sp)
	smaMomentum := make([]float64, sq)

	// Start index to avoid boundary issues
	startIdx := max(max(p, q), max(sp*period, sq*period))
	if startIdx >= n-minResidualObs {
		startIdx = 0
	}
	m.startIdx = startIdx

	bestSSE := math.Inf(1)
	bestAR := make([]float64, p)
	bestMA := make([]float64, q)
	bestSAR := make([]float64, sp)
	bestSMA := make([]float64, sq)
	noImproveCount := 0
	residuals := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fit %s interrupted after %d iterations: %w", m.Order, iter, err)
		}
		m.Iter = iter + 1

		clear(residuals)
		currentSSE := m.filter(y, residuals, startIdx)

		if currentSSE < bestSSE {
			bestSSE = currentSSE
			copy(bestAR, m.ARCoeffs)
			copy(bestMA, m.MACoeffs)
			copy(bestSAR, m.SARCoeffs)
			copy(bestSMA, m.SMACoeffs)
			noImproveCount = 0
		} else {
			noImproveCount++
		}

		if noImproveCount > 20 || currentSSE == 0 {
			break
		}

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		sarGrad := make([]float64, sp)
		smaGrad := make([]float64, sq)

		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		step := learningRate / (float64(n) * scale)
		updateCoeffs(m.ARCoeffs, arMomentum, arGrad, momentum, step, bound)
		updateCoeffs(m.SARCoeffs, sarMomentum, sarGrad, momentum, step, bound)
		updateCoeffs(m.MACoeffs, maMomentum, maGrad, momentum, step, bound)
		updateCoeffs(m.SMACoeffs, smaMomentum, smaGrad, momentum, step, bound)

		learningRate *= decay

		if iter > 0 && math.Abs(currentSSE-bestSSE) < tolerance {
			break
		}
	}

	copy(m.ARCoeffs, bestAR)
	copy(m.MACoeffs, bestMA)
	copy(m.SARCoeffs, bestSAR)
	copy(m.SMACoeffs, bestSMA)

	// Final residuals and fitted values over the whole differenced series.
	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.fittedVals[t] = m.predictAt(y, m.residuals, t)
		m.residuals[t] = y[t] - m.fittedVals[t]
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}

	numParams := m.Order.NumParams()
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else {
		m.Variance = sse / float64(count)
	}

	if !stats.AllFinite(m.residuals) || math.IsNaN(m.Variance) || math.IsInf(m.Variance, 0) {
		return fmt.Errorf("%w: residuals of %s", ErrNonFinite, m.Order)
	}
	return nil
}

func updateCoeffs(coeffs, velocity, grad []float64, momentum, step, bound float64) {
	for i := range coeffs {
		velocity[i] = momentum*velocity[i] + step*grad[i]
		coeffs[i] = clamp(coeffs[i]-velocity[i], -bound, bound)
	}
}

// calculateIC calculates AIC, AICc, and BIC.
func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.NumParams()

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(1)
	}

	kf := float64(k)
	nf := float64(n)
	m.AIC = -2*m.LogLik + 2*kf
	if nf-kf-1 > 0 {
		m.AICc = m.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.AICc = math.Inf(1)
	}
	m.BIC = -2*m.LogLik + kf*math.Log(nf)
}

// Fitted reports whether Fit has completed successfully.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Data returns the series the model was fitted on.
func (m *Model) Data() *timeseries.Series {
	return m.data
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals.
// Returns point forecasts, lower bounds, and upper bounds at the given confidence level.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	y := m.diffData
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	// Future shocks are zero.
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		extY[n+h] = m.predictAt(extY, extResiduals, n+h)
	}

	forecasts = m.integrate(extY[n:])
	if !stats.AllFinite(forecasts) {
		return nil, nil, nil, fmt.Errorf("%w: forecast of %s", ErrNonFinite, m.Order)
	}

	// Variance grows with the horizon for integrated series.
	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)
	sigma := math.Sqrt(m.Variance)
	period := m.Order.M

	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h := 0; h < steps; h++ {
		growth := 1.0
		if m.Order.D > 0 {
			growth *= math.Sqrt(float64(h + 1))
		}
		if m.Order.SD > 0 && period > 0 {
			growth *= math.Sqrt(float64(h/period + 1))
		}
		se := sigma * growth
		lower[h] = forecasts[h] - z*se
		upper[h] = forecasts[h] + z*se
	}

	return forecasts, lower, upper, nil
}

// integrate undoes each differencing step in reverse order. Undoing a lag-L
// difference uses y_t = z_t + y_{t-L}, taking y_{t-L} from the stored level
// while it lies in history and from the already integrated forecasts after.
func (m *Model) integrate(forecasts []float64) []float64 {
	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	for k := len(m.levels) - 1; k >= 0; k-- {
		level := m.levels[k]
		lag := m.lags[k]
		n := len(level)

		ext := make([]float64, n+len(result))
		copy(ext, level)
		for j := range result {
			ext[n+j] = result[j] + ext[n+j-lag]
		}
		copy(result, ext[n:])
	}

	return result
}

// Residuals returns the model residuals.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals))
	copy(result, m.residuals)
	return result
}

// FittedValues returns the in-sample one-step predictions on the
// differenced scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.fittedVals))
	copy(result, m.fittedVals)
	return result
}

// Summary represents a model summary.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	Iter      int
	LjungBox  *stats.LjungBoxResult // nil when residuals are too short or constant
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	resid := timeseries.New(m.residuals[m.startIdx:])
	lb := stats.LjungBox(resid, 10, m.Order.P+m.Order.Q+m.Order.SP+m.Order.SQ)

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
		SARCoeffs: append([]float64(nil), m.SARCoeffs...),
		SMACoeffs: append([]float64(nil), m.SMACoeffs...),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		Iter:      m.Iter,
		LjungBox:  lb,
	}
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
