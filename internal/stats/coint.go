package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinTestSamples is the smallest aligned sample the cointegration test will
// accept; below it the test has no statistical meaning.
const MinTestSamples = 30

// SignificanceLevel is the fixed p-value gate for the binary verdict.
const SignificanceLevel = 0.05

// CointegrationVerdict is the suitability verdict for a pair.
type CointegrationVerdict struct {
	IsCointegrated bool    `json:"is_cointegrated"`
	PValue         float64 `json:"p_value"`
	TStat          float64 `json:"t_stat"`
	HedgeRatio     float64 `json:"hedge_ratio"`
	Samples        int     `json:"samples"`
}

// StatisticalTestError reports degenerate test inputs. The caller treats the
// pair as not cointegrated for the cycle and stays flat.
type StatisticalTestError struct {
	Reason string
}

func (e *StatisticalTestError) Error() string {
	return "cointegration test failed: " + e.Reason
}

// TestCointegration runs an Engle-Granger two-step test on the pair: an OLS
// hedge regression of A on B, then an augmented Dickey-Fuller test on the
// regression residuals with AIC lag selection. P-values come from the
// MacKinnon response surface for two cointegrating variables, so a lower
// value is stronger evidence of a stable long-run relationship.
func TestCointegration(a, b PriceSeries) (CointegrationVerdict, error) {
	alignedA, alignedB := Align(a, b)
	n := len(alignedA)
	if n < MinTestSamples {
		return CointegrationVerdict{PValue: 1}, &StatisticalTestError{
			Reason: fmt.Sprintf("need at least %d aligned samples, have %d", MinTestSamples, n),
		}
	}

	pricesA := alignedA.Prices()
	pricesB := alignedB.Prices()
	for i := 0; i < n; i++ {
		if !isFinite(pricesA[i]) || !isFinite(pricesB[i]) {
			return CointegrationVerdict{PValue: 1}, &StatisticalTestError{Reason: "series contains non-finite values"}
		}
	}

	alpha, beta := stat.LinearRegression(pricesB, pricesA, nil, false)
	if !isFinite(alpha) || !isFinite(beta) {
		return CointegrationVerdict{PValue: 1}, &StatisticalTestError{Reason: "hedge regression is degenerate"}
	}

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = pricesA[i] - alpha - beta*pricesB[i]
	}

	tStat, err := adfStatistic(residuals)
	if err != nil {
		return CointegrationVerdict{PValue: 1}, &StatisticalTestError{Reason: err.Error()}
	}

	pValue := mackinnonPValue(tStat, n)
	return CointegrationVerdict{
		IsCointegrated: pValue < SignificanceLevel,
		PValue:         pValue,
		TStat:          tStat,
		HedgeRatio:     beta,
		Samples:        n,
	}, nil
}

// adfStatistic computes the augmented Dickey-Fuller t-statistic on a
// mean-zero residual series (regression without constant). The lag order is
// chosen by AIC over a common sample, Schwert's rule bounding the search.
func adfStatistic(series []float64) (float64, error) {
	nDiffs := len(series) - 1
	diffs := make([]float64, nDiffs)
	for i := range diffs {
		diffs[i] = series[i+1] - series[i]
	}

	maxLag := int(math.Floor(12 * math.Pow(float64(nDiffs)/100, 0.25)))
	for maxLag > 0 && nDiffs-maxLag < maxLag+10 {
		maxLag--
	}
	if nDiffs-maxLag < 10 {
		return 0, fmt.Errorf("series too short for lag regression: %d observations", nDiffs)
	}

	bestLag := 0
	bestAIC := math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		fit, err := adfRegression(series, diffs, lag, maxLag)
		if err != nil {
			continue
		}
		params := float64(lag + 1)
		aic := float64(fit.nobs)*math.Log(fit.ssr/float64(fit.nobs)) + 2*params
		if aic < bestAIC {
			bestAIC = aic
			bestLag = lag
		}
	}

	fit, err := adfRegression(series, diffs, bestLag, bestLag)
	if err != nil {
		return 0, err
	}
	if fit.seGamma <= 0 || !isFinite(fit.seGamma) {
		return 0, fmt.Errorf("degenerate lag regression at lag %d", bestLag)
	}
	return fit.gamma / fit.seGamma, nil
}

type adfFit struct {
	gamma   float64
	seGamma float64
	ssr     float64
	nobs    int
}

// adfRegression regresses diffs[t] on series[t] plus lag trailing diffs,
// using observations from index start onward so fits at different lag orders
// stay comparable during AIC selection.
func adfRegression(series, diffs []float64, lag, start int) (adfFit, error) {
	m := len(diffs) - start
	p := lag + 1
	if m <= p {
		return adfFit{}, fmt.Errorf("not enough observations for lag %d", lag)
	}

	X := mat.NewDense(m, p, nil)
	y := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		t := start + i
		X.Set(i, 0, series[t])
		for j := 1; j <= lag; j++ {
			X.Set(i, j, diffs[t-j])
		}
		y.SetVec(i, diffs[t])
	}

	var coef mat.VecDense
	if err := coef.SolveVec(X, y); err != nil {
		return adfFit{}, fmt.Errorf("lag regression solve: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &coef)
	ssr := 0.0
	for i := 0; i < m; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		ssr += r * r
	}

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return adfFit{}, fmt.Errorf("lag regression inverse: %w", err)
	}
	sigma2 := ssr / float64(m-p)

	return adfFit{
		gamma:   coef.AtVec(0),
		seGamma: math.Sqrt(sigma2 * inv.At(0, 0)),
		ssr:     ssr,
		nobs:    m,
	}, nil
}

// MacKinnon (2010) response-surface coefficients for the Engle-Granger tau
// distribution, two variables, constant in the cointegrating regression.
var egTauSurface = []struct {
	p          float64
	b0, b1, b2 float64
}{
	{0.01, -3.9001, -10.9187, -22.527},
	{0.05, -3.3377, -5.967, -8.98},
	{0.10, -3.0462, -4.069, -5.73},
}

// mackinnonPValue maps an ADF t-statistic to an approximate p-value by
// log-linear interpolation between the response-surface critical values,
// extrapolating and clamping outside the tabulated range.
func mackinnonPValue(tStat float64, n int) float64 {
	T := float64(n)
	cv := make([]float64, len(egTauSurface))
	for i, c := range egTauSurface {
		cv[i] = c.b0 + c.b1/T + c.b2/(T*T)
	}

	logAt := func(i int) float64 { return math.Log(egTauSurface[i].p) }
	slope := func(i, j int) float64 { return (logAt(j) - logAt(i)) / (cv[j] - cv[i]) }

	var logP float64
	switch {
	case tStat <= cv[0]:
		logP = logAt(0) + (tStat-cv[0])*slope(0, 1)
	case tStat <= cv[1]:
		logP = logAt(0) + (tStat-cv[0])*slope(0, 1)
	case tStat <= cv[2]:
		logP = logAt(1) + (tStat-cv[1])*slope(1, 2)
	default:
		logP = logAt(2) + (tStat-cv[2])*slope(1, 2)
	}

	p := math.Exp(logP)
	if p < 1e-4 {
		p = 1e-4
	}
	if p > 0.999 {
		p = 0.999
	}
	return p
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
