package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// cointegratedPair builds a pair whose spread is a stationary AR(1) process,
// the textbook case the test must accept.
func cointegratedPair(n int) (PriceSeries, PriceSeries) {
	rng := rand.New(rand.NewSource(42))

	pricesB := make([]float64, n)
	pricesA := make([]float64, n)
	walk := 100.0
	noise := 0.0
	for i := 0; i < n; i++ {
		walk += rng.NormFloat64()
		noise = 0.3*noise + 0.5*rng.NormFloat64()
		pricesB[i] = walk
		pricesA[i] = 5 + 0.8*walk + noise
	}
	return makeSeries(pricesA...), makeSeries(pricesB...)
}

func TestCointegrationAcceptsMeanRevertingSpread(t *testing.T) {
	a, b := cointegratedPair(250)

	verdict, err := TestCointegration(a, b)
	if err != nil {
		t.Fatalf("TestCointegration() failed: %v", err)
	}
	if !verdict.IsCointegrated {
		t.Errorf("Expected cointegrated verdict, got p-value %v (t=%v)", verdict.PValue, verdict.TStat)
	}
	if verdict.PValue >= SignificanceLevel {
		t.Errorf("Expected p-value below %v, got %v", SignificanceLevel, verdict.PValue)
	}
	if verdict.TStat >= 0 {
		t.Errorf("Expected negative ADF statistic for mean-reverting spread, got %v", verdict.TStat)
	}
	if math.Abs(verdict.HedgeRatio-0.8) > 0.1 {
		t.Errorf("Expected hedge ratio near 0.8, got %v", verdict.HedgeRatio)
	}
	if verdict.Samples != 250 {
		t.Errorf("Expected 250 samples, got %d", verdict.Samples)
	}
}

func TestCointegrationRejectsDivergingPair(t *testing.T) {
	// A trends away while B oscillates: the residual keeps the trend and is
	// nonstationary, so the verdict must be negative.
	n := 250
	pricesA := make([]float64, n)
	pricesB := make([]float64, n)
	for i := 0; i < n; i++ {
		pricesA[i] = 50 + 0.5*float64(i)
		pricesB[i] = 100 + math.Sin(float64(i)/5)
	}

	verdict, err := TestCointegration(makeSeries(pricesA...), makeSeries(pricesB...))
	if err != nil {
		t.Fatalf("TestCointegration() failed: %v", err)
	}
	if verdict.IsCointegrated {
		t.Errorf("Expected non-cointegrated verdict, got p-value %v", verdict.PValue)
	}
	if verdict.PValue < SignificanceLevel {
		t.Errorf("Expected p-value >= %v, got %v", SignificanceLevel, verdict.PValue)
	}
}

func TestCointegrationTooFewSamples(t *testing.T) {
	a := makeSeries(1, 2, 3, 4, 5)
	b := makeSeries(1, 2, 3, 4, 5)

	_, err := TestCointegration(a, b)
	if err == nil {
		t.Fatal("Expected StatisticalTestError for short series, got nil")
	}
	var testErr *StatisticalTestError
	if !errors.As(err, &testErr) {
		t.Errorf("Expected StatisticalTestError, got %T: %v", err, err)
	}
}

func TestCointegrationNonFiniteValues(t *testing.T) {
	a, b := cointegratedPair(100)
	a[50].Price = math.NaN()

	_, err := TestCointegration(a, b)
	var testErr *StatisticalTestError
	if !errors.As(err, &testErr) {
		t.Fatalf("Expected StatisticalTestError, got %T: %v", err, err)
	}
}

func TestMackinnonPValueMonotonic(t *testing.T) {
	n := 250
	stats := []float64{-6, -4.5, -3.9, -3.4, -3.0, -1.5, 0}
	prev := 0.0
	for i, s := range stats {
		p := mackinnonPValue(s, n)
		if p <= 0 || p > 1 {
			t.Fatalf("p-value out of range for t=%v: %v", s, p)
		}
		if i > 0 && p < prev {
			t.Errorf("p-value not monotonic: p(%v)=%v < p(%v)=%v", s, p, stats[i-1], prev)
		}
		prev = p
	}

	if p := mackinnonPValue(-4.5, n); p >= 0.01 {
		t.Errorf("Expected p < 0.01 for t=-4.5, got %v", p)
	}
	if p := mackinnonPValue(-1.5, n); p <= 0.10 {
		t.Errorf("Expected p > 0.10 for t=-1.5, got %v", p)
	}
}
