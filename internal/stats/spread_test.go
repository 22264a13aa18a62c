package stats

import (
	"errors"
	"math"
	"testing"
)

func TestComputeSpreadMatchesDefinition(t *testing.T) {
	// Spread values oscillate with a final wide observation.
	spreads := make([]float64, 60)
	for i := range spreads {
		if i%2 == 0 {
			spreads[i] = 1.0
		} else {
			spreads[i] = -1.0
		}
	}
	spreads[59] = 2.5

	a := makeSeries(spreads...)
	b := makeSeries(make([]float64, 60)...) // all zero, spread == priceA

	sample, err := ComputeSpread(a, b, 60)
	if err != nil {
		t.Fatalf("ComputeSpread() failed: %v", err)
	}

	// Recompute mean and sample std independently.
	sum := 0.0
	for _, s := range spreads {
		sum += s
	}
	mean := sum / 60
	sumSq := 0.0
	for _, s := range spreads {
		d := s - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / 59)

	if math.Abs(sample.RollingMean-mean) > 1e-12 {
		t.Errorf("Expected mean %v, got %v", mean, sample.RollingMean)
	}
	if math.Abs(sample.RollingStd-std) > 1e-12 {
		t.Errorf("Expected std %v, got %v", std, sample.RollingStd)
	}
	wantZ := (2.5 - mean) / std
	if math.Abs(sample.ZScore-wantZ) > 1e-12 {
		t.Errorf("Expected z-score %v, got %v", wantZ, sample.ZScore)
	}
	if sample.Spread != 2.5 {
		t.Errorf("Expected spread 2.5, got %v", sample.Spread)
	}
}

func TestComputeSpreadUsesTrailingWindow(t *testing.T) {
	// 70 observations, lookback 60: the first 10 must not influence stats.
	long := make([]float64, 70)
	for i := range long {
		if i < 10 {
			long[i] = 1000 // would wreck the mean if included
		} else if i%2 == 0 {
			long[i] = 1.0
		} else {
			long[i] = -1.0
		}
	}

	a := makeSeries(long...)
	b := makeSeries(make([]float64, 70)...)

	sample, err := ComputeSpread(a, b, 60)
	if err != nil {
		t.Fatalf("ComputeSpread() failed: %v", err)
	}
	if math.Abs(sample.RollingMean) > 0.1 {
		t.Errorf("Trailing window leaked older data: mean %v", sample.RollingMean)
	}
}

func TestComputeSpreadZeroStd(t *testing.T) {
	// Locked prices: constant spread, std 0.
	constant := make([]float64, 60)
	for i := range constant {
		constant[i] = 5.0
	}

	a := makeSeries(constant...)
	b := makeSeries(make([]float64, 60)...)

	sample, err := ComputeSpread(a, b, 60)
	if err != nil {
		t.Fatalf("ComputeSpread() failed: %v", err)
	}
	if sample.ZScore != 0 {
		t.Errorf("Expected z-score 0 for zero std, got %v", sample.ZScore)
	}
	if sample.RollingStd > Epsilon {
		t.Errorf("Expected zero std, got %v", sample.RollingStd)
	}
}

func TestComputeSpreadInsufficientData(t *testing.T) {
	a := makeSeries(1, 2, 3)
	b := makeSeries(1, 2, 3)

	_, err := ComputeSpread(a, b, 60)
	if err == nil {
		t.Fatal("Expected InsufficientDataError, got nil")
	}
	var insufficientErr *InsufficientDataError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Expected InsufficientDataError, got %T: %v", err, err)
	}
	if insufficientErr.Have != 3 || insufficientErr.Need != 60 {
		t.Errorf("Expected have=3 need=60, got have=%d need=%d", insufficientErr.Have, insufficientErr.Need)
	}
}

func TestComputeSpreadCountsAlignedPointsOnly(t *testing.T) {
	// 60 points each but offset so only 30 timestamps overlap.
	prices := make([]float64, 60)
	a := makeSeries(prices...)
	b := make(PriceSeries, 60)
	for i := range b {
		b[i] = PricePoint{Timestamp: seriesStart.AddDate(0, 0, i+30), Price: 0}
	}

	_, err := ComputeSpread(a, b, 60)
	var insufficientErr *InsufficientDataError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Expected InsufficientDataError, got %T: %v", err, err)
	}
	if insufficientErr.Have != 30 {
		t.Errorf("Expected 30 aligned points, got %d", insufficientErr.Have)
	}
}
