package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Epsilon is the smallest rolling standard deviation treated as nonzero.
// Below it the z-score is forced to 0 so locked prices never divide by zero.
const Epsilon = 1e-9

// SpreadSample is the spread model output for one evaluation cycle.
type SpreadSample struct {
	Spread      float64 `json:"spread"`
	RollingMean float64 `json:"rolling_mean"`
	RollingStd  float64 `json:"rolling_std"`
	ZScore      float64 `json:"z_score"`
}

// InsufficientDataError reports an aligned series shorter than the lookback
// window. The caller skips the cycle and retries once more history arrives.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient aligned price history: have %d points, need %d", e.Have, e.Need)
}

// ComputeSpread aligns the two series and computes the current spread, its
// rolling mean and standard deviation over the trailing lookback window, and
// the normalized z-score. Pure function of its inputs.
func ComputeSpread(a, b PriceSeries, lookback int) (SpreadSample, error) {
	alignedA, alignedB := Align(a, b)
	if len(alignedA) < lookback {
		return SpreadSample{}, &InsufficientDataError{Have: len(alignedA), Need: lookback}
	}

	spreads := make([]float64, lookback)
	offset := len(alignedA) - lookback
	for i := 0; i < lookback; i++ {
		spreads[i] = alignedA[offset+i].Price - alignedB[offset+i].Price
	}

	current := spreads[lookback-1]
	mean := stat.Mean(spreads, nil)
	std := stat.StdDev(spreads, nil)

	zScore := 0.0
	if std > Epsilon {
		zScore = (current - mean) / std
	}

	return SpreadSample{
		Spread:      current,
		RollingMean: mean,
		RollingStd:  std,
		ZScore:      zScore,
	}, nil
}
