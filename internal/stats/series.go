package stats

import (
	"time"
)

// PricePoint is a single close-price observation for one instrument.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// PriceSeries is a time-ordered sequence of price points for one instrument.
type PriceSeries []PricePoint

// Prices returns the price column of the series.
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s))
	for i, p := range s {
		prices[i] = p.Price
	}
	return prices
}

// Align inner-joins two series on timestamp, preserving time order. Points
// present in only one series are dropped; spread math is only defined over
// observations both instruments share.
func Align(a, b PriceSeries) (PriceSeries, PriceSeries) {
	byTime := make(map[int64]PricePoint, len(b))
	for _, p := range b {
		byTime[p.Timestamp.UnixNano()] = p
	}

	alignedA := make(PriceSeries, 0, len(a))
	alignedB := make(PriceSeries, 0, len(a))
	for _, p := range a {
		match, ok := byTime[p.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		alignedA = append(alignedA, p)
		alignedB = append(alignedB, match)
	}
	return alignedA, alignedB
}
