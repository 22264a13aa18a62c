package stats

import (
	"testing"
	"time"
)

var seriesStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// makeSeries builds a daily series from consecutive closes.
func makeSeries(prices ...float64) PriceSeries {
	s := make(PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = PricePoint{Timestamp: seriesStart.AddDate(0, 0, i), Price: p}
	}
	return s
}

func TestAlignInnerJoin(t *testing.T) {
	a := makeSeries(10, 11, 12, 13)
	b := makeSeries(20, 21, 22, 23)

	// Drop the second observation from b only.
	b = append(b[:1], b[2:]...)

	alignedA, alignedB := Align(a, b)
	if len(alignedA) != 3 || len(alignedB) != 3 {
		t.Fatalf("Expected 3 aligned points, got %d/%d", len(alignedA), len(alignedB))
	}
	for i := range alignedA {
		if !alignedA[i].Timestamp.Equal(alignedB[i].Timestamp) {
			t.Errorf("Timestamp mismatch at %d: %v vs %v", i, alignedA[i].Timestamp, alignedB[i].Timestamp)
		}
	}
	if alignedA[1].Price != 12 || alignedB[1].Price != 22 {
		t.Errorf("Expected aligned prices 12/22, got %v/%v", alignedA[1].Price, alignedB[1].Price)
	}
}

func TestAlignDisjointSeries(t *testing.T) {
	a := makeSeries(10, 11)
	b := PriceSeries{
		{Timestamp: seriesStart.AddDate(0, 0, 100), Price: 1},
	}

	alignedA, alignedB := Align(a, b)
	if len(alignedA) != 0 || len(alignedB) != 0 {
		t.Errorf("Expected empty alignment, got %d/%d points", len(alignedA), len(alignedB))
	}
}

func TestPrices(t *testing.T) {
	s := makeSeries(1.5, 2.5)
	prices := s.Prices()
	if len(prices) != 2 || prices[0] != 1.5 || prices[1] != 2.5 {
		t.Errorf("Unexpected price column %v", prices)
	}
}
