package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// Score rows are compared byte for byte across reruns, so every
// persisted number goes through decimal quantization: scores at two
// places, raw metrics at four.

// Round2 quantizes a score to two decimal places.
func Round2(v float64) float64 {
	return roundPlaces(v, 2)
}

// Round4 quantizes a metric to four decimal places.
func Round4(v float64) float64 {
	return roundPlaces(v, 4)
}

func roundPlaces(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2Ptr quantizes through a nil: a missing value stays missing.
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

// Round4Ptr quantizes through a nil.
func Round4Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round4(*v)
	return &r
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
