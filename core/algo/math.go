package algo

import "math"

// Round1 rounds v half-up to one decimal place.
func Round1(v float64) float64 {
	// 1.15*10 is 11.499999999999998 in binary, so snap the scaled value
	// to nine decimals before looking at the half.
	scaled := math.Round(v*1e10) / 1e9
	return math.Floor(scaled+0.5) / 10
}

// Percent returns num/den*100 rounded to one decimal.
// The boolean is false when den is zero, in which case no ratio is defined.
func Percent(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return Round1(num / den * 100), true
}
