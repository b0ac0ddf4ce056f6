package layout

import "math"

// roundDiv returns round(a / b) with b > 0, the nearest-integer rounding
// applied to split sizes.
func roundDiv(a, b int) int {
	return roundF(float64(a) / float64(b))
}

// roundF rounds a float64 to the nearest integer, ties away from zero.
func roundF(f float64) int {
	return int(math.Round(f))
}
