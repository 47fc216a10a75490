// Package mathutil holds the small numeric helpers the analytics share.
package mathutil

import "math"

// Round2 rounds to two decimal places, the precision the stored rate
// columns use.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rate is hits over total, rounded to two decimals. Zero when total is zero
// so callers can pass empty groups without guarding.
func Rate(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(hits) / float64(total))
}
