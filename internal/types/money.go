// README: Rounding helpers for fares, earnings and ratings.
package types

import "math"

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundTenths rounds to one decimal place (displayed ratings).
func RoundTenths(v float64) float64 {
	return math.Round(v*10) / 10
}
