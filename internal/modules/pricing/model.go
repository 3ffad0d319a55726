// README: Fare rate card and estimate quote.
package pricing

const (
	DefaultBaseFare    = 2.0
	DefaultPerKm       = 0.5
	DefaultMinimumFare = 3.0
)

type Rate struct {
	BaseFare    float64
	PerKm       float64
	MinimumFare float64
}

// DefaultRate returns the rate card with the given base fare; per-km and
// minimum are fixed.
func DefaultRate(baseFare float64) Rate {
	return Rate{BaseFare: baseFare, PerKm: DefaultPerKm, MinimumFare: DefaultMinimumFare}
}

type Quote struct {
	DistanceKm float64 `json:"distance_km"`
	Fare       float64 `json:"estimated_fare"`
}
