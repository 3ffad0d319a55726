// README: Pricing service computes fare estimates.
package pricing

import (
	"math"

	"moto/internal/types"
)

// Fare is max(minimum, (base + distance*perKm) * demand). Unrounded.
func Fare(distanceKm float64, rate Rate, demand float64) float64 {
	fare := (rate.BaseFare + distanceKm*rate.PerKm) * demand
	return math.Max(rate.MinimumFare, fare)
}

type Service struct {
	rate Rate
}

func NewService(rate Rate) *Service {
	return &Service{rate: rate}
}

func (s *Service) Rate() Rate { return s.rate }

// Estimate returns the fare for a distance at normal demand, rounded to cents.
func (s *Service) Estimate(distanceKm float64) float64 {
	return types.RoundCents(Fare(distanceKm, s.rate, 1.0))
}

func (s *Service) MinimumFare() float64 { return s.rate.MinimumFare }

// Quote rounds both the distance and the fare the way rides store them.
func (s *Service) Quote(distanceKm float64) Quote {
	return Quote{
		DistanceKm: types.RoundCents(distanceKm),
		Fare:       s.Estimate(distanceKm),
	}
}
