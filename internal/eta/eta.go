package eta

import (
	"math"

	"github.com/example/ride-booking/internal/models"
)

// trafficBuffer is a fixed 20% congestion markup applied to every
// estimate.
const trafficBuffer = 1.2

// avgSpeedKmh maps a vehicle class to its assumed average city speed.
// Classes without a row (carpool included) use the default class's speed.
var avgSpeedKmh = map[models.VehicleClass]float64{
	models.ClassBike: 30,
	models.ClassAuto: 25,
	models.ClassCab:  35,
}

// Speed returns the average speed for class in km/h.
func Speed(class models.VehicleClass) float64 {
	if s, ok := avgSpeedKmh[class]; ok {
		return s
	}
	return avgSpeedKmh[models.DefaultClass]
}

// Estimate converts a distance into an ETA in whole minutes:
// round((d / speed) * 60 * trafficBuffer). Zero distance yields zero and
// the result is never negative; there is no upper bound.
func Estimate(distanceKm float64, class models.VehicleClass) int {
	if distanceKm <= 0 {
		return 0
	}
	minutes := distanceKm / Speed(class) * 60 * trafficBuffer
	return int(math.Round(minutes))
}
