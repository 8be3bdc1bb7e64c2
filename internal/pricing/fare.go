package pricing

import (
	"math"

	"github.com/example/ride-booking/internal/eta"
	"github.com/example/ride-booking/internal/geo"
	"github.com/example/ride-booking/internal/models"
)

// Rates is one row of the fare table: a flat base charge plus
// per-kilometer and per-minute rates.
type Rates struct {
	Base      float64
	PerKm     float64
	PerMinute float64
}

// rateTable prices each known class. Adding a class is adding a row here
// (and a speed row in the eta package); unknown classes fall back to the
// default class's row rather than erroring.
var rateTable = map[models.VehicleClass]Rates{
	models.ClassBike: {Base: 20, PerKm: 7, PerMinute: 1},
	models.ClassAuto: {Base: 30, PerKm: 13, PerMinute: 1.5},
	models.ClassCab:  {Base: 50, PerKm: 18, PerMinute: 2},
}

// minimumFareFactor sets the fare floor at 1.5x the class base charge.
const minimumFareFactor = 1.5

// RatesFor returns the rate row for class, defaulting for unknown ones.
func RatesFor(class models.VehicleClass) Rates {
	if r, ok := rateTable[class]; ok {
		return r
	}
	return rateTable[models.DefaultClass]
}

// Fare prices a trip in whole currency units:
// max(round(base + d*perKm + eta*perMin), round(base*1.5)).
// Pure function of its inputs and the rate table.
func Fare(distanceKm float64, etaMinutes int, class models.VehicleClass) float64 {
	r := RatesFor(class)
	total := r.Base + distanceKm*r.PerKm + float64(etaMinutes)*r.PerMinute
	minimum := math.Round(r.Base * minimumFareFactor)
	return math.Max(math.Round(total), minimum)
}

// Quote runs the full pricing pipeline for one class. Distance is
// quantized to 2 decimals before the ETA and fare steps so the displayed
// figures always reconcile with the fare math.
func Quote(origin, dest models.Coord, class models.VehicleClass) models.RideQuote {
	km := geo.DisplayKm(geo.Distance(origin, dest))
	minutes := eta.Estimate(km, class)
	return models.RideQuote{
		Class:      class,
		DistanceKm: km,
		ETAMinutes: minutes,
		Fare:       Fare(km, minutes, class),
	}
}

// QuoteAll prices the trip for every known class, in display order.
func QuoteAll(origin, dest models.Coord) []models.RideQuote {
	out := make([]models.RideQuote, 0, len(models.KnownClasses))
	for _, c := range models.KnownClasses {
		out = append(out, Quote(origin, dest, c))
	}
	return out
}
