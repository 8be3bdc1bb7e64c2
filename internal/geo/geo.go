package geo

import (
	"errors"
	"math"

	"github.com/example/ride-booking/internal/models"
)

// ErrInvalidCoordinate is returned for NaN/Inf or out-of-range lat/lon.
// Core math never validates; callers reject bad input at the boundary.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const earthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance between a and b in
// kilometers, unrounded. Display code and the pricing pipeline quantize
// via DisplayKm so on-screen figures stay consistent with the fare math.
func Distance(a, b models.Coord) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// DisplayKm rounds a distance to 2 decimal places.
func DisplayKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func ValidateCoord(c models.Coord) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return ErrInvalidCoordinate
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
