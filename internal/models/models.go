package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// VehicleClass tags a ride category. Each known class has a speed and a
// rate row; anything else is priced with the auto row.
type VehicleClass string

const (
	ClassBike    VehicleClass = "bike"
	ClassAuto    VehicleClass = "auto"
	ClassCab     VehicleClass = "cab"
	ClassCarpool VehicleClass = "carpool"

	// DefaultClass is the fallback for unknown vehicle classes.
	DefaultClass = ClassAuto
)

// KnownClasses are the classes offered on the ride-options screen.
var KnownClasses = []VehicleClass{ClassBike, ClassAuto, ClassCab, ClassCarpool}

type RideRequest struct {
	RiderID     string       `json:"rider_id"`
	Origin      Coord        `json:"origin"`
	Destination Coord        `json:"destination"`
	Class       VehicleClass `json:"vehicle_class"`
}

type Driver struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Class     VehicleClass `json:"vehicle_class"`
	Loc       Coord        `json:"loc"`
	Rating    float64      `json:"rating"` // 0..5
	Available bool         `json:"available"`
	Updated   time.Time    `json:"updated"`
}

// RankedDriver is a Driver annotated for one match request. Distance and
// ETA are relative to the rider at query time and are never written back
// to the directory.
type RankedDriver struct {
	Driver
	DistanceKm float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
	Score      float64 `json:"score,omitempty"`
	Scored     bool    `json:"-"`
}

// RideQuote is the pricing-pipeline output for one candidate class.
type RideQuote struct {
	Class      VehicleClass `json:"vehicle_class"`
	DistanceKm float64      `json:"distance_km"`
	ETAMinutes int          `json:"eta_minutes"`
	Fare       float64      `json:"fare"`
}

// FareBreakdown splits a quoted fare into display line items. Each
// component is independently rounded to 2 decimals; FinalFare is the sum
// of the rounded components plus Extra.
type FareBreakdown struct {
	Base       float64 `json:"base"`
	Distance   float64 `json:"distance"`
	Time       float64 `json:"time"`
	Surge      float64 `json:"surge"`
	Booking    float64 `json:"booking"`
	Tolls      float64 `json:"tolls"`
	Surcharges float64 `json:"surcharges"`
	Extra      float64 `json:"extra"`
	FinalFare  float64 `json:"final_fare"`
}

type MatchOffer struct {
	DriverID   string  `json:"driver_id"`
	ETAMinutes int     `json:"eta_minutes"`
	Fare       float64 `json:"fare"`
}

type Ride struct {
	ID            string
	RiderID       string
	DriverID      string
	Class         VehicleClass
	Origin        Coord
	Destination   Coord
	Fare          float64
	PaymentIntent string
	Status        string // requested, matched, accepted, ongoing, completed, canceled
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
