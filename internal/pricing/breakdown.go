package pricing

import (
	"errors"
	"math"

	"github.com/example/ride-booking/internal/models"
)

// ErrInvalidAmount rejects negative fares or extras at the boundary.
var ErrInvalidAmount = errors.New("amount must be non-negative")

// Fixed shares of the quoted fare shown as line items. They sum to 100%.
const (
	shareBase       = 0.30
	shareDistance   = 0.25
	shareTime       = 0.20
	shareSurge      = 0.15
	shareBooking    = 0.05
	shareTolls      = 0.03
	shareSurcharges = 0.02
)

// Breakdown splits totalFare into the seven display components plus an
// optional tip-style extra. Each component is rounded to 2 decimals
// independently, and FinalFare is the sum of the rounded components plus
// extra, so the list always reconciles with the displayed total. The sum
// may drift from totalFare by a cent or two on extreme inputs; that is
// the intended componentized-rounding behavior, not remainder-corrected.
func Breakdown(totalFare, extra float64) (models.FareBreakdown, error) {
	if totalFare < 0 || extra < 0 || math.IsNaN(totalFare) || math.IsNaN(extra) {
		return models.FareBreakdown{}, ErrInvalidAmount
	}
	b := models.FareBreakdown{
		Base:       round2(totalFare * shareBase),
		Distance:   round2(totalFare * shareDistance),
		Time:       round2(totalFare * shareTime),
		Surge:      round2(totalFare * shareSurge),
		Booking:    round2(totalFare * shareBooking),
		Tolls:      round2(totalFare * shareTolls),
		Surcharges: round2(totalFare * shareSurcharges),
		Extra:      extra,
	}
	b.FinalFare = b.Base + b.Distance + b.Time + b.Surge + b.Booking + b.Tolls + b.Surcharges + extra
	return b, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
