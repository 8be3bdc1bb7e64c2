// Package scoring holds the pluggable quality-score hook layered on top
// of distance/eta ranking. The matcher treats a Scorer as a black box:
// higher is better, any finite scale or sign is legal.
package scoring

import (
	"context"
	"errors"

	"github.com/example/ride-booking/internal/models"
)

// ErrScoringUnavailable classifies hook failures so callers can decide
// between failing the re-rank and falling back to the unscored order.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// Request carries the ride context a scorer may weigh alongside the
// candidate.
type Request struct {
	Rider       models.Coord        `json:"rider"`
	Destination models.Coord        `json:"destination"`
	Class       models.VehicleClass `json:"vehicle_class"`
}

// Scorer rates one candidate already annotated with distance and eta.
// It is called at most once per candidate per match request and may call
// out to a remote service.
type Scorer interface {
	Score(ctx context.Context, req Request, d models.RankedDriver) (float64, error)
}

// Composite is the reference in-process scorer: a weighted blend of
// rating, distance and eta.
type Composite struct {
	RatingWeight   float64
	DistanceWeight float64
	ETAWeight      float64
}

// NewComposite returns the reference weights: rating*100 - distance*10 - eta*5.
func NewComposite() *Composite {
	return &Composite{RatingWeight: 100, DistanceWeight: 10, ETAWeight: 5}
}

func (c *Composite) Score(_ context.Context, _ Request, d models.RankedDriver) (float64, error) {
	return d.Rating*c.RatingWeight - d.DistanceKm*c.DistanceWeight - float64(d.ETAMinutes)*c.ETAWeight, nil
}
