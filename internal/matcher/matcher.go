// Package matcher selects and ranks drivers for a rider. The ranking
// functions are pure: they take an explicit pool snapshot, never reserve
// a driver, and annotate copies with per-request distance and eta.
package matcher

import (
	"context"
	"sort"

	"github.com/example/ride-booking/internal/eta"
	"github.com/example/ride-booking/internal/geo"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/scoring"
)

// Radius-expansion bounds for BatchedMatch, in kilometers.
const (
	MaxRadiusKm   = 10.0
	RadiusStepKm  = 2.0
	DefaultLimit  = 3
	DefaultRadius = 2.0
)

// annotate copies d with the rounded distance from rider and the eta for
// class. Distance is quantized to 2 decimals so radius checks and the
// displayed figure agree.
func annotate(rider models.Coord, d models.Driver, class models.VehicleClass) models.RankedDriver {
	km := geo.DisplayKm(geo.Distance(rider, d.Loc))
	return models.RankedDriver{
		Driver:     d,
		DistanceKm: km,
		ETAMinutes: eta.Estimate(km, class),
	}
}

// FindNearest filters pool to available drivers (matching class when one
// is given), annotates each with distance and eta, and returns up to
// limit drivers ordered nearest first. Empty pool or limit <= 0 yields
// an empty result, never an error.
func FindNearest(rider models.Coord, pool []models.Driver, class models.VehicleClass, limit int) []models.RankedDriver {
	if limit <= 0 {
		return nil
	}
	out := make([]models.RankedDriver, 0, len(pool))
	for _, d := range pool {
		if !d.Available {
			continue
		}
		if class != "" && d.Class != class {
			continue
		}
		c := class
		if c == "" {
			c = d.Class
		}
		out = append(out, annotate(rider, d, c))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BatchedMatch widens the acceptance radius around the rider until at
// least limit drivers of the requested class are inside it or the radius
// ceiling is hit, then ranks by eta ascending with rating descending as
// the tie-break. The candidate set only grows as the radius grows, so
// the loop terminates within (MaxRadiusKm-initialRadiusKm)/RadiusStepKm+1
// rounds. An empty result is a valid outcome, not an error.
func BatchedMatch(rider models.Coord, pool []models.Driver, class models.VehicleClass, limit int, initialRadiusKm float64) []models.RankedDriver {
	if limit <= 0 {
		return nil
	}

	// Annotate once; the expansion loop only re-counts against the
	// current radius.
	cands := make([]models.RankedDriver, 0, len(pool))
	for _, d := range pool {
		if !d.Available || d.Class != class {
			continue
		}
		cands = append(cands, annotate(rider, d, class))
	}

	var matched []models.RankedDriver
	for radius := initialRadiusKm; radius <= MaxRadiusKm; radius += RadiusStepKm {
		matched = matched[:0]
		for _, c := range cands {
			if c.DistanceKm <= radius {
				matched = append(matched, c)
			}
		}
		if len(matched) >= limit {
			break
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ETAMinutes != matched[j].ETAMinutes {
			return matched[i].ETAMinutes < matched[j].ETAMinutes
		}
		return matched[i].Rating > matched[j].Rating
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// RankByScore re-ranks candidates by an external quality score, highest
// first. Every candidate is scored exactly once and all scores are
// gathered before sorting; a single failed call fails the whole re-rank
// so callers can fall back to the incoming order.
func RankByScore(ctx context.Context, sc scoring.Scorer, req scoring.Request, cands []models.RankedDriver) ([]models.RankedDriver, error) {
	out := make([]models.RankedDriver, len(cands))
	for i, c := range cands {
		s, err := sc.Score(ctx, req, c)
		if err != nil {
			return nil, err
		}
		c.Score = s
		c.Scored = true
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
