package matcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ride-booking/internal/geo"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/pricing"
	"github.com/example/ride-booking/internal/scoring"
	"github.com/example/ride-booking/internal/storage"
)

// Dispatcher pushes a match offer to the chosen driver.
type Dispatcher interface {
	Offer(rideID string, offer models.MatchOffer) error
}

// Service wires the pure ranking functions to the driver directory,
// persistence and dispatch. Matching stays advisory: two concurrent
// requests may be offered the same driver, and nothing here reserves one.
type Service struct {
	Directory geo.Directory
	Dispatch  Dispatcher
	Store     storage.TripStore
	Scorer    scoring.Scorer // optional quality-score hook
	Logger    *slog.Logger

	Limit           int
	InitialRadiusKm float64
	ScoreTimeout    time.Duration
}

// Result is one match response: the persisted ride plus the ranked
// candidates shown to the rider.
type Result struct {
	Quote      models.RideQuote      `json:"quote"`
	Candidates []models.RankedDriver `json:"candidates"`
}

// Match quotes the trip, ranks nearby drivers under the radius-expansion
// policy, optionally re-ranks them with the quality-score hook, offers
// the ride to the top candidate and persists the ride. ok is false when
// no driver of the requested class is inside the radius ceiling.
func (s *Service) Match(ctx context.Context, rideID string, req models.RideRequest) (Result, bool) {
	start := time.Now()
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	radius := s.InitialRadiusKm
	if radius <= 0 {
		radius = DefaultRadius
	}
	class := req.Class
	if class == "" {
		class = models.DefaultClass
	}

	quote := pricing.Quote(req.Origin, req.Destination, class)

	pool := s.Directory.WithinRadius(req.Origin.Lat, req.Origin.Lon, MaxRadiusKm)
	cands := BatchedMatch(req.Origin, pool, class, limit, radius)
	if len(cands) == 0 {
		observability.EmptyMatchesTotal.Inc()
		return Result{Quote: quote}, false
	}

	if s.Scorer != nil {
		cands = s.rescore(ctx, req, class, cands)
	}

	best := cands[0]
	offer := models.MatchOffer{DriverID: best.ID, ETAMinutes: best.ETAMinutes, Fare: quote.Fare}
	if s.Dispatch != nil {
		_ = s.Dispatch.Offer(rideID, offer) // best-effort
	}

	now := time.Now()
	ride := &models.Ride{
		ID:          rideID,
		RiderID:     req.RiderID,
		DriverID:    best.ID,
		Class:       class,
		Origin:      req.Origin,
		Destination: req.Destination,
		Fare:        quote.Fare,
		Status:      "matched",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.Store != nil {
		if err := s.Store.SaveRide(ride); err != nil && s.Logger != nil {
			s.Logger.Error("save ride failed", "ride_id", rideID, "error", err)
		}
	}

	observability.MatchesTotal.Inc()
	observability.MatchLatency.Observe(time.Since(start).Seconds())
	return Result{Quote: quote, Candidates: cands}, true
}

// rescore applies the quality-score hook under a timeout. On failure or
// timeout the Policy-B order is kept; a degraded ranking beats no match.
func (s *Service) rescore(ctx context.Context, req models.RideRequest, class models.VehicleClass, cands []models.RankedDriver) []models.RankedDriver {
	timeout := s.ScoreTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sreq := scoring.Request{Rider: req.Origin, Destination: req.Destination, Class: class}
	ranked, err := RankByScore(sctx, s.Scorer, sreq, cands)
	if err != nil {
		observability.ScoringFailuresTotal.Inc()
		if s.Logger != nil {
			s.Logger.Warn("scoring unavailable, keeping eta order",
				"error", err, "unavailable", errors.Is(err, scoring.ErrScoringUnavailable))
		}
		return cands
	}
	return ranked
}
