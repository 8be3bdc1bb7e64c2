package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/dispatch"
	"github.com/example/ride-booking/internal/geo"
	"github.com/example/ride-booking/internal/ingest"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/matcher"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/payments"
	"github.com/example/ride-booking/internal/pricing"
	"github.com/example/ride-booking/internal/scoring"
	"github.com/example/ride-booking/internal/storage"
	"github.com/example/ride-booking/internal/tracker"
)

const defaultCurrency = "inr"

// PaymentProvider is the fare hold/capture/cancel surface the handlers
// need; payments.StripeClient implements it.
type PaymentProvider interface {
	HoldFare(ctx context.Context, fare float64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

type Server struct {
	Directory geo.Directory
	Matcher   *matcher.Service
	Store     storage.TripStore
	Kafka     *ingest.KafkaProducer
	WSReg     *dispatch.WSRegistry
	Payments  PaymentProvider
	Quotes    *pricing.QuoteCache

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the service from config with in-memory fallbacks for
// anything not configured, so the binary runs locally with no backing
// services.
func NewServer(cfg config.ServerConfig) *Server {
	logger := logging.NewLogger(cfg.LogLevel)

	var dir geo.Directory
	if cfg.RedisAddr != "" {
		dir = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		dir = geo.NewIndex()
	}

	var store storage.TripStore
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	pusher := dispatch.NewPushDispatcher(cfg.PushEndpoint, wsreg)

	var scorer scoring.Scorer
	if cfg.ScoreEndpoint != "" {
		scorer = scoring.NewRemote(cfg.ScoreEndpoint)
	}

	m := &matcher.Service{
		Directory:       dir,
		Dispatch:        pusher,
		Store:           store,
		Scorer:          scorer,
		Logger:          logger,
		Limit:           cfg.MatchLimit,
		InitialRadiusKm: cfg.InitialRadiusKm,
		ScoreTimeout:    cfg.ScoreTimeout,
	}

	s := &Server{
		Directory: dir,
		Matcher:   m,
		Store:     store,
		Kafka:     kp,
		WSReg:     wsreg,
		Payments:  payments.NewStripeClient(),
		Quotes:    pricing.NewQuoteCache(cfg.QuoteCacheTTL),
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewServerFromEnv loads config from the environment; invalid values are
// logged and the defaults kept.
func NewServerFromEnv() *Server {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logging.NewLogger("info").Warn("config load", "error", err)
	}
	return NewServer(cfg)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/quotes", s.handleQuotes).Methods("POST")
	s.mux.HandleFunc("/api/v1/fare/breakdown", s.handleBreakdown).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/request", s.handleRideRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/accept", s.handleAcceptRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/complete", s.handleCompleteRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/cancel", s.handleCancelRide).Methods("POST")
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{session_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type quoteRequest struct {
	Origin      models.Coord        `json:"origin"`
	Destination models.Coord        `json:"destination"`
	Class       models.VehicleClass `json:"vehicle_class"`
}

// handleQuotes prices the trip: all known classes when no class is
// given, otherwise just the requested one.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var q quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := geo.ValidateCoord(q.Origin); err != nil {
		http.Error(w, "origin: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := geo.ValidateCoord(q.Destination); err != nil {
		http.Error(w, "destination: "+err.Error(), http.StatusBadRequest)
		return
	}

	var quotes []models.RideQuote
	if q.Class != "" {
		quote, ok := s.Quotes.Get(q.Origin, q.Destination, q.Class)
		if !ok {
			quote = pricing.Quote(q.Origin, q.Destination, q.Class)
			s.Quotes.Set(q.Origin, q.Destination, q.Class, quote)
		}
		quotes = []models.RideQuote{quote}
	} else {
		quotes = pricing.QuoteAll(q.Origin, q.Destination)
	}
	observability.QuotesTotal.Inc()
	writeJSON(w, map[string]any{"quotes": quotes})
}

type breakdownRequest struct {
	TotalFare float64 `json:"total_fare"`
	Extra     float64 `json:"extra"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	var br breakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&br); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := pricing.Breakdown(br.TotalFare, br.Extra)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleRideRequest(w http.ResponseWriter, r *http.Request) {
	var rr models.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&rr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := geo.ValidateCoord(rr.Origin); err != nil {
		http.Error(w, "origin: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := geo.ValidateCoord(rr.Destination); err != nil {
		http.Error(w, "destination: "+err.Error(), http.StatusBadRequest)
		return
	}

	rideID := uuid.NewString()
	res, ok := s.Matcher.Match(r.Context(), rideID, rr)
	// no drivers is a valid empty outcome, not a server error
	writeJSON(w, map[string]any{
		"ride_id":    rideID,
		"matched":    ok,
		"quote":      res.Quote,
		"candidates": res.Candidates,
	})
}

type acceptRequest struct {
	CustomerID string  `json:"customer_id"`
	Extra      float64 `json:"extra"`
}

// handleAcceptRide holds the fare (plus any extra) with the payment
// provider, marks the ride accepted and starts the simulated tracking
// feed toward the rider's websocket session.
func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	var ar acceptRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&ar)
	}

	ride, ok := s.Store.GetRide(rideID)
	if !ok {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}

	b, err := pricing.Breakdown(ride.Fare, ar.Extra)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	intentID, err := s.Payments.HoldFare(r.Context(), b.FinalFare, defaultCurrency, ar.CustomerID)
	if err != nil {
		s.logger.Error("fare hold failed", "ride_id", rideID, "error", err)
		http.Error(w, "payment hold failed", http.StatusBadGateway)
		return
	}

	ride.Status = "accepted"
	ride.Fare = b.FinalFare
	ride.PaymentIntent = intentID
	ride.UpdatedAt = time.Now()
	if err := s.Store.UpdateRide(ride); err != nil {
		s.logger.Error("update ride failed", "ride_id", rideID, "error", err)
	}

	s.startTracking(ride)

	writeJSON(w, map[string]any{
		"ride_id":        rideID,
		"status":         ride.Status,
		"breakdown":      b,
		"payment_intent": intentID,
	})
}

// handleCompleteRide captures the fare hold and closes out the ride.
func (s *Server) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	ride, ok := s.Store.GetRide(rideID)
	if !ok {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	if ride.Status != "accepted" && ride.Status != "ongoing" {
		http.Error(w, "ride not in progress", http.StatusConflict)
		return
	}

	if ride.PaymentIntent != "" {
		if err := s.Payments.Capture(r.Context(), ride.PaymentIntent); err != nil {
			s.logger.Error("fare capture failed", "ride_id", rideID, "error", err)
			http.Error(w, "payment capture failed", http.StatusBadGateway)
			return
		}
	}

	ride.Status = "completed"
	ride.UpdatedAt = time.Now()
	if err := s.Store.UpdateRide(ride); err != nil {
		s.logger.Error("update ride failed", "ride_id", rideID, "error", err)
	}

	writeJSON(w, map[string]any{"ride_id": rideID, "status": ride.Status, "fare": ride.Fare})
}

// handleCancelRide releases any fare hold and marks the ride canceled.
func (s *Server) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	ride, ok := s.Store.GetRide(rideID)
	if !ok {
		http.Error(w, "ride not found", http.StatusNotFound)
		return
	}
	if ride.Status == "completed" || ride.Status == "canceled" {
		http.Error(w, "ride already closed", http.StatusConflict)
		return
	}

	if ride.PaymentIntent != "" {
		if err := s.Payments.Cancel(r.Context(), ride.PaymentIntent); err != nil {
			s.logger.Error("fare hold release failed", "ride_id", rideID, "error", err)
			http.Error(w, "payment cancel failed", http.StatusBadGateway)
			return
		}
	}

	ride.Status = "canceled"
	ride.UpdatedAt = time.Now()
	if err := s.Store.UpdateRide(ride); err != nil {
		s.logger.Error("update ride failed", "ride_id", rideID, "error", err)
	}

	writeJSON(w, map[string]any{"ride_id": rideID, "status": ride.Status})
}

// startTracking runs the ride-progress simulation in the background,
// feeding the rider's websocket session.
func (s *Server) startTracking(ride *models.Ride) {
	riderID := ride.RiderID
	sink := tracker.SinkFunc(func(_ string, u tracker.Update) error {
		return s.WSReg.Progress(riderID, u)
	})
	tr := tracker.New(tracker.RealClock(), sink, time.Second)
	// driver position is approximated at the origin once matched
	go tr.Run(ride.ID, ride.Origin, ride.Origin, ride.Destination)
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	// Available is a pointer here so a driver posting a location without
	// the flag stays online, while an explicit false takes them offline.
	var in struct {
		models.Driver
		Available *bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d := in.Driver
	if err := geo.ValidateCoord(d.Loc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.Available = in.Available == nil || *in.Available
	// publish to kafka if configured
	if s.Kafka != nil {
		_ = s.Kafka.PublishLocation(d)
	}
	s.Directory.Upsert(d)
	observability.DriversOnline.Inc()
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)

	// read pump: the session is push-only, but reading until error is how
	// we learn the peer went away and can evict the session
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.WSReg.Remove(id)
				_ = conn.Close()
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
