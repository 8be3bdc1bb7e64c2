package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/tracker"
)

// wsConn is the write side of a websocket connection; *websocket.Conn
// satisfies it.
type wsConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// WSSession represents one connected driver or rider session.
type WSSession struct {
	conn wsConn
	mu   sync.Mutex
}

func (s *WSSession) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSRegistry holds live websocket sessions keyed by participant ID.
// It serves both as the matcher's Dispatcher and the tracker's Sink.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(id string, conn *websocket.Conn) { r.add(id, conn) }

func (r *WSRegistry) add(id string, conn wsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *WSRegistry) session(id string) (*WSSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Offer pushes a match offer to the driver's session.
func (r *WSRegistry) Offer(rideID string, offer models.MatchOffer) error {
	s, ok := r.session(offer.DriverID)
	if !ok {
		return ErrNoSession
	}
	payload := struct {
		RideID string `json:"ride_id"`
		models.MatchOffer
	}{RideID: rideID, MatchOffer: offer}
	if err := s.send(payload); err != nil {
		if r.logger != nil {
			r.logger.Warn("ws offer send failed", "driver_id", offer.DriverID, "error", err)
		}
		r.drop(offer.DriverID, s)
		return err
	}
	return nil
}

// Progress pushes a ride-tracking update to the rider's session.
func (r *WSRegistry) Progress(riderID string, u tracker.Update) error {
	s, ok := r.session(riderID)
	if !ok {
		return ErrNoSession
	}
	if err := s.send(u); err != nil {
		r.drop(riderID, s)
		return err
	}
	return nil
}

// drop evicts a session whose connection went bad so the registry does
// not accumulate dead entries.
func (r *WSRegistry) drop(id string, s *WSSession) {
	r.Remove(id)
	_ = s.conn.Close()
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
