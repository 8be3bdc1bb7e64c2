package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/models"
)

// fakePayments stands in for the stripe client so handler tests never
// touch the network.
type fakePayments struct {
	held     []float64
	captured []string
	canceled []string
	failHold bool
}

func (f *fakePayments) HoldFare(_ context.Context, fare float64, _, _ string) (string, error) {
	if f.failHold {
		return "", fmt.Errorf("hold refused")
	}
	f.held = append(f.held, fare)
	return fmt.Sprintf("pi_%d", len(f.held)), nil
}

func (f *fakePayments) Capture(_ context.Context, id string) error {
	f.captured = append(f.captured, id)
	return nil
}

func (f *fakePayments) Cancel(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

func newTestServer() *Server {
	cfg := config.ServerConfig{
		MatchLimit:      3,
		InitialRadiusKm: 2,
		QuoteCacheTTL:   0, // effectively disabled
		LogLevel:        "error",
	}
	s := NewServer(cfg)
	s.Payments = &fakePayments{}
	return s
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestQuotesEndpointSingleClass(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/quotes", map[string]any{
		"origin":        models.Coord{Lat: 12.9716, Lon: 77.5946},
		"destination":   models.Coord{Lat: 12.9784, Lon: 77.6408},
		"vehicle_class": "auto",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Quotes []models.RideQuote `json:"quotes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(resp.Quotes))
	}
	q := resp.Quotes[0]
	if q.DistanceKm != 5.06 || q.ETAMinutes != 15 || q.Fare != 118 {
		t.Fatalf("unexpected quote: %+v", q)
	}
}

func TestQuotesEndpointAllClasses(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/quotes", map[string]any{
		"origin":      models.Coord{Lat: 12.9716, Lon: 77.5946},
		"destination": models.Coord{Lat: 12.9784, Lon: 77.6408},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Quotes []models.RideQuote `json:"quotes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Quotes) != len(models.KnownClasses) {
		t.Fatalf("expected %d quotes, got %d", len(models.KnownClasses), len(resp.Quotes))
	}
}

func TestQuotesEndpointRejectsBadCoords(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/quotes", map[string]any{
		"origin":      models.Coord{Lat: 95, Lon: 77.5946},
		"destination": models.Coord{Lat: 12.9784, Lon: 77.6408},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBreakdownEndpoint(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/fare/breakdown", map[string]any{"total_fare": 118.0, "extra": 20.0})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var b models.FareBreakdown
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Base != 35.40 || b.Extra != 20 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	sum := b.Base + b.Distance + b.Time + b.Surge + b.Booking + b.Tolls + b.Surcharges + b.Extra
	if sum != b.FinalFare {
		t.Fatalf("components %v do not reconstruct final fare %v", sum, b.FinalFare)
	}
}

func TestBreakdownEndpointRejectsNegative(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/fare/breakdown", map[string]any{"total_fare": -1.0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRideRequestMatchesSeededDrivers(t *testing.T) {
	s := newTestServer()

	// seed the directory through the ingest endpoint
	drivers := []models.Driver{
		{ID: "a1", Class: models.ClassAuto, Loc: models.Coord{Lat: 12.9736, Lon: 77.5976}, Rating: 4.6, Available: true},
		{ID: "a2", Class: models.ClassAuto, Loc: models.Coord{Lat: 13.0200, Lon: 77.5946}, Rating: 4.9, Available: true},
	}
	for _, d := range drivers {
		if w := postJSON(t, s, "/internal/driver/locations", d); w.Code != http.StatusNoContent {
			t.Fatalf("seed driver %s: status %d", d.ID, w.Code)
		}
	}

	w := postJSON(t, s, "/api/v1/rides/request", models.RideRequest{
		RiderID:     "r1",
		Origin:      models.Coord{Lat: 12.9716, Lon: 77.5946},
		Destination: models.Coord{Lat: 12.9784, Lon: 77.6408},
		Class:       models.ClassAuto,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RideID     string                `json:"ride_id"`
		Matched    bool                  `json:"matched"`
		Quote      models.RideQuote      `json:"quote"`
		Candidates []models.RankedDriver `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Matched {
		t.Fatalf("expected a match: %s", w.Body.String())
	}
	if resp.Candidates[0].ID != "a1" {
		t.Fatalf("expected nearest auto first, got %s", resp.Candidates[0].ID)
	}
	if resp.Quote.Fare != 118 {
		t.Fatalf("expected fare 118, got %v", resp.Quote.Fare)
	}

	// the matched ride must be retrievable
	if _, ok := s.Store.GetRide(resp.RideID); !ok {
		t.Fatal("ride not persisted")
	}
}

func TestRideRequestEmptyPoolIsNotAnError(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/rides/request", models.RideRequest{
		RiderID:     "r1",
		Origin:      models.Coord{Lat: 12.9716, Lon: 77.5946},
		Destination: models.Coord{Lat: 12.9784, Lon: 77.6408},
		Class:       models.ClassCab,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with empty result, got %d", w.Code)
	}
	var resp struct {
		Matched    bool                  `json:"matched"`
		Candidates []models.RankedDriver `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Matched || len(resp.Candidates) != 0 {
		t.Fatalf("expected no match, got %+v", resp)
	}
}

func TestAcceptUnknownRide(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s, "/api/v1/rides/nope/accept", map[string]any{})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// matchRide seeds one auto driver and books a ride, returning its ID.
func matchRide(t *testing.T, s *Server) string {
	t.Helper()
	d := models.Driver{ID: "a1", Class: models.ClassAuto, Loc: models.Coord{Lat: 12.9736, Lon: 77.5976}, Rating: 4.6, Available: true}
	if w := postJSON(t, s, "/internal/driver/locations", d); w.Code != http.StatusNoContent {
		t.Fatalf("seed driver: status %d", w.Code)
	}
	w := postJSON(t, s, "/api/v1/rides/request", models.RideRequest{
		RiderID:     "r1",
		Origin:      models.Coord{Lat: 12.9716, Lon: 77.5946},
		Destination: models.Coord{Lat: 12.9784, Lon: 77.6408},
		Class:       models.ClassAuto,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ride request: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RideID  string `json:"ride_id"`
		Matched bool   `json:"matched"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Matched {
		t.Fatalf("expected a match: %s", w.Body.String())
	}
	return resp.RideID
}

func TestAcceptHoldsFareAndStoresIntent(t *testing.T) {
	s := newTestServer()
	fp := &fakePayments{}
	s.Payments = fp
	rideID := matchRide(t, s)

	w := postJSON(t, s, "/api/v1/rides/"+rideID+"/accept", map[string]any{"extra": 20.0})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status        string               `json:"status"`
		Breakdown     models.FareBreakdown `json:"breakdown"`
		PaymentIntent string               `json:"payment_intent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "accepted" || resp.PaymentIntent == "" {
		t.Fatalf("unexpected accept response: %+v", resp)
	}
	if len(fp.held) != 1 || fp.held[0] != resp.Breakdown.FinalFare {
		t.Fatalf("hold should cover the final fare: held %v, fare %v", fp.held, resp.Breakdown.FinalFare)
	}

	ride, ok := s.Store.GetRide(rideID)
	if !ok || ride.PaymentIntent != resp.PaymentIntent || ride.Status != "accepted" {
		t.Fatalf("intent not persisted: %+v", ride)
	}
}

func TestCompleteRideCapturesHold(t *testing.T) {
	s := newTestServer()
	fp := &fakePayments{}
	s.Payments = fp
	rideID := matchRide(t, s)
	if w := postJSON(t, s, "/api/v1/rides/"+rideID+"/accept", map[string]any{}); w.Code != http.StatusOK {
		t.Fatalf("accept: status %d", w.Code)
	}

	w := postJSON(t, s, "/api/v1/rides/"+rideID+"/complete", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: status %d: %s", w.Code, w.Body.String())
	}
	if len(fp.captured) != 1 {
		t.Fatalf("expected one capture, got %v", fp.captured)
	}
	ride, _ := s.Store.GetRide(rideID)
	if ride.Status != "completed" {
		t.Fatalf("expected completed, got %s", ride.Status)
	}

	// a completed ride cannot be completed or canceled again
	if w := postJSON(t, s, "/api/v1/rides/"+rideID+"/complete", map[string]any{}); w.Code != http.StatusConflict {
		t.Fatalf("double complete: expected 409, got %d", w.Code)
	}
	if w := postJSON(t, s, "/api/v1/rides/"+rideID+"/cancel", map[string]any{}); w.Code != http.StatusConflict {
		t.Fatalf("cancel after complete: expected 409, got %d", w.Code)
	}
}

func TestCancelRideReleasesHold(t *testing.T) {
	s := newTestServer()
	fp := &fakePayments{}
	s.Payments = fp
	rideID := matchRide(t, s)
	if w := postJSON(t, s, "/api/v1/rides/"+rideID+"/accept", map[string]any{}); w.Code != http.StatusOK {
		t.Fatalf("accept: status %d", w.Code)
	}

	w := postJSON(t, s, "/api/v1/rides/"+rideID+"/cancel", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d: %s", w.Code, w.Body.String())
	}
	if len(fp.canceled) != 1 {
		t.Fatalf("expected one hold release, got %v", fp.canceled)
	}
	if len(fp.captured) != 0 {
		t.Fatalf("cancel must not capture: %v", fp.captured)
	}
	ride, _ := s.Store.GetRide(rideID)
	if ride.Status != "canceled" {
		t.Fatalf("expected canceled, got %s", ride.Status)
	}
}

func TestCancelBeforeAcceptSkipsPayments(t *testing.T) {
	s := newTestServer()
	fp := &fakePayments{}
	s.Payments = fp
	rideID := matchRide(t, s)

	// matched but never accepted: no hold exists to release
	w := postJSON(t, s, "/api/v1/rides/"+rideID+"/cancel", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d: %s", w.Code, w.Body.String())
	}
	if len(fp.canceled) != 0 {
		t.Fatalf("no hold to release, but Cancel called: %v", fp.canceled)
	}
}

func TestCompleteUnknownRide(t *testing.T) {
	s := newTestServer()
	if w := postJSON(t, s, "/api/v1/rides/nope/complete", map[string]any{}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDriverLocationHonorsAvailability(t *testing.T) {
	s := newTestServer()

	// an explicit available=false must keep the driver out of matching
	off := models.Driver{ID: "a1", Class: models.ClassAuto, Loc: models.Coord{Lat: 12.9736, Lon: 77.5976}, Rating: 4.6}
	if w := postJSON(t, s, "/internal/driver/locations", off); w.Code != http.StatusNoContent {
		t.Fatalf("seed driver: status %d", w.Code)
	}
	w := postJSON(t, s, "/api/v1/rides/request", models.RideRequest{
		RiderID:     "r1",
		Origin:      models.Coord{Lat: 12.9716, Lon: 77.5946},
		Destination: models.Coord{Lat: 12.9784, Lon: 77.6408},
		Class:       models.ClassAuto,
	})
	var resp struct {
		Matched bool `json:"matched"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Matched {
		t.Fatal("offline driver must not be matched")
	}

	// a location ping without the flag keeps the driver online
	if w := postJSON(t, s, "/internal/driver/locations", map[string]any{
		"id": "a2", "vehicle_class": "auto", "rating": 4.6,
		"loc": map[string]float64{"lat": 12.9736, "lon": 77.5976},
	}); w.Code != http.StatusNoContent {
		t.Fatalf("seed driver: status %d", w.Code)
	}
	w = postJSON(t, s, "/api/v1/rides/request", models.RideRequest{
		RiderID:     "r1",
		Origin:      models.Coord{Lat: 12.9716, Lon: 77.5946},
		Destination: models.Coord{Lat: 12.9784, Lon: 77.6408},
		Class:       models.ClassAuto,
	})
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Matched {
		t.Fatalf("driver omitting the flag should stay online: %s", w.Body.String())
	}
}
