package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// PushDispatcher tries the driver's websocket session first and falls
// back to an HTTP push endpoint (driver app backend) when no session is
// connected.
type PushDispatcher struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushDispatcher(endpoint string, ws *WSRegistry) *PushDispatcher {
	return &PushDispatcher{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushDispatcher) Offer(rideID string, offer models.MatchOffer) error {
	if p.WS != nil {
		if err := p.WS.Offer(rideID, offer); err == nil {
			return nil
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	b, _ := json.Marshal(map[string]interface{}{"ride_id": rideID, "offer": offer})
	resp, err := p.Client.Post(p.Endpoint, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}
