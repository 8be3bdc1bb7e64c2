package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// Remote scores candidates against an external HTTP scoring service
// (stand-in for an ML ranker).
type Remote struct {
	Endpoint string
	Client   *http.Client
}

func NewRemote(endpoint string) *Remote {
	return &Remote{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

type remoteRequest struct {
	Request
	Driver models.RankedDriver `json:"driver"`
}

type remoteResponse struct {
	Score float64 `json:"score"`
	Code  string  `json:"code"`
}

// Score POSTs the ride context and annotated candidate, expecting
// {"score": <float>, "code": "Ok"} back.
func (r *Remote) Score(ctx context.Context, req Request, d models.RankedDriver) (float64, error) {
	body, err := json.Marshal(remoteRequest{Request: req, Driver: d})
	if err != nil {
		return 0, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := r.Client.Do(hreq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrScoringUnavailable, resp.StatusCode)
	}
	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	if out.Code != "" && out.Code != "Ok" {
		return 0, fmt.Errorf("%w: %v", ErrScoringUnavailable, out.Code)
	}
	return out.Score, nil
}
