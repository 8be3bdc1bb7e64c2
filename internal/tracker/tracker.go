// Package tracker simulates ride progress for the tracking screen: a
// straight-line path between pickup and destination walked by a state
// machine on clock ticks.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// Clock abstracts time so progress can be driven by a fake in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func RealClock() Clock { return realClock{} }

// Path interpolates n points on the straight line from a to b, endpoints
// included. n < 2 collapses to the two endpoints.
func Path(a, b models.Coord, n int) []models.Coord {
	if n < 2 {
		n = 2
	}
	out := make([]models.Coord, 0, n)
	for i := 0; i < n; i++ {
		ratio := float64(i) / float64(n-1)
		out = append(out, models.Coord{
			Lat: a.Lat + (b.Lat-a.Lat)*ratio,
			Lon: a.Lon + (b.Lon-a.Lon)*ratio,
		})
	}
	return out
}

// FormatMinutes renders an ETA for display: "12 min", "1 hour", "2 hours 5 min".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	unit := "hour"
	if hours > 1 {
		unit = "hours"
	}
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d min", hours, unit, mins)
}

// Ride progress states, in order.
const (
	StateEnroute   = "enroute" // driver heading to pickup
	StateArrived   = "arrived"
	StateOngoing   = "ongoing" // trip in progress
	StateCompleted = "completed"
)

// Update is one progress event pushed to the rider.
type Update struct {
	RideID   string       `json:"ride_id"`
	Status   string       `json:"status"`
	Position models.Coord `json:"position"`
	Step     int          `json:"step"`
	Steps    int          `json:"steps"`
}

// Sink receives progress updates (the websocket registry in production).
type Sink interface {
	Progress(rideID string, u Update) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rideID string, u Update) error

func (f SinkFunc) Progress(rideID string, u Update) error { return f(rideID, u) }

// Tracker walks a ride through its states, emitting one update per tick.
type Tracker struct {
	Clock Clock
	Sink  Sink
	Tick  time.Duration

	mu     sync.Mutex
	status string
}

func New(clock Clock, sink Sink, tick time.Duration) *Tracker {
	if clock == nil {
		clock = RealClock()
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Tracker{Clock: clock, Sink: sink, Tick: tick, status: StateEnroute}
}

func (t *Tracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tracker) setStatus(s string) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Run drives the ride to completion: driver to pickup, arrival, trip to
// destination, done. It blocks until finished; callers run it in a
// goroutine. The path resolution is fixed at 10 points per leg like the
// tracking screen used.
func (t *Tracker) Run(rideID string, driver, pickup, dest models.Coord) {
	const steps = 10

	t.setStatus(StateEnroute)
	t.walk(rideID, StateEnroute, Path(driver, pickup, steps))

	t.setStatus(StateArrived)
	t.emit(rideID, Update{RideID: rideID, Status: StateArrived, Position: pickup, Step: 0, Steps: steps})
	<-t.Clock.After(t.Tick)

	t.setStatus(StateOngoing)
	t.walk(rideID, StateOngoing, Path(pickup, dest, steps))

	t.setStatus(StateCompleted)
	t.emit(rideID, Update{RideID: rideID, Status: StateCompleted, Position: dest, Step: steps - 1, Steps: steps})
}

func (t *Tracker) walk(rideID, status string, path []models.Coord) {
	for i, p := range path {
		t.emit(rideID, Update{RideID: rideID, Status: status, Position: p, Step: i, Steps: len(path)})
		if i < len(path)-1 {
			<-t.Clock.After(t.Tick)
		}
	}
}

func (t *Tracker) emit(rideID string, u Update) {
	if t.Sink == nil {
		return
	}
	_ = t.Sink.Progress(rideID, u) // best-effort, the ride continues regardless
}
