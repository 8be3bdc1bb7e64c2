package geo

import (
	"math"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/example/ride-booking/internal/models"
)

// Directory is the driver-location view required by the HTTP layer and
// the match service. Implementations return snapshot copies; callers own
// the returned slice.
type Directory interface {
	Upsert(d models.Driver)
	WithinRadius(lat, lon, radiusKm float64) []models.Driver
}

// cell dimensions at bucketPrecision are ~4.9km x 4.9km, which keeps the
// 10km max search radius to a handful of buckets.
const bucketPrecision = 5

// Index is an in-memory Directory bucketed by geohash cell.
type Index struct {
	mu      sync.RWMutex
	drivers map[string]models.Driver
	cells   map[string]map[string]struct{} // geohash -> driver IDs
	cell    map[string]string              // driver ID -> geohash
}

func NewIndex() *Index {
	return &Index{
		drivers: make(map[string]models.Driver),
		cells:   make(map[string]map[string]struct{}),
		cell:    make(map[string]string),
	}
}

func (g *Index) Upsert(d models.Driver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d.Updated = time.Now()

	h := geohash.EncodeWithPrecision(d.Loc.Lat, d.Loc.Lon, bucketPrecision)
	if prev, ok := g.cell[d.ID]; ok && prev != h {
		delete(g.cells[prev], d.ID)
		if len(g.cells[prev]) == 0 {
			delete(g.cells, prev)
		}
	}
	if g.cells[h] == nil {
		g.cells[h] = make(map[string]struct{})
	}
	g.cells[h][d.ID] = struct{}{}
	g.cell[d.ID] = h
	g.drivers[d.ID] = d
}

// WithinRadius returns drivers whose haversine distance from (lat, lon)
// is at most radiusKm. Only buckets overlapping the radius bounding box
// are scanned; the exact distance check runs per driver.
func (g *Index) WithinRadius(lat, lon, radiusKm float64) []models.Driver {
	g.mu.RLock()
	defer g.mu.RUnlock()

	center := models.Coord{Lat: lat, Lon: lon}
	var out []models.Driver
	for _, h := range coveringCells(lat, lon, radiusKm) {
		for id := range g.cells[h] {
			d := g.drivers[id]
			if Distance(center, d.Loc) <= radiusKm {
				out = append(out, d)
			}
		}
	}
	return out
}

// coveringCells samples the radius bounding box at half-cell steps and
// collects the distinct geohash buckets hit. Sampling over-covers at the
// edges, which is fine: the caller filters by exact distance.
func coveringCells(lat, lon, radiusKm float64) []string {
	if radiusKm <= 0 {
		return []string{geohash.EncodeWithPrecision(lat, lon, bucketPrecision)}
	}
	latStep := radiusKm / 111.0 / 2 // ~111 km per degree latitude
	lonScale := 111.0 * math.Max(0.1, math.Abs(math.Cos(toRad(lat))))
	lonStep := radiusKm / lonScale / 2
	latSpan := radiusKm / 111.0
	lonSpan := radiusKm / lonScale

	seen := make(map[string]struct{})
	var cells []string
	for la := lat - latSpan; la <= lat+latSpan+latStep/2; la += latStep {
		for lo := lon - lonSpan; lo <= lon+lonSpan+lonStep/2; lo += lonStep {
			h := geohash.EncodeWithPrecision(clampLat(la), lo, bucketPrecision)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			cells = append(cells, h)
		}
	}
	return cells
}

func clampLat(v float64) float64 {
	if v > 90 {
		return 90
	}
	if v < -90 {
		return -90
	}
	return v
}
