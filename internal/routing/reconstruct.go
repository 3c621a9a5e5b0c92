package routing

import (
	"math"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

// DefaultSpeedMetersPerMinute is the assumed travel speed (30 km/h).
const DefaultSpeedMetersPerMinute = 500.0

// Options tunes result post-processing.
type Options struct {
	SpeedMetersPerMinute float64
}

func (o Options) speed() float64 {
	if o.SpeedMetersPerMinute <= 0 {
		return DefaultSpeedMetersPerMinute
	}
	return o.SpeedMetersPerMinute
}

// Route is a reconstructed path ready for presentation. Path points are in
// [lat, lon] order. Join points between segments are kept as-is, so the same
// coordinate may appear twice in a row.
type Route struct {
	Found           bool
	Path            []domain.LatLon
	Nodes           []domain.NodeID
	Cost            float64
	DistanceMeters  float64
	DurationMinutes float64
	Expanded        int

	StartNodeID     domain.NodeID
	EndNodeID       domain.NodeID
	StartSnapMeters float64
	EndSnapMeters   float64
}

// Reconstruct turns a search result into a Route.
func (g *Graph) Reconstruct(res SearchResult, opts Options) Route {
	route := Route{
		Found:       res.Found,
		Expanded:    res.Expanded,
		StartNodeID: res.Start,
		EndNodeID:   res.End,
	}
	if !res.Found {
		return route
	}

	var segments [][]domain.LatLon
	nodes := []domain.NodeID{res.End}
	current := res.End
	for current != res.Start {
		s, ok := res.cameFrom[current]
		if !ok {
			break
		}

		points := make([]domain.LatLon, len(s.geometry))
		for i, p := range s.geometry {
			idx := i
			if s.isReverse {
				idx = len(s.geometry) - 1 - i
			}
			points[idx] = domain.ToLatLon(p)
		}
		segments = append(segments, points)
		nodes = append(nodes, s.from)
		current = s.from
	}

	// segments and nodes were collected end→start
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	var path []domain.LatLon
	for _, seg := range segments {
		path = append(path, seg...)
	}
	if len(path) == 0 {
		start := g.nodes[res.Start]
		path = []domain.LatLon{{start.Latitude, start.Longitude}}
	}

	route.Path = path
	route.Nodes = nodes
	route.Cost = res.Cost
	route.DistanceMeters = math.Round(res.Cost)
	route.DurationMinutes = res.Cost / opts.speed()
	return route
}
