package routing

import (
	"math"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

// NearestNode returns the connected node closest to (lat, lon) and its
// distance in meters. Nodes without adjacency entries are never returned.
// The scan is linear in the number of nodes.
// TODO: add a grid index once networks grow past a few thousand nodes.
func (g *Graph) NearestNode(lat, lon float64) (domain.NodeID, float64, error) {
	best := domain.NodeID(0)
	bestDist := math.Inf(1)
	found := false

	for id, n := range g.nodes {
		if len(g.adjacency[id]) == 0 {
			continue
		}
		d := Haversine(lat, lon, n.Latitude, n.Longitude)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist, found = id, d, true
		}
	}

	if !found {
		return 0, 0, ErrNoConnectedNode
	}
	return best, bestDist, nil
}
