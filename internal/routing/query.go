package routing

import (
	"fmt"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

// Endpoint is one side of a routing query. An explicit NodeID takes
// precedence over coordinates.
type Endpoint struct {
	Lat    *float64
	Lon    *float64
	NodeID *domain.NodeID
}

// Query asks for a route between two endpoints.
type Query struct {
	Start Endpoint
	End   Endpoint
}

// resolve returns the node id for an endpoint and the snapping distance in
// meters (zero when the id was given explicitly).
func (g *Graph) resolve(ep Endpoint) (domain.NodeID, float64, error) {
	if ep.NodeID != nil {
		if _, ok := g.nodes[*ep.NodeID]; !ok {
			return 0, 0, &InvalidNodeError{ID: *ep.NodeID}
		}
		return *ep.NodeID, 0, nil
	}
	if ep.Lat == nil || ep.Lon == nil {
		return 0, 0, ErrMissingEndpoint
	}
	return g.NearestNode(*ep.Lat, *ep.Lon)
}

// FindPath resolves both endpoints, searches and reconstructs the route.
func (g *Graph) FindPath(q Query, opts Options) (Route, error) {
	start, startSnap, err := g.resolve(q.Start)
	if err != nil {
		return Route{}, fmt.Errorf("resolve start: %w", err)
	}
	end, endSnap, err := g.resolve(q.End)
	if err != nil {
		return Route{}, fmt.Errorf("resolve end: %w", err)
	}

	res, err := g.Search(start, end)
	if err != nil {
		return Route{}, err
	}

	route := g.Reconstruct(res, opts)
	route.StartSnapMeters = startSnap
	route.EndSnapMeters = endSnap
	return route, nil
}
