package domain

import "github.com/paulmach/orb"

// NodeID identifies a node of the road network.
type NodeID int64

// Node is a routable point of the network (intersection or waypoint).
type Node struct {
	ID        NodeID
	Latitude  float64
	Longitude float64
	Label     string
}

// Point returns the node position in (lon, lat) order.
func (n Node) Point() orb.Point {
	return orb.Point{n.Longitude, n.Latitude}
}

// Edge is a stored road segment. Geometry is kept in source→target order with
// every point as (lon, lat).
type Edge struct {
	ID       int64
	SourceID NodeID
	TargetID NodeID
	Weight   float64
	Geometry orb.LineString
}

// GraphData is the raw node/edge set handed over by a graph source.
type GraphData struct {
	Nodes []Node
	Edges []Edge
}

// LatLon is a coordinate in presentation order: [latitude, longitude].
type LatLon [2]float64

// Lat returns the latitude.
func (p LatLon) Lat() float64 { return p[0] }

// Lon returns the longitude.
func (p LatLon) Lon() float64 { return p[1] }

// ToLatLon converts a storage (lon, lat) point into presentation order.
func ToLatLon(p orb.Point) LatLon {
	return LatLon{p.Lat(), p.Lon()}
}
