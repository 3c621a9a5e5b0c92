// Package routing implements the in-memory road network and point-to-point
// routing over it.
//
// A Graph is loaded once from node and edge records and is read-only
// afterwards. Queries snap coordinates to the nearest connected node, run A*
// with a haversine heuristic and stitch the stored edge geometry into a single
// polyline in [lat, lon] order.
package routing
