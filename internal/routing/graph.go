package routing

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

// Adjacency is one directed traversal option out of a node. OriginalSource and
// OriginalTarget keep the stored edge direction so a traversal can tell
// whether it runs against the stored geometry.
type Adjacency struct {
	Target         domain.NodeID
	Weight         float64
	OriginalSource domain.NodeID
	OriginalTarget domain.NodeID
	Geometry       orb.LineString
}

// Graph holds the loaded road network. It is filled once by Load and is
// read-only afterwards, so any number of searches may share it.
type Graph struct {
	nodes     map[domain.NodeID]domain.Node
	adjacency map[domain.NodeID][]Adjacency
	edges     []domain.Edge
	loaded    bool
}

// NewGraph returns an empty, unloaded graph.
func NewGraph() *Graph {
	return &Graph{}
}

// Load populates the graph. It validates the whole input before publishing
// anything; on error the graph stays empty. Loading twice returns
// ErrAlreadyLoaded; build a new Graph to reload.
func (g *Graph) Load(nodes []domain.Node, edges []domain.Edge) error {
	if g.loaded {
		return ErrAlreadyLoaded
	}

	nodeMap := make(map[domain.NodeID]domain.Node, len(nodes))
	for _, n := range nodes {
		if _, dup := nodeMap[n.ID]; dup {
			return &LoadError{Reason: "duplicate node id", NodeID: n.ID, EdgeIndex: -1}
		}
		nodeMap[n.ID] = n
	}

	adjacency := make(map[domain.NodeID][]Adjacency)
	stored := make([]domain.Edge, 0, len(edges))
	for i, e := range edges {
		src, ok := nodeMap[e.SourceID]
		if !ok {
			return &LoadError{Reason: "unknown source node", NodeID: e.SourceID, EdgeIndex: i}
		}
		dst, ok := nodeMap[e.TargetID]
		if !ok {
			return &LoadError{Reason: "unknown target node", NodeID: e.TargetID, EdgeIndex: i}
		}
		if e.SourceID == e.TargetID {
			return &LoadError{Reason: "self-loop edge", NodeID: e.SourceID, EdgeIndex: i}
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return &LoadError{Reason: "invalid weight", NodeID: e.SourceID, EdgeIndex: i}
		}

		geometry := e.Geometry
		if len(geometry) == 0 {
			geometry = orb.LineString{src.Point(), dst.Point()}
		}
		e.Geometry = geometry
		stored = append(stored, e)

		adjacency[e.SourceID] = append(adjacency[e.SourceID], Adjacency{
			Target:         e.TargetID,
			Weight:         e.Weight,
			OriginalSource: e.SourceID,
			OriginalTarget: e.TargetID,
			Geometry:       geometry,
		})
		adjacency[e.TargetID] = append(adjacency[e.TargetID], Adjacency{
			Target:         e.SourceID,
			Weight:         e.Weight,
			OriginalSource: e.SourceID,
			OriginalTarget: e.TargetID,
			Geometry:       geometry,
		})
	}

	g.nodes = nodeMap
	g.adjacency = adjacency
	g.edges = stored
	g.loaded = true
	return nil
}

// Loaded reports whether Load completed successfully.
func (g *Graph) Loaded() bool { return g.loaded }

// Node looks up a node by id.
func (g *Graph) Node(id domain.NodeID) (domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Adjacency returns the traversal options out of id. The slice is shared with
// the graph and must not be modified.
func (g *Graph) Adjacency(id domain.NodeID) []Adjacency {
	return g.adjacency[id]
}

// NodeCount returns the number of loaded nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of loaded edge records.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// ConnectedCount returns the number of nodes with at least one adjacency entry.
func (g *Graph) ConnectedCount() int { return len(g.adjacency) }

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns the edge records in load order.
func (g *Graph) Edges() []domain.Edge {
	return append([]domain.Edge(nil), g.edges...)
}
