package routing

import (
	"errors"
	"fmt"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

var (
	// ErrAlreadyLoaded is returned by Load on a graph that already holds data.
	ErrAlreadyLoaded = errors.New("graph already loaded")
	// ErrNoConnectedNode indicates the graph has no node with at least one edge.
	ErrNoConnectedNode = errors.New("no connected node in graph")
	// ErrMissingEndpoint indicates a query endpoint has neither coordinates nor a node id.
	ErrMissingEndpoint = errors.New("endpoint requires coordinates or a node id")
)

// LoadError reports a malformed input graph. EdgeIndex is -1 when the problem
// is with a node record.
type LoadError struct {
	Reason    string
	NodeID    domain.NodeID
	EdgeIndex int
}

func (e *LoadError) Error() string {
	if e.EdgeIndex >= 0 {
		return fmt.Sprintf("load graph: edge %d: %s (node %d)", e.EdgeIndex, e.Reason, e.NodeID)
	}
	return fmt.Sprintf("load graph: node %d: %s", e.NodeID, e.Reason)
}

// InvalidNodeError is returned when a query references a node that is not in the graph.
type InvalidNodeError struct {
	ID domain.NodeID
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("node %d not found in graph", e.ID)
}
