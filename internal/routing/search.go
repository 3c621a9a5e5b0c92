package routing

import (
	"math"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/emirpasic/gods/utils"
	"github.com/paulmach/orb"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

// step records how a node was reached during the search.
type step struct {
	from      domain.NodeID
	geometry  orb.LineString
	isReverse bool
}

type openItem struct {
	node domain.NodeID
	g    float64
	f    float64
	seq  int
}

// SearchResult is the raw outcome of an A* run. When Found is false the start
// and end nodes lie in different components.
type SearchResult struct {
	Found    bool
	Start    domain.NodeID
	End      domain.NodeID
	Cost     float64
	Expanded int

	cameFrom map[domain.NodeID]step
}

// compareOpen orders the open set by fScore, then node id, then insertion
// order, which keeps expansion deterministic.
func compareOpen(a, b interface{}) int {
	x := a.(*openItem)
	y := b.(*openItem)
	if c := utils.Float64Comparator(x.f, y.f); c != 0 {
		return c
	}
	if x.node != y.node {
		if x.node < y.node {
			return -1
		}
		return 1
	}
	return utils.IntComparator(x.seq, y.seq)
}

func (g *Graph) heuristic(from, to domain.NodeID) float64 {
	a := g.nodes[from]
	b := g.nodes[to]
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Search runs A* between two node ids using the haversine distance to the end
// node as heuristic. Unreachable pairs are reported through Found, not as an
// error; unknown ids yield *InvalidNodeError.
func (g *Graph) Search(start, end domain.NodeID) (SearchResult, error) {
	if _, ok := g.nodes[start]; !ok {
		return SearchResult{}, &InvalidNodeError{ID: start}
	}
	if _, ok := g.nodes[end]; !ok {
		return SearchResult{}, &InvalidNodeError{ID: end}
	}

	gScore := map[domain.NodeID]float64{start: 0}
	cameFrom := make(map[domain.NodeID]step)

	openSet := priorityqueue.NewWith(compareOpen)
	seq := 0
	openSet.Enqueue(&openItem{node: start, g: 0, f: g.heuristic(start, end), seq: seq})

	expanded := 0
	for !openSet.Empty() {
		raw, _ := openSet.Dequeue()
		current := raw.(*openItem)

		// A later improvement re-queued this node; the old entry is stale.
		if best, ok := gScore[current.node]; ok && current.g > best {
			continue
		}
		expanded++

		if current.node == end {
			return SearchResult{
				Found:    true,
				Start:    start,
				End:      end,
				Cost:     gScore[end],
				Expanded: expanded,
				cameFrom: cameFrom,
			}, nil
		}

		currentG := gScore[current.node]
		for _, adj := range g.adjacency[current.node] {
			tentative := currentG + adj.Weight
			neighborG, seen := gScore[adj.Target]
			if !seen {
				neighborG = math.Inf(1)
			}
			if tentative >= neighborG {
				continue
			}

			cameFrom[adj.Target] = step{
				from:      current.node,
				geometry:  adj.Geometry,
				isReverse: current.node != adj.OriginalSource,
			}
			gScore[adj.Target] = tentative
			seq++
			openSet.Enqueue(&openItem{
				node: adj.Target,
				g:    tentative,
				f:    tentative + g.heuristic(adj.Target, end),
				seq:  seq,
			})
		}
	}

	return SearchResult{Start: start, End: end, Expanded: expanded}, nil
}
