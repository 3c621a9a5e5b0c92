package routing

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// lineGraph builds N1(0,0) - N2(0,0.001) - N3(0,0.002) plus the isolated N4(10,10).
func lineGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	err := g.Load(
		[]domain.Node{
			{ID: 1, Latitude: 0, Longitude: 0, Label: "N1"},
			{ID: 2, Latitude: 0, Longitude: 0.001, Label: "N2"},
			{ID: 3, Latitude: 0, Longitude: 0.002, Label: "N3"},
			{ID: 4, Latitude: 10, Longitude: 10, Label: "N4"},
		},
		[]domain.Edge{
			{SourceID: 1, TargetID: 2, Weight: 111, Geometry: orb.LineString{{0, 0}, {0.001, 0}}},
			{SourceID: 2, TargetID: 3, Weight: 111, Geometry: orb.LineString{{0.001, 0}, {0.002, 0}}},
		},
	)
	require.NoError(t, err)
	return g
}

// gridGraph builds a rows x cols grid with weights slightly above the
// straight-line distance, so the heuristic stays admissible.
func gridGraph(t *testing.T, rows, cols int) *Graph {
	t.Helper()
	var nodes []domain.Node
	var edges []domain.Edge
	id := func(r, c int) domain.NodeID { return domain.NodeID(r*cols + c + 1) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			nodes = append(nodes, domain.Node{ID: id(r, c), Latitude: float64(r) * 0.001, Longitude: float64(c) * 0.001})
		}
	}
	link := func(a, b domain.Node, factor float64) {
		geom := orb.LineString{a.Point(), {(a.Longitude + b.Longitude) / 2, (a.Latitude + b.Latitude) / 2}, b.Point()}
		edges = append(edges, domain.Edge{SourceID: a.ID, TargetID: b.ID, Weight: LineLength(geom) * factor, Geometry: geom})
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			n := nodes[r*cols+c]
			if c+1 < cols {
				link(n, nodes[r*cols+c+1], 1.1+float64((r+c)%3)*0.2)
			}
			if r+1 < rows {
				link(nodes[(r+1)*cols+c], n, 1.05+float64((r*c)%4)*0.15)
			}
		}
	}
	g := NewGraph()
	require.NoError(t, g.Load(nodes, edges))
	return g
}

func TestGraphLoad_TwoAdjacencyEntriesPerEdge(t *testing.T) {
	g := gridGraph(t, 4, 5)

	total := 0
	for _, n := range g.Nodes() {
		total += len(g.Adjacency(n.ID))
	}
	assert.Equal(t, 2*g.EdgeCount(), total)

	for i, e := range g.Edges() {
		assert.NotEmpty(t, g.Adjacency(e.SourceID), "edge %d source", i)
		assert.NotEmpty(t, g.Adjacency(e.TargetID), "edge %d target", i)
	}
}

func TestGraphLoad_ForwardAndBackwardEntries(t *testing.T) {
	g := lineGraph(t)

	fwd := g.Adjacency(1)
	require.Len(t, fwd, 1)
	assert.Equal(t, domain.NodeID(2), fwd[0].Target)
	assert.Equal(t, domain.NodeID(1), fwd[0].OriginalSource)
	assert.Equal(t, domain.NodeID(2), fwd[0].OriginalTarget)

	mid := g.Adjacency(2)
	require.Len(t, mid, 2)
	assert.Equal(t, domain.NodeID(1), mid[0].Target)
	assert.Equal(t, domain.NodeID(1), mid[0].OriginalSource)
	assert.Equal(t, domain.NodeID(3), mid[1].Target)

	assert.Empty(t, g.Adjacency(4))
	assert.Empty(t, g.Adjacency(99))
	assert.Equal(t, 3, g.ConnectedCount())
}

func TestGraphLoad_Errors(t *testing.T) {
	nodes := []domain.Node{{ID: 1}, {ID: 2, Longitude: 0.001}}
	tests := []struct {
		name  string
		nodes []domain.Node
		edges []domain.Edge
		want  string
	}{
		{"unknown target", nodes, []domain.Edge{{SourceID: 1, TargetID: 7, Weight: 1}}, "unknown target node"},
		{"unknown source", nodes, []domain.Edge{{SourceID: 9, TargetID: 2, Weight: 1}}, "unknown source node"},
		{"negative weight", nodes, []domain.Edge{{SourceID: 1, TargetID: 2, Weight: -1}}, "invalid weight"},
		{"nan weight", nodes, []domain.Edge{{SourceID: 1, TargetID: 2, Weight: math.NaN()}}, "invalid weight"},
		{"self loop", nodes, []domain.Edge{{SourceID: 1, TargetID: 1, Weight: 1}}, "self-loop edge"},
		{"duplicate node", append(nodes, domain.Node{ID: 1}), nil, "duplicate node id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			err := g.Load(tt.nodes, tt.edges)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.want, loadErr.Reason)
			assert.False(t, g.Loaded())
			assert.Zero(t, g.NodeCount())
			assert.Zero(t, g.EdgeCount())
		})
	}
}

func TestGraphLoad_Twice(t *testing.T) {
	g := lineGraph(t)
	err := g.Load([]domain.Node{{ID: 10}}, nil)
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Equal(t, 4, g.NodeCount())
	_, ok := g.Node(10)
	assert.False(t, ok)
}

func TestGraphLoad_MissingGeometryFallsBackToStraightLine(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Load(
		[]domain.Node{{ID: 1, Latitude: 1, Longitude: 2}, {ID: 2, Latitude: 3, Longitude: 4}},
		[]domain.Edge{{SourceID: 1, TargetID: 2, Weight: 5}},
	))

	adj := g.Adjacency(2)
	require.Len(t, adj, 1)
	assert.Equal(t, orb.LineString{{2, 1}, {4, 3}}, adj[0].Geometry)

	route, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(2))}, End: Endpoint{NodeID: ptr(domain.NodeID(1))}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []domain.LatLon{{3, 4}, {1, 2}}, route.Path)
}

func TestNearestNode_SkipsIsolatedNodes(t *testing.T) {
	g := lineGraph(t)

	id, dist, err := g.NearestNode(10, 10)
	require.NoError(t, err)
	assert.NotEqual(t, domain.NodeID(4), id)
	assert.Equal(t, domain.NodeID(3), id)
	assert.Greater(t, dist, 1000.0)

	id, dist, err = g.NearestNode(0.00001, 0.00099)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(2), id)
	assert.Less(t, dist, 5.0)
}

func TestNearestNode_NoConnectedNode(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Load([]domain.Node{{ID: 4, Latitude: 10, Longitude: 10}}, nil))

	_, _, err := g.NearestNode(10, 10)
	assert.ErrorIs(t, err, ErrNoConnectedNode)

	_, err = g.FindPath(Query{Start: Endpoint{Lat: ptr(10.0), Lon: ptr(10.0)}, End: Endpoint{NodeID: ptr(domain.NodeID(4))}}, Options{})
	assert.ErrorIs(t, err, ErrNoConnectedNode)
}

func TestNearestNode_TieBreaksOnLowerID(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Load(
		[]domain.Node{{ID: 5, Latitude: 0, Longitude: 0.001}, {ID: 3, Latitude: 0, Longitude: -0.001}},
		[]domain.Edge{{SourceID: 5, TargetID: 3, Weight: 222}},
	))
	for i := 0; i < 10; i++ {
		id, _, err := g.NearestNode(0, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.NodeID(3), id)
	}
}

func TestFindPath_LineScenario(t *testing.T) {
	g := lineGraph(t)

	route, err := g.FindPath(Query{
		Start: Endpoint{NodeID: ptr(domain.NodeID(1))},
		End:   Endpoint{NodeID: ptr(domain.NodeID(3))},
	}, Options{SpeedMetersPerMinute: 500})
	require.NoError(t, err)
	require.True(t, route.Found)

	assert.Equal(t, []domain.NodeID{1, 2, 3}, route.Nodes)
	assert.Equal(t, []domain.LatLon{{0, 0}, {0, 0.001}, {0, 0.001}, {0, 0.002}}, route.Path)
	assert.Equal(t, 222.0, route.DistanceMeters)
	assert.InDelta(t, 0.444, route.DurationMinutes, 1e-9)
}

func TestFindPath_SnapsCoordinates(t *testing.T) {
	g := lineGraph(t)

	route, err := g.FindPath(Query{
		Start: Endpoint{Lat: ptr(0.0001), Lon: ptr(-0.0001)},
		End:   Endpoint{Lat: ptr(10.0), Lon: ptr(10.0)},
	}, Options{})
	require.NoError(t, err)
	require.True(t, route.Found)
	assert.Equal(t, domain.NodeID(1), route.StartNodeID)
	assert.Equal(t, domain.NodeID(3), route.EndNodeID)
	assert.Greater(t, route.StartSnapMeters, 0.0)
	assert.InDelta(t, 0.444, route.DurationMinutes, 1e-9)
}

func TestFindPath_ReversalMirrorsForwardPath(t *testing.T) {
	g := lineGraph(t)

	forward, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}, End: Endpoint{NodeID: ptr(domain.NodeID(2))}}, Options{})
	require.NoError(t, err)
	backward, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(2))}, End: Endpoint{NodeID: ptr(domain.NodeID(1))}}, Options{})
	require.NoError(t, err)

	require.Len(t, backward.Path, len(forward.Path))
	for i := range forward.Path {
		assert.Equal(t, forward.Path[i], backward.Path[len(backward.Path)-1-i])
	}
	assert.Equal(t, domain.LatLon{0, 0.001}, backward.Path[0])
}

func TestFindPath_EdgeStoredAgainstTravelDirection(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Load(
		[]domain.Node{{ID: 1, Latitude: 1, Longitude: 1}, {ID: 2, Latitude: 2, Longitude: 2}},
		[]domain.Edge{{SourceID: 2, TargetID: 1, Weight: 10, Geometry: orb.LineString{{2, 2}, {1.5, 1.7}, {1, 1}}}},
	))

	route, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}, End: Endpoint{NodeID: ptr(domain.NodeID(2))}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []domain.LatLon{{1, 1}, {1.7, 1.5}, {2, 2}}, route.Path)
}

func TestSearch_PrefersCheaperPath(t *testing.T) {
	// 1 -> 4 directly costs more than 1 -> 2 -> 3 -> 4.
	g := NewGraph()
	require.NoError(t, g.Load(
		[]domain.Node{
			{ID: 1, Latitude: 0, Longitude: 0},
			{ID: 2, Latitude: 0.001, Longitude: 0.001},
			{ID: 3, Latitude: 0.001, Longitude: 0.002},
			{ID: 4, Latitude: 0, Longitude: 0.003},
		},
		[]domain.Edge{
			{SourceID: 1, TargetID: 4, Weight: 1000},
			{SourceID: 1, TargetID: 2, Weight: 160},
			{SourceID: 3, TargetID: 2, Weight: 112},
			{SourceID: 3, TargetID: 4, Weight: 160},
		},
	))

	route, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}, End: Endpoint{NodeID: ptr(domain.NodeID(4))}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeID{1, 2, 3, 4}, route.Nodes)
	assert.Equal(t, 432.0, route.DistanceMeters)
}

func TestSearch_DisconnectedComponents(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.Load(
		[]domain.Node{{ID: 1}, {ID: 2, Longitude: 0.001}, {ID: 3, Latitude: 1}, {ID: 4, Latitude: 1, Longitude: 0.001}},
		[]domain.Edge{{SourceID: 1, TargetID: 2, Weight: 111}, {SourceID: 3, TargetID: 4, Weight: 111}},
	))

	res, err := g.Search(1, 4)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 2, res.Expanded)

	route, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}, End: Endpoint{NodeID: ptr(domain.NodeID(3))}}, Options{})
	require.NoError(t, err)
	assert.False(t, route.Found)
	assert.Empty(t, route.Path)
}

func TestSearch_InvalidNode(t *testing.T) {
	g := lineGraph(t)

	_, err := g.Search(1, 42)
	var invalid *InvalidNodeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.NodeID(42), invalid.ID)

	_, err = g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(42))}, End: Endpoint{NodeID: ptr(domain.NodeID(1))}}, Options{})
	require.ErrorAs(t, err, &invalid)
}

func TestFindPath_MissingEndpoint(t *testing.T) {
	g := lineGraph(t)

	_, err := g.FindPath(Query{Start: Endpoint{Lat: ptr(0.0)}, End: Endpoint{NodeID: ptr(domain.NodeID(1))}}, Options{})
	assert.ErrorIs(t, err, ErrMissingEndpoint)

	_, err = g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}}, Options{})
	assert.ErrorIs(t, err, ErrMissingEndpoint)
}

func TestFindPath_SameStartAndEnd(t *testing.T) {
	g := lineGraph(t)

	route, err := g.FindPath(Query{Start: Endpoint{NodeID: ptr(domain.NodeID(2))}, End: Endpoint{NodeID: ptr(domain.NodeID(2))}}, Options{})
	require.NoError(t, err)
	assert.True(t, route.Found)
	assert.Equal(t, []domain.LatLon{{0, 0.001}}, route.Path)
	assert.Zero(t, route.DistanceMeters)
	assert.Zero(t, route.DurationMinutes)
}

func TestFindPath_GridProperties(t *testing.T) {
	g := gridGraph(t, 6, 7)

	pairs := [][2]domain.NodeID{{1, 42}, {42, 1}, {7, 36}, {15, 28}, {3, 3 + 7*5}}
	for _, pair := range pairs {
		t.Run(fmt.Sprintf("%d-%d", pair[0], pair[1]), func(t *testing.T) {
			q := Query{Start: Endpoint{NodeID: ptr(pair[0])}, End: Endpoint{NodeID: ptr(pair[1])}}
			route, err := g.FindPath(q, Options{})
			require.NoError(t, err)
			require.True(t, route.Found)

			var sum float64
			for i := 1; i < len(route.Nodes); i++ {
				sum += cheapestEdge(t, g, route.Nodes[i-1], route.Nodes[i])
			}
			assert.InDelta(t, route.Cost, sum, 1e-6)
			assert.Equal(t, math.Round(sum), route.DistanceMeters)

			start, _ := g.Node(pair[0])
			end, _ := g.Node(pair[1])
			assert.Equal(t, domain.LatLon{start.Latitude, start.Longitude}, route.Path[0])
			assert.Equal(t, domain.LatLon{end.Latitude, end.Longitude}, route.Path[len(route.Path)-1])

			again, err := g.FindPath(q, Options{})
			require.NoError(t, err)
			assert.Equal(t, route, again)
		})
	}
}

func TestFindPath_OptimalAgainstExhaustiveSearch(t *testing.T) {
	g := gridGraph(t, 5, 5)
	want := dijkstraCosts(g, 1)

	for _, n := range g.Nodes() {
		res, err := g.Search(1, n.ID)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.InDelta(t, want[n.ID], res.Cost, 1e-6, "node %d", n.ID)
	}
}

func TestFindPath_ConcurrentQueriesShareGraph(t *testing.T) {
	g := gridGraph(t, 8, 8)
	q := Query{Start: Endpoint{NodeID: ptr(domain.NodeID(1))}, End: Endpoint{NodeID: ptr(domain.NodeID(64))}}
	want, err := g.FindPath(q, Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := g.FindPath(q, Options{})
			if err != nil {
				errs <- err
				return
			}
			if got.Cost != want.Cost || len(got.Path) != len(want.Path) {
				errs <- errors.New("concurrent result differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 111.19, Haversine(0, 0, 0, 0.001), 0.01)
	assert.Zero(t, Haversine(12, 34, 12, 34))
	assert.InDelta(t, Haversine(0, 0, 0.001, 0.001), Haversine(0.001, 0.001, 0, 0), 1e-9)
	assert.InDelta(t, 222.39, LineLength(orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}}), 0.01)
}

func cheapestEdge(t *testing.T, g *Graph, from, to domain.NodeID) float64 {
	t.Helper()
	best := math.Inf(1)
	for _, adj := range g.Adjacency(from) {
		if adj.Target == to && adj.Weight < best {
			best = adj.Weight
		}
	}
	require.False(t, math.IsInf(best, 1), "no edge %d -> %d", from, to)
	return best
}

// dijkstraCosts is a quadratic reference implementation used to check A*.
func dijkstraCosts(g *Graph, start domain.NodeID) map[domain.NodeID]float64 {
	dist := map[domain.NodeID]float64{start: 0}
	done := map[domain.NodeID]bool{}
	for {
		var cur domain.NodeID
		best := math.Inf(1)
		for id, d := range dist {
			if !done[id] && d < best {
				cur, best = id, d
			}
		}
		if math.IsInf(best, 1) {
			return dist
		}
		done[cur] = true
		for _, adj := range g.Adjacency(cur) {
			nd := best + adj.Weight
			if old, ok := dist[adj.Target]; !ok || nd < old {
				dist[adj.Target] = nd
			}
		}
	}
}
