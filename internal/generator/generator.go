package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/paulmach/orb"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

const metersPerDegreeLat = 111320.0

// Generator produces synthetic road networks shaped like a town street grid.
type Generator struct {
	cfg    Config
	rand   *rand.Rand
	nextID domain.NodeID
	edgeID int64
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Rows <= 0 {
		cfg.Rows = def.Rows
	}
	if cfg.Cols <= 0 {
		cfg.Cols = def.Cols
	}
	if cfg.SpacingMeters <= 0 {
		cfg.SpacingMeters = def.SpacingMeters
	}
	if cfg.OriginLat == 0 && cfg.OriginLon == 0 {
		cfg.OriginLat, cfg.OriginLon = def.OriginLat, def.OriginLon
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 0.5 {
		cfg.Jitter = def.Jitter
	}
	if cfg.DropChance < 0 || cfg.DropChance >= 1 {
		cfg.DropChance = def.DropChance
	}
	if cfg.MaxDetour < 0 {
		cfg.MaxDetour = 0
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises the network. It respects context cancellation.
//
// Edge weights are never below the polyline length, and polylines are never
// shorter than the straight line between their end nodes, so the haversine
// heuristic stays admissible on generated data.
func (g *Generator) Generate(ctx context.Context) (domain.GraphData, error) {
	var data domain.GraphData

	grid := make([][]domain.Node, g.cfg.Rows)
	for r := 0; r < g.cfg.Rows; r++ {
		if err := ctx.Err(); err != nil {
			return domain.GraphData{}, err
		}
		grid[r] = make([]domain.Node, g.cfg.Cols)
		for c := 0; c < g.cfg.Cols; c++ {
			jr := (g.rand.Float64()*2 - 1) * g.cfg.Jitter
			jc := (g.rand.Float64()*2 - 1) * g.cfg.Jitter
			node := g.node(float64(r)+jr, float64(c)+jc, "")
			grid[r][c] = node
			data.Nodes = append(data.Nodes, node)
		}
	}

	for r := 0; r < g.cfg.Rows; r++ {
		if err := ctx.Err(); err != nil {
			return domain.GraphData{}, err
		}
		for c := 0; c < g.cfg.Cols; c++ {
			if c+1 < g.cfg.Cols && !g.drop() {
				data.Edges = append(data.Edges, g.street(grid[r][c], grid[r][c+1]))
			}
			if r+1 < g.cfg.Rows && !g.drop() {
				data.Edges = append(data.Edges, g.street(grid[r][c], grid[r+1][c]))
			}
		}
	}

	// islands sit east of the grid with a gap of several blocks
	for i := 0; i < g.cfg.Islands; i++ {
		baseRow := float64(i * 4)
		baseCol := float64(g.cfg.Cols + 5)
		a := g.node(baseRow, baseCol, "")
		b := g.node(baseRow, baseCol+1, "")
		c := g.node(baseRow+1, baseCol+1, "")
		data.Nodes = append(data.Nodes, a, b, c)
		data.Edges = append(data.Edges, g.street(a, b), g.street(b, c))
	}

	for i := 0; i < g.cfg.IsolatedNodes; i++ {
		r := g.rand.Float64() * float64(g.cfg.Rows-1)
		c := g.rand.Float64() * float64(g.cfg.Cols-1)
		data.Nodes = append(data.Nodes, g.node(r, c, fmt.Sprintf("Sekolah %02d", i+1)))
	}

	return data, nil
}

func (g *Generator) drop() bool {
	return g.rand.Float64() < g.cfg.DropChance
}

// node places a node at fractional grid coordinates.
func (g *Generator) node(row, col float64, label string) domain.Node {
	g.nextID++
	north := row * g.cfg.SpacingMeters
	east := col * g.cfg.SpacingMeters
	lat := g.cfg.OriginLat + north/metersPerDegreeLat
	lon := g.cfg.OriginLon + east/(metersPerDegreeLat*math.Cos(lat*math.Pi/180))
	return domain.Node{ID: g.nextID, Latitude: lat, Longitude: lon, Label: label}
}

// street connects two nodes. The stored direction is random so loaders see
// edges recorded against the direction of travel.
func (g *Generator) street(a, b domain.Node) domain.Edge {
	if g.rand.Intn(2) == 0 {
		a, b = b, a
	}
	line := orb.LineString{a.Point(), b.Point()}
	if g.rand.Float64() < g.cfg.BendChance {
		mid := orb.Point{
			(a.Longitude+b.Longitude)/2 + (g.rand.Float64()*2-1)*math.Abs(a.Latitude-b.Latitude)*0.2,
			(a.Latitude+b.Latitude)/2 + (g.rand.Float64()*2-1)*math.Abs(a.Longitude-b.Longitude)*0.2,
		}
		line = orb.LineString{a.Point(), mid, b.Point()}
	}

	length := routing.LineLength(line)
	weight := length * (1 + g.rand.Float64()*g.cfg.MaxDetour)
	g.edgeID++
	return domain.Edge{
		ID:       g.edgeID,
		SourceID: a.ID,
		TargetID: b.ID,
		Weight:   math.Ceil(weight*100) / 100,
		Geometry: line,
	}
}
