package repository

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/graph"
)

// Repository reads and writes the road network stored in the graph database.
// Nodes are :GraphNode vertices, edges are :ROAD_SEGMENT relationships whose
// geometry is kept as a JSON string because Neo4j properties cannot hold
// nested lists.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// Name identifies the source in logs.
func (r *Repository) Name() string { return "neo4j" }

// LoadGraph fetches every node and edge. Nodes and edges are read
// concurrently.
func (r *Repository) LoadGraph(ctx context.Context) (domain.GraphData, error) {
	var (
		nodes []domain.Node
		edges []domain.Edge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.client.ExecuteRead(gctx, loadNodesCypher, nil)
		if err != nil {
			return fmt.Errorf("load nodes query: %w", err)
		}
		nodes = make([]domain.Node, 0, len(res.Records))
		for _, record := range res.Records {
			nodes = append(nodes, domain.Node{
				ID:        domain.NodeID(toInt64(record["id"])),
				Latitude:  toFloat64(record["latitude"]),
				Longitude: toFloat64(record["longitude"]),
				Label:     toString(record["label"]),
			})
		}
		return nil
	})
	g.Go(func() error {
		res, err := r.client.ExecuteRead(gctx, loadEdgesCypher, nil)
		if err != nil {
			return fmt.Errorf("load edges query: %w", err)
		}
		edges = make([]domain.Edge, 0, len(res.Records))
		for _, record := range res.Records {
			geometry, err := decodeGeometry(record["geometry"])
			if err != nil {
				return fmt.Errorf("edge %d: %w", toInt64(record["id"]), err)
			}
			edges = append(edges, domain.Edge{
				ID:       toInt64(record["id"]),
				SourceID: domain.NodeID(toInt64(record["sourceId"])),
				TargetID: domain.NodeID(toInt64(record["targetId"])),
				Weight:   toFloat64(record["weight"]),
				Geometry: geometry,
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.GraphData{}, err
	}

	return domain.GraphData{Nodes: nodes, Edges: edges}, nil
}

// EnsureSchema creates the uniqueness constraint used by the upserts.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, nodeConstraintCypher, nil); err != nil {
		return fmt.Errorf("create node constraint: %w", err)
	}
	return nil
}

// UpsertNodes merges a batch of nodes.
func (r *Repository) UpsertNodes(ctx context.Context, nodes []domain.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, map[string]any{
			"id":        int64(n.ID),
			"latitude":  n.Latitude,
			"longitude": n.Longitude,
			"label":     n.Label,
		})
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertNodesCypher, map[string]any{"nodes": rows}); err != nil {
		return fmt.Errorf("upsert %d nodes starting at %d: %w", len(nodes), nodes[0].ID, err)
	}
	return nil
}

// UpsertEdges merges a batch of edges. Both endpoints must already exist.
func (r *Repository) UpsertEdges(ctx context.Context, edges []domain.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e.SourceID == e.TargetID {
			return errors.New("edge endpoints must differ")
		}
		geometry, err := encodeGeometry(e.Geometry)
		if err != nil {
			return fmt.Errorf("edge %d: %w", e.ID, err)
		}
		rows = append(rows, map[string]any{
			"id":       e.ID,
			"sourceId": int64(e.SourceID),
			"targetId": int64(e.TargetID),
			"weight":   e.Weight,
			"geometry": geometry,
		})
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertEdgesCypher, map[string]any{"edges": rows}); err != nil {
		return fmt.Errorf("upsert %d edges starting at %d: %w", len(edges), edges[0].ID, err)
	}
	return nil
}

const loadNodesCypher = `
MATCH (n:GraphNode)
RETURN n.id AS id, n.latitude AS latitude, n.longitude AS longitude, n.label AS label
ORDER BY n.id
`

const loadEdgesCypher = `
MATCH (s:GraphNode)-[e:ROAD_SEGMENT]->(t:GraphNode)
RETURN e.id AS id, s.id AS sourceId, t.id AS targetId, e.weight AS weight, e.geometry AS geometry
ORDER BY e.id
`

const nodeConstraintCypher = `
CREATE CONSTRAINT graph_node_id IF NOT EXISTS
FOR (n:GraphNode) REQUIRE n.id IS UNIQUE
`

const upsertNodesCypher = `
UNWIND $nodes AS row
MERGE (n:GraphNode {id: row.id})
SET n.latitude = row.latitude,
	n.longitude = row.longitude,
	n.label = row.label
`

const upsertEdgesCypher = `
UNWIND $edges AS row
MATCH (s:GraphNode {id: row.sourceId})
MATCH (t:GraphNode {id: row.targetId})
MERGE (s)-[e:ROAD_SEGMENT {id: row.id}]->(t)
SET e.weight = row.weight,
	e.geometry = row.geometry
`
