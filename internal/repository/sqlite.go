package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanshika/eduroute/backend/internal/domain"
)

const sqliteDriver = "sqlite"

// SQLiteStore keeps the road network in the graph_nodes/graph_edges tables
// used by the relational deployment.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("sqlite path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("sqlite path %q is a directory, expected file", cleanPath)
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite graph %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite graph %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &SQLiteStore{path: cleanPath, db: db}, nil
}

// Name identifies the source in logs.
func (s *SQLiteStore) Name() string { return "sqlite:" + s.path }

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadGraph reads all nodes and edges.
func (s *SQLiteStore) LoadGraph(ctx context.Context) (domain.GraphData, error) {
	var data domain.GraphData

	rows, err := s.db.QueryContext(ctx, `SELECT id, latitude, longitude, COALESCE(label, '') FROM graph_nodes ORDER BY id`)
	if err != nil {
		return domain.GraphData{}, fmt.Errorf("query graph_nodes: %w", err)
	}
	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.ID, &n.Latitude, &n.Longitude, &n.Label); err != nil {
			rows.Close()
			return domain.GraphData{}, fmt.Errorf("scan graph_nodes: %w", err)
		}
		data.Nodes = append(data.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return domain.GraphData{}, fmt.Errorf("iterate graph_nodes: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT id, source_id, target_id, weight, COALESCE(geometry, '') FROM graph_edges ORDER BY id`)
	if err != nil {
		return domain.GraphData{}, fmt.Errorf("query graph_edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e        domain.Edge
			geometry string
		)
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Weight, &geometry); err != nil {
			return domain.GraphData{}, fmt.Errorf("scan graph_edges: %w", err)
		}
		e.Geometry, err = decodeGeometry(geometry)
		if err != nil {
			return domain.GraphData{}, fmt.Errorf("edge %d: %w", e.ID, err)
		}
		data.Edges = append(data.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return domain.GraphData{}, fmt.Errorf("iterate graph_edges: %w", err)
	}
	return data, nil
}

// ReplaceGraph overwrites both tables with data in a single transaction.
func (s *SQLiteStore) ReplaceGraph(ctx context.Context, data domain.GraphData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges`); err != nil {
		return fmt.Errorf("clear graph_edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_nodes`); err != nil {
		return fmt.Errorf("clear graph_nodes: %w", err)
	}

	for _, n := range data.Nodes {
		var label any
		if n.Label != "" {
			label = n.Label
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO graph_nodes (id, latitude, longitude, label) VALUES (?, ?, ?, ?)`,
			int64(n.ID), n.Latitude, n.Longitude, label,
		); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}
	for i, e := range data.Edges {
		geometry, err := encodeGeometry(e.Geometry)
		if err != nil {
			return fmt.Errorf("edge %d: %w", e.ID, err)
		}
		id := e.ID
		if id == 0 {
			id = int64(i + 1)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO graph_edges (id, source_id, target_id, weight, geometry) VALUES (?, ?, ?, ?, ?)`,
			id, int64(e.SourceID), int64(e.TargetID), e.Weight, geometry,
		); err != nil {
			return fmt.Errorf("insert edge %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
  id INTEGER PRIMARY KEY,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  label TEXT
);
CREATE TABLE IF NOT EXISTS graph_edges (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  target_id INTEGER NOT NULL,
  weight REAL NOT NULL,
  geometry TEXT
);
CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges(source_id);
CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target_id);
`
