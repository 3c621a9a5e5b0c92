package generator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/repository"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = 6, 5
	cfg.Seed = 7
	return cfg
}

func TestGenerate_Shape(t *testing.T) {
	cfg := smallConfig()
	cfg.DropChance = 0
	data, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	wantNodes := cfg.Rows*cfg.Cols + cfg.Islands*3 + cfg.IsolatedNodes
	assert.Len(t, data.Nodes, wantNodes)

	maxStreets := cfg.Rows*(cfg.Cols-1) + cfg.Cols*(cfg.Rows-1) + cfg.Islands*2
	assert.Len(t, data.Edges, maxStreets)

	g := routing.NewGraph()
	require.NoError(t, g.Load(data.Nodes, data.Edges))
	assert.Equal(t, wantNodes-cfg.IsolatedNodes, g.ConnectedCount())

	for _, e := range data.Edges {
		assert.GreaterOrEqual(t, e.Weight+1e-9, routing.LineLength(e.Geometry))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := New(smallConfig()).Generate(context.Background())
	require.NoError(t, err)
	b, err := New(smallConfig()).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_IslandsAreUnreachable(t *testing.T) {
	cfg := smallConfig()
	cfg.DropChance = 0
	data, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	g := routing.NewGraph()
	require.NoError(t, g.Load(data.Nodes, data.Edges))

	gridCorner := domain.NodeID(1)
	islandNode := domain.NodeID(cfg.Rows*cfg.Cols + 1)
	res, err := g.Search(gridCorner, islandNode)
	require.NoError(t, err)
	assert.False(t, res.Found)

	far := domain.NodeID(cfg.Rows * cfg.Cols)
	res, err = g.Search(gridCorner, far)
	require.NoError(t, err)
	assert.True(t, res.Found)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(smallConfig()).Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteNetwork(t *testing.T) {
	data, err := New(smallConfig()).Generate(context.Background())
	require.NoError(t, err)
	dir := t.TempDir()

	geoPath := filepath.Join(dir, "out", "network.geojson")
	require.NoError(t, WriteNetwork(context.Background(), data, geoPath, ""))
	fromFile, err := repository.NewGeoJSONFile(geoPath).LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Len(t, fromFile.Nodes, len(data.Nodes))
	assert.Len(t, fromFile.Edges, len(data.Edges))

	dbPath := filepath.Join(dir, "network.db")
	require.NoError(t, WriteNetwork(context.Background(), data, dbPath, ""))
	store, err := repository.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer store.Close()
	fromDB, err := store.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, data.Nodes, fromDB.Nodes)
	assert.Len(t, fromDB.Edges, len(data.Edges))

	assert.Error(t, WriteNetwork(context.Background(), data, geoPath, "shapefile"))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatSQLite, FormatForPath("graph.DB"))
	assert.Equal(t, FormatSQLite, FormatForPath("/tmp/x.sqlite"))
	assert.Equal(t, FormatGeoJSON, FormatForPath("graph.geojson"))
	assert.Equal(t, FormatGeoJSON, FormatForPath("graph.json"))
}
