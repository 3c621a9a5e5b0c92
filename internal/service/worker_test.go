package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

type recordingWriter struct {
	mu         sync.Mutex
	schema     int
	nodes      []domain.Node
	edges      []domain.Edge
	nodeBatch  []int
	edgeBatch  []int
	failEdges  error
	nodesFirst bool
}

func (w *recordingWriter) EnsureSchema(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.schema++
	return nil
}

func (w *recordingWriter) UpsertNodes(_ context.Context, nodes []domain.Node) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes = append(w.nodes, nodes...)
	w.nodeBatch = append(w.nodeBatch, len(nodes))
	return nil
}

func (w *recordingWriter) UpsertEdges(_ context.Context, edges []domain.Edge) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.edges) == 0 {
		w.nodesFirst = len(w.nodes) > 0
	}
	if w.failEdges != nil {
		return w.failEdges
	}
	w.edges = append(w.edges, edges...)
	w.edgeBatch = append(w.edgeBatch, len(edges))
	return nil
}

func TestBatches(t *testing.T) {
	assert.Nil(t, batches(0, 10))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 10))
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, batches(5, 2))
}

func TestBulkIngestor_Ingest(t *testing.T) {
	w := &recordingWriter{}
	data := lineNetwork()

	err := NewBulkIngestor(w, 3, 2).Ingest(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, w.schema)
	assert.ElementsMatch(t, data.Nodes, w.nodes)
	assert.ElementsMatch(t, data.Edges, w.edges)
	assert.ElementsMatch(t, []int{2, 2, 2}, w.nodeBatch)
	assert.ElementsMatch(t, []int{2, 1}, w.edgeBatch)
	assert.True(t, w.nodesFirst)
}

func TestBulkIngestor_RejectsInvalidNetwork(t *testing.T) {
	w := &recordingWriter{}
	data := lineNetwork()
	data.Edges = append(data.Edges, domain.Edge{SourceID: 2, TargetID: 2, Weight: 1})

	err := NewBulkIngestor(w, 0, 0).Ingest(context.Background(), data)
	var loadErr *routing.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Zero(t, w.schema)
	assert.Empty(t, w.nodes)
}

func TestBulkIngestor_CollectsBatchErrors(t *testing.T) {
	boom := errors.New("write conflict")
	w := &recordingWriter{failEdges: boom}

	err := NewBulkIngestor(w, 2, 1).Ingest(context.Background(), lineNetwork())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 3)
	assert.Contains(t, err.Error(), "multiple errors")
}

func TestBulkIngestor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewBulkIngestor(&recordingWriter{}, 1, 1).IngestNodes(ctx, lineNetwork().Nodes)
	assert.ErrorIs(t, err, context.Canceled)
}
