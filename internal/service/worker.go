package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is/As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// NetworkWriter persists road network records.
type NetworkWriter interface {
	EnsureSchema(ctx context.Context) error
	UpsertNodes(ctx context.Context, nodes []domain.Node) error
	UpsertEdges(ctx context.Context, edges []domain.Edge) error
}

// BulkIngestor writes a road network to the graph database in batches using
// a worker pool. All nodes are written before any edge so edge upserts always
// find both endpoints.
type BulkIngestor struct {
	writer    NetworkWriter
	workers   int
	batchSize int
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(writer NetworkWriter, workers, batchSize int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &BulkIngestor{
		writer:    writer,
		workers:   workers,
		batchSize: batchSize,
	}
}

// Ingest validates the network the way the router will load it, then writes
// it. Invalid networks are rejected before anything is written.
func (bi *BulkIngestor) Ingest(ctx context.Context, data domain.GraphData) error {
	if err := routing.NewGraph().Load(data.Nodes, data.Edges); err != nil {
		return fmt.Errorf("validate network: %w", err)
	}
	if err := bi.writer.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := bi.IngestNodes(ctx, data.Nodes); err != nil {
		return fmt.Errorf("ingest nodes: %w", err)
	}
	if err := bi.IngestEdges(ctx, data.Edges); err != nil {
		return fmt.Errorf("ingest edges: %w", err)
	}
	return nil
}

// IngestNodes writes nodes concurrently in batches.
func (bi *BulkIngestor) IngestNodes(ctx context.Context, nodes []domain.Node) error {
	return bi.run(ctx, batches(len(nodes), bi.batchSize), func(lo, hi int) error {
		return bi.writer.UpsertNodes(ctx, nodes[lo:hi])
	})
}

// IngestEdges writes edges concurrently in batches.
func (bi *BulkIngestor) IngestEdges(ctx context.Context, edges []domain.Edge) error {
	return bi.run(ctx, batches(len(edges), bi.batchSize), func(lo, hi int) error {
		return bi.writer.UpsertEdges(ctx, edges[lo:hi])
	})
}

func batches(total, size int) [][2]int {
	var out [][2]int
	for lo := 0; lo < total; lo += size {
		hi := lo + size
		if hi > total {
			hi = total
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

func (bi *BulkIngestor) run(ctx context.Context, ranges [][2]int, workerFn func(lo, hi int) error) error {
	if len(ranges) == 0 {
		return nil
	}
	rangeCh := make(chan [2]int)
	errCh := make(chan error, len(ranges))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for r := range rangeCh {
			if err := workerFn(r[0], r[1]); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for _, r := range ranges {
		select {
		case rangeCh <- r:
		case <-ctx.Done():
			break Loop
		}
	}
	close(rangeCh)
	wg.Wait()
	close(errCh)

	if err := ctx.Err(); err != nil {
		return err
	}

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
