package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/eduroute/backend/internal/config"
	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/graph"
	"github.com/vanshika/eduroute/backend/internal/logging"
	"github.com/vanshika/eduroute/backend/internal/repository"
	"github.com/vanshika/eduroute/backend/internal/service"
)

var errNoInput = errors.New("one of -file or -sqlite is required")

func main() {
	var (
		geojsonPath = flag.String("file", "", "GeoJSON road network to ingest")
		sqlitePath  = flag.String("sqlite", "", "SQLite road network to ingest (instead of -file)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
		batchSize   = flag.Int("batch-size", 500, "Records per write transaction")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	data, err := readNetwork(ctx, *geojsonPath, *sqlitePath)
	if err != nil {
		logger.Error("failed to read road network", "error", err)
		os.Exit(1)
	}
	if len(data.Nodes) == 0 {
		logger.Error("road network is empty")
		os.Exit(1)
	}

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	ingestor := service.NewBulkIngestor(repository.New(graphClient), *workers, *batchSize)

	start := time.Now()
	logger.Info("ingesting road network", "nodes", len(data.Nodes), "edges", len(data.Edges), "workers", *workers)
	if err := ingestor.Ingest(ctx, data); err != nil {
		logger.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "nodes", len(data.Nodes), "edges", len(data.Edges))
}

func readNetwork(ctx context.Context, geojsonPath, sqlitePath string) (domain.GraphData, error) {
	switch {
	case geojsonPath != "":
		return repository.NewGeoJSONFile(geojsonPath).LoadGraph(ctx)
	case sqlitePath != "":
		if _, err := os.Stat(sqlitePath); err != nil {
			return domain.GraphData{}, fmt.Errorf("stat %s: %w", sqlitePath, err)
		}
		store, err := repository.OpenSQLite(sqlitePath)
		if err != nil {
			return domain.GraphData{}, err
		}
		defer store.Close()
		return store.LoadGraph(ctx)
	default:
		return domain.GraphData{}, errNoInput
	}
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
