package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vanshika/eduroute/backend/internal/config"
	"github.com/vanshika/eduroute/backend/internal/graph"
	"github.com/vanshika/eduroute/backend/internal/logging"
	"github.com/vanshika/eduroute/backend/internal/repository"
	"github.com/vanshika/eduroute/backend/internal/server"
	"github.com/vanshika/eduroute/backend/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	source, graphClient, closer, err := buildGraphSource(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open graph source", "error", err, "kind", cfg.Source.Kind)
		os.Exit(1)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("closing graph source failed", "error", err)
		}
	}()

	routeService := service.NewRouteService(logger, source, service.Options{
		SpeedMetersPerMinute: cfg.Routing.SpeedMetersPerMinute,
		QueryTimeout:         cfg.Routing.QueryTimeout,
		MaxSnapMeters:        cfg.Routing.MaxSnapMeters,
	})
	// the server still starts without a graph; readiness reports degraded
	// until a reload succeeds
	if _, err := routeService.Reload(ctx); err != nil {
		logger.Error("initial graph load failed", "error", err)
	}

	var watcher *service.Watcher
	if cfg.Source.Watch {
		if path := watchedPath(cfg.Source); path != "" {
			watcher = service.NewWatcher(logger, path, func(ctx context.Context) {
				if _, err := routeService.Reload(ctx); err != nil {
					logger.Error("graph reload after file change failed", "error", err)
				}
			})
			if err := watcher.Start(ctx); err != nil {
				logger.Error("failed to watch graph file", "error", err, "path", path)
				watcher = nil
			}
		} else {
			logger.Warn("graph watch requested for a source without a file", "kind", cfg.Source.Kind)
		}
	}

	health := server.HealthChecks{routeService}
	if graphClient != nil {
		health = append(health, server.GraphHealthService{Client: graphClient})
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, routeService),
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
		MetricsEnabled:   cfg.HTTP.MetricsEnabled,
		RateLimit:        cfg.HTTP.RateLimit,
		RateBurst:        cfg.HTTP.RateBurst,
	})

	srv := server.New(logger, cfg.HTTP, cfg.Routing.QueryTimeout, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if watcher != nil {
		watcher.Wait()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildGraphSource opens the configured road network source. The graph
// client is returned separately so its connectivity can join health checks.
func buildGraphSource(ctx context.Context, logger *slog.Logger, cfg config.Config) (service.GraphSource, graph.Client, io.Closer, error) {
	switch cfg.Source.Kind {
	case config.SourceSQLite:
		store, err := repository.OpenSQLite(cfg.Source.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using sqlite graph source", "path", cfg.Source.SQLitePath)
		return store, nil, store, nil
	case config.SourceGeoJSON:
		logger.Info("using geojson graph source", "path", cfg.Source.File)
		return repository.NewGeoJSONFile(cfg.Source.File), nil, closerFunc(func() error { return nil }), nil
	default:
		client, err := buildGraphClient(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
		return repository.New(client), client, closerFunc(func() error {
			return client.Close(context.Background())
		}), nil
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}

func watchedPath(src config.SourceConfig) string {
	switch src.Kind {
	case config.SourceGeoJSON:
		return src.File
	case config.SourceSQLite:
		return src.SQLitePath
	default:
		return ""
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
