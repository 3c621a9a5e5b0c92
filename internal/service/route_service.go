package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/observability"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

// ErrGraphNotLoaded is returned while no road network has been published.
var ErrGraphNotLoaded = errors.New("road network not loaded")

// Negative result messages.
const (
	MessageRouteNotFound = "route not found"
	MessageStartTooFar   = "start location is too far from the road network"
	MessageEndTooFar     = "end location is too far from the road network"
)

// GraphSource supplies the raw road network.
type GraphSource interface {
	Name() string
	LoadGraph(ctx context.Context) (domain.GraphData, error)
}

// Options tunes the route service.
type Options struct {
	SpeedMetersPerMinute float64
	QueryTimeout         time.Duration
	MaxSnapMeters        float64
}

// RouteResult is a route plus the reason when no usable route exists.
type RouteResult struct {
	routing.Route
	Message string
}

// Stats describes the published network.
type Stats struct {
	Source         string
	Nodes          int
	Edges          int
	ConnectedNodes int
	LoadedAt       time.Time
}

type snapshot struct {
	graph    *routing.Graph
	loadedAt time.Time
}

// RouteService owns the published graph and answers route queries against
// it. Reloads build a fresh graph and swap it in atomically; queries already
// running keep the graph they started with.
type RouteService struct {
	logger   *slog.Logger
	source   GraphSource
	opts     Options
	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex
	nowFn    func() time.Time
	searchFn func(*routing.Graph, routing.Query, routing.Options) (routing.Route, error)
}

// NewRouteService constructs a RouteService. No graph is published until
// Reload succeeds.
func NewRouteService(logger *slog.Logger, source GraphSource, opts Options) *RouteService {
	if opts.SpeedMetersPerMinute <= 0 {
		opts.SpeedMetersPerMinute = routing.DefaultSpeedMetersPerMinute
	}
	return &RouteService{
		logger:   logger.With("component", "route_service"),
		source:   source,
		opts:     opts,
		nowFn:    time.Now,
		searchFn: (*routing.Graph).FindPath,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *RouteService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Reload loads the network from the source and publishes it. On failure the
// previously published graph stays in place.
func (s *RouteService) Reload(ctx context.Context) (Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	data, err := s.source.LoadGraph(ctx)
	if err != nil {
		observability.GraphReloadsTotal.WithLabelValues("error").Inc()
		return Stats{}, fmt.Errorf("load graph from %s: %w", s.source.Name(), err)
	}

	g := routing.NewGraph()
	if err := g.Load(data.Nodes, data.Edges); err != nil {
		observability.GraphReloadsTotal.WithLabelValues("invalid").Inc()
		return Stats{}, fmt.Errorf("build graph from %s: %w", s.source.Name(), err)
	}

	s.current.Store(&snapshot{graph: g, loadedAt: s.nowFn()})
	observability.GraphReloadsTotal.WithLabelValues("ok").Inc()
	observability.GraphLoadDuration.Observe(time.Since(start).Seconds())
	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))

	stats := s.statsOf(s.current.Load())
	s.logger.Info("graph loaded",
		"source", stats.Source,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"connected_nodes", stats.ConnectedNodes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// Graph returns the published graph.
func (s *RouteService) Graph() (*routing.Graph, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrGraphNotLoaded
	}
	return snap.graph, nil
}

// Stats reports the published network.
func (s *RouteService) Stats() (Stats, error) {
	snap := s.current.Load()
	if snap == nil {
		return Stats{}, ErrGraphNotLoaded
	}
	return s.statsOf(snap), nil
}

// Probe reports readiness: a graph must be published.
func (s *RouteService) Probe(context.Context) error {
	if s.current.Load() == nil {
		return ErrGraphNotLoaded
	}
	return nil
}

// Nearest snaps a coordinate to the closest connected node.
func (s *RouteService) Nearest(lat, lon float64) (domain.Node, float64, error) {
	g, err := s.Graph()
	if err != nil {
		return domain.Node{}, 0, err
	}
	id, dist, err := g.NearestNode(lat, lon)
	if err != nil {
		return domain.Node{}, 0, err
	}
	node, _ := g.Node(id)
	return node, dist, nil
}

// FindRoute answers a route query. A missing route is reported through
// RouteResult.Found and Message, not as an error. The search itself cannot be
// interrupted, so when ctx or the query timeout expires first the result is
// abandoned and the context error returned.
func (s *RouteService) FindRoute(ctx context.Context, q routing.Query) (RouteResult, error) {
	g, err := s.Graph()
	if err != nil {
		observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeNotLoaded).Inc()
		return RouteResult{}, err
	}

	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeTimeout).Inc()
		return RouteResult{}, fmt.Errorf("route query abandoned: %w", err)
	}

	type outcome struct {
		route routing.Route
		err   error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		route, err := s.searchFn(g, q, routing.Options{SpeedMetersPerMinute: s.opts.SpeedMetersPerMinute})
		done <- outcome{route: route, err: err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeTimeout).Inc()
		return RouteResult{}, fmt.Errorf("route query abandoned: %w", ctx.Err())
	case res = <-done:
	}
	observability.RouteSearchDuration.Observe(time.Since(start).Seconds())

	if res.err != nil {
		observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeInvalid).Inc()
		return RouteResult{}, res.err
	}
	route := res.route
	observability.RouteExpandedNodes.Observe(float64(route.Expanded))

	s.logger.Debug("endpoints snapped",
		"start_node", route.StartNodeID,
		"start_snap_m", route.StartSnapMeters,
		"end_node", route.EndNodeID,
		"end_snap_m", route.EndSnapMeters,
	)

	if limit := s.opts.MaxSnapMeters; limit > 0 {
		switch {
		case route.StartSnapMeters > limit:
			observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeTooFar).Inc()
			return RouteResult{Route: routing.Route{StartNodeID: route.StartNodeID, EndNodeID: route.EndNodeID}, Message: MessageStartTooFar}, nil
		case route.EndSnapMeters > limit:
			observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeTooFar).Inc()
			return RouteResult{Route: routing.Route{StartNodeID: route.StartNodeID, EndNodeID: route.EndNodeID}, Message: MessageEndTooFar}, nil
		}
	}

	if !route.Found {
		observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeNotFound).Inc()
		s.logger.Info("no route between nodes", "start_node", route.StartNodeID, "end_node", route.EndNodeID, "expanded", route.Expanded)
		return RouteResult{Route: route, Message: MessageRouteNotFound}, nil
	}

	observability.RouteQueriesTotal.WithLabelValues(observability.OutcomeFound).Inc()
	return RouteResult{Route: route}, nil
}

func (s *RouteService) statsOf(snap *snapshot) Stats {
	return Stats{
		Source:         s.source.Name(),
		Nodes:          snap.graph.NodeCount(),
		Edges:          snap.graph.EdgeCount(),
		ConnectedNodes: snap.graph.ConnectedCount(),
		LoadedAt:       snap.loadedAt,
	}
}
