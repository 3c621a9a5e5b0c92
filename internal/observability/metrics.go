package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route query outcomes used as the "outcome" label.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeTooFar    = "too_far"
	OutcomeInvalid   = "invalid"
	OutcomeTimeout   = "timeout"
	OutcomeNotLoaded = "not_loaded"
)

var (
	RouteQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eduroute_route_queries_total",
		Help: "Total number of route queries by outcome.",
	}, []string{"outcome"})

	RouteSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eduroute_route_search_seconds",
		Help:    "Time spent resolving, searching and reconstructing a route.",
		Buckets: prometheus.DefBuckets,
	})

	RouteExpandedNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eduroute_route_expanded_nodes",
		Help:    "Number of nodes expanded by A* per query.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eduroute_graph_nodes_total",
		Help: "Number of nodes in the published road network.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eduroute_graph_edges_total",
		Help: "Number of edges in the published road network.",
	})

	GraphReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eduroute_graph_reloads_total",
		Help: "Total number of graph reload attempts by result.",
	}, []string{"result"})

	GraphLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eduroute_graph_load_seconds",
		Help:    "Time spent loading the road network from its source.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eduroute_watcher_events_total",
		Help: "Total number of graph file events that triggered a reload.",
	})
)
