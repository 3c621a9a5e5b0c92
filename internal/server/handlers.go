package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/routing"
	"github.com/vanshika/eduroute/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the routing API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.RouteService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.RouteService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleFindPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload findPathRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	query, err := payload.toQuery()
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.FindRoute(r.Context(), query)
	if err != nil {
		status := routeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("route query failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		}
		writeFailure(w, status, routeErrorMessage(status, err))
		return
	}

	if !result.Found {
		respondJSON(w, http.StatusOK, noRouteResponse{
			Message:     result.Message,
			StartNodeID: int64(result.StartNodeID),
			EndNodeID:   int64(result.EndNodeID),
		})
		return
	}

	path := make([][2]float64, 0, len(result.Path))
	for _, p := range result.Path {
		path = append(path, [2]float64(p))
	}
	nodes := make([]int64, 0, len(result.Nodes))
	for _, id := range result.Nodes {
		nodes = append(nodes, int64(id))
	}

	respondJSON(w, http.StatusOK, findPathResponse{
		Success:         true,
		Path:            path,
		Nodes:           nodes,
		DistanceMeters:  result.DistanceMeters,
		DurationMinutes: result.DurationMinutes,
		StartNodeID:     int64(result.StartNodeID),
		EndNodeID:       int64(result.EndNodeID),
		StartSnapMeters: result.StartSnapMeters,
		EndSnapMeters:   result.EndSnapMeters,
		ExpandedNodes:   result.Expanded,
	})
}

func (h *APIHandlers) handleNearest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	lat, err := parseCoordinate(query.Get("lat"), "lat", 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, err := parseCoordinate(query.Get("lon"), "lon", 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, dist, err := h.service.Nearest(lat, lon)
	if err != nil {
		writeError(w, routeErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, nearestResponse{
		NodeID:         int64(node.ID),
		Latitude:       node.Latitude,
		Longitude:      node.Longitude,
		Label:          node.Label,
		DistanceMeters: dist,
	})
}

func (h *APIHandlers) handleGraphNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	g, err := h.service.Graph()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	nodes := g.Nodes()
	resp := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		resp = append(resp, toNodeResponse(n))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleGraphEdges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	g, err := h.service.Graph()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	edges := g.Edges()
	resp := make([]edgeResponse, 0, len(edges))
	for _, e := range edges {
		geometry := make([][2]float64, 0, len(e.Geometry))
		for _, p := range e.Geometry {
			geometry = append(geometry, [2]float64(p))
		}
		resp = append(resp, edgeResponse{
			ID:       e.ID,
			SourceID: int64(e.SourceID),
			TargetID: int64(e.TargetID),
			Weight:   e.Weight,
			Geometry: geometry,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	stats, err := h.service.Stats()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toStatsResponse(stats))
}

func (h *APIHandlers) handleGraphReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	stats, err := h.service.Reload(r.Context())
	if err != nil {
		h.logger.Error("graph reload failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		var loadErr *routing.LoadError
		if errors.As(err, &loadErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "failed to reload road network")
		return
	}
	respondJSON(w, http.StatusOK, toStatsResponse(stats))
}

// statusClientClosedRequest is reported when the caller went away before the
// route was computed; nginx uses the same non-standard code.
const statusClientClosedRequest = 499

// routeErrorStatus maps service and engine errors to HTTP status codes.
func routeErrorStatus(err error) int {
	var invalid *routing.InvalidNodeError
	switch {
	case errors.Is(err, routing.ErrMissingEndpoint), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrGraphNotLoaded), errors.Is(err, routing.ErrNoConnectedNode):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func routeErrorMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusGatewayTimeout:
		return "route query timed out"
	case statusClientClosedRequest:
		return "request cancelled"
	default:
		return err.Error()
	}
}

// --- Request & Response DTOs ---

type findPathRequest struct {
	StartLat    *float64 `json:"startLat"`
	StartLon    *float64 `json:"startLon"`
	StartNodeID *int64   `json:"startNodeId"`
	EndLat      *float64 `json:"endLat"`
	EndLon      *float64 `json:"endLon"`
	EndNodeID   *int64   `json:"endNodeId"`
}

func (req findPathRequest) toQuery() (routing.Query, error) {
	start, err := toEndpoint("start", req.StartLat, req.StartLon, req.StartNodeID)
	if err != nil {
		return routing.Query{}, err
	}
	end, err := toEndpoint("end", req.EndLat, req.EndLon, req.EndNodeID)
	if err != nil {
		return routing.Query{}, err
	}
	return routing.Query{Start: start, End: end}, nil
}

func toEndpoint(side string, lat, lon *float64, nodeID *int64) (routing.Endpoint, error) {
	if nodeID != nil {
		id := domain.NodeID(*nodeID)
		return routing.Endpoint{NodeID: &id}, nil
	}
	if lat == nil || lon == nil {
		return routing.Endpoint{}, fmt.Errorf("missing %s location (lat/lon or node id)", side)
	}
	if math.Abs(*lat) > 90 || math.Abs(*lon) > 180 {
		return routing.Endpoint{}, fmt.Errorf("%s location out of range", side)
	}
	return routing.Endpoint{Lat: lat, Lon: lon}, nil
}

// findPathResponse always carries distance, duration and both node ids, even
// when they are zero (start == end, zero-weight roads, node id 0).
type findPathResponse struct {
	Success         bool         `json:"success"`
	Path            [][2]float64 `json:"path"`
	Nodes           []int64      `json:"nodes"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationMinutes float64      `json:"duration_minutes"`
	StartNodeID     int64        `json:"start_node_id"`
	EndNodeID       int64        `json:"end_node_id"`
	StartSnapMeters float64      `json:"start_snap_meters"`
	EndSnapMeters   float64      `json:"end_snap_meters"`
	ExpandedNodes   int          `json:"expanded_nodes"`
}

type noRouteResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	StartNodeID int64  `json:"start_node_id"`
	EndNodeID   int64  `json:"end_node_id"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type nearestResponse struct {
	NodeID         int64   `json:"node_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Label          string  `json:"label,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
}

type nodeResponse struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

func toNodeResponse(n domain.Node) nodeResponse {
	return nodeResponse{
		ID:        int64(n.ID),
		Latitude:  n.Latitude,
		Longitude: n.Longitude,
		Label:     n.Label,
	}
}

type edgeResponse struct {
	ID       int64        `json:"id"`
	SourceID int64        `json:"sourceId"`
	TargetID int64        `json:"targetId"`
	Weight   float64      `json:"weight"`
	Geometry [][2]float64 `json:"geometry"`
}

type statsResponse struct {
	Source         string `json:"source"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	ConnectedNodes int    `json:"connected_nodes"`
	LoadedAt       string `json:"loaded_at"`
}

func toStatsResponse(s service.Stats) statsResponse {
	return statsResponse{
		Source:         s.Source,
		Nodes:          s.Nodes,
		Edges:          s.Edges,
		ConnectedNodes: s.ConnectedNodes,
		LoadedAt:       formatTime(s.LoadedAt),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseCoordinate(value, name string, limit float64) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > limit {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, failureResponse{Success: false, Message: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
