// Command routectl answers routing queries against a road network file
// without running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/logging"
	"github.com/vanshika/eduroute/backend/internal/repository"
	"github.com/vanshika/eduroute/backend/internal/routing"
	"github.com/vanshika/eduroute/backend/internal/service"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	geojsonPath string
	sqlitePath  string
	speed       float64
	maxSnap     float64
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "routectl",
		Short:        "Query a road network file offline",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&opts.geojsonPath, "file", "", "GeoJSON road network")
	rootCmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite road network (instead of --file)")
	rootCmd.PersistentFlags().Float64Var(&opts.speed, "speed", routing.DefaultSpeedMetersPerMinute, "travel speed in meters per minute")
	rootCmd.PersistentFlags().Float64Var(&opts.maxSnap, "max-snap", 0, "max snapping distance in meters (0 = unlimited)")

	rootCmd.AddCommand(newRouteCmd(opts), newNearestCmd(opts), newStatsCmd(opts))
	return rootCmd
}

func newRouteCmd(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find the shortest route between two endpoints",
		Long: `Endpoints are either a node id ("42") or a coordinate pair ("lat,lon").

  routectl --file network.geojson route --from 0.13,117.48 --to 17`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseEndpoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseEndpoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			svc, err := opts.loadService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.FindRoute(cmd.Context(), routing.Query{Start: start, End: end})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), routeOutput{
				Found:           res.Found,
				Message:         res.Message,
				StartNodeID:     int64(res.StartNodeID),
				EndNodeID:       int64(res.EndNodeID),
				DistanceMeters:  res.DistanceMeters,
				DurationMinutes: res.DurationMinutes,
				Nodes:           res.Nodes,
				Path:            res.Path,
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start node id or lat,lon")
	cmd.Flags().StringVar(&to, "to", "", "end node id or lat,lon")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newNearestCmd(opts *options) *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "Snap a coordinate to the nearest connected node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.loadService(cmd.Context())
			if err != nil {
				return err
			}
			node, dist, err := svc.Nearest(lat, lon)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"node_id":         int64(node.ID),
				"latitude":        node.Latitude,
				"longitude":       node.Longitude,
				"distance_meters": dist,
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Validate the network and print its size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.loadService(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.Stats()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"source":          stats.Source,
				"nodes":           stats.Nodes,
				"edges":           stats.Edges,
				"connected_nodes": stats.ConnectedNodes,
			})
		},
	}
}

type routeOutput struct {
	Found           bool            `json:"found"`
	Message         string          `json:"message,omitempty"`
	StartNodeID     int64           `json:"start_node_id"`
	EndNodeID       int64           `json:"end_node_id"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationMinutes float64         `json:"duration_minutes"`
	Nodes           []domain.NodeID `json:"nodes,omitempty"`
	Path            []domain.LatLon `json:"path,omitempty"`
}

func (o *options) loadService(ctx context.Context) (*service.RouteService, error) {
	var source service.GraphSource
	switch {
	case o.geojsonPath != "":
		source = repository.NewGeoJSONFile(o.geojsonPath)
	case o.sqlitePath != "":
		if _, err := os.Stat(o.sqlitePath); err != nil {
			return nil, err
		}
		store, err := repository.OpenSQLite(o.sqlitePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		source = store
	default:
		return nil, errors.New("one of --file or --sqlite is required")
	}

	svc := service.NewRouteService(logging.Discard(), source, service.Options{
		SpeedMetersPerMinute: o.speed,
		MaxSnapMeters:        o.maxSnap,
	})
	if _, err := svc.Reload(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func parseEndpoint(value string) (routing.Endpoint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return routing.Endpoint{}, routing.ErrMissingEndpoint
	}
	lat, lon, isPair := strings.Cut(value, ",")
	if !isPair {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return routing.Endpoint{}, fmt.Errorf("invalid node id %q", value)
		}
		nodeID := domain.NodeID(id)
		return routing.Endpoint{NodeID: &nodeID}, nil
	}
	latV, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return routing.Endpoint{}, fmt.Errorf("invalid latitude %q", lat)
	}
	lonV, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return routing.Endpoint{}, fmt.Errorf("invalid longitude %q", lon)
	}
	return routing.Endpoint{Lat: &latV, Lon: &lonV}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
