package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/eduroute/backend/internal/generator"
	"github.com/vanshika/eduroute/backend/internal/repository"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		rows        = flag.Int("rows", cfg.Rows, "grid rows of the main network")
		cols        = flag.Int("cols", cfg.Cols, "grid columns of the main network")
		spacing     = flag.Float64("spacing", cfg.SpacingMeters, "meters between neighbouring intersections")
		originLat   = flag.Float64("origin-lat", cfg.OriginLat, "latitude of the south-west corner")
		originLon   = flag.Float64("origin-lon", cfg.OriginLon, "longitude of the south-west corner")
		jitter      = flag.Float64("jitter", cfg.Jitter, "intersection offset as a fraction of spacing (0-0.5)")
		dropChance  = flag.Float64("drop-chance", cfg.DropChance, "probability of leaving a grid street out")
		bendChance  = flag.Float64("bend-chance", cfg.BendChance, "probability of a street having a kink")
		maxDetour   = flag.Float64("max-detour", cfg.MaxDetour, "max extra cost over street length, as a fraction")
		islands     = flag.Int("islands", cfg.Islands, "number of unreachable road clusters")
		isolated    = flag.Int("isolated", cfg.IsolatedNodes, "number of nodes without roads")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output      = flag.String("output", "data/network.geojson", "output path (.geojson, or .db/.sqlite for SQLite)")
		format      = flag.String("format", "", "output format: geojson or sqlite (default: from extension)")
		writeStdout = flag.Bool("stdout", false, "write GeoJSON to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		Rows:          *rows,
		Cols:          *cols,
		SpacingMeters: *spacing,
		OriginLat:     *originLat,
		OriginLon:     *originLon,
		Jitter:        *jitter,
		DropChance:    clampProbability(*dropChance),
		BendChance:    clampProbability(*bendChance),
		MaxDetour:     *maxDetour,
		Islands:       *islands,
		IsolatedNodes: *isolated,
		Seed:          *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	network, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		raw, err := repository.EncodeGeoJSON(network)
		if err == nil {
			_, err = os.Stdout.Write(raw)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to write network to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteNetwork(ctx, network, *output, *format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write network: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d nodes and %d edges into %s\n", len(network.Nodes), len(network.Edges), *output)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
