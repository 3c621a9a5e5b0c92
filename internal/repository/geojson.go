package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/routing"
)

// GeoJSONFile loads the road network from a FeatureCollection on disk.
//
// Point features are nodes and need a numeric "id" (feature id or property)
// plus an optional "label". LineString features are edges and need "source"
// and "target" properties; "weight" defaults to the haversine length of the
// line when absent.
type GeoJSONFile struct {
	Path string
}

// NewGeoJSONFile returns a source reading path on every load.
func NewGeoJSONFile(path string) *GeoJSONFile {
	return &GeoJSONFile{Path: path}
}

// Name identifies the source in logs.
func (f *GeoJSONFile) Name() string { return "geojson:" + f.Path }

// LoadGraph reads and decodes the file.
func (f *GeoJSONFile) LoadGraph(ctx context.Context) (domain.GraphData, error) {
	if err := ctx.Err(); err != nil {
		return domain.GraphData{}, err
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return domain.GraphData{}, fmt.Errorf("read %s: %w", f.Path, err)
	}
	data, err := DecodeGeoJSON(raw)
	if err != nil {
		return domain.GraphData{}, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return data, nil
}

// DecodeGeoJSON converts a FeatureCollection into graph records.
func DecodeGeoJSON(raw []byte) (domain.GraphData, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return domain.GraphData{}, err
	}

	var data domain.GraphData
	for i, feature := range fc.Features {
		switch geom := feature.Geometry.(type) {
		case orb.Point:
			id, ok := featureID(feature)
			if !ok {
				return domain.GraphData{}, fmt.Errorf("feature %d: point without numeric id", i)
			}
			data.Nodes = append(data.Nodes, domain.Node{
				ID:        domain.NodeID(id),
				Latitude:  geom.Lat(),
				Longitude: geom.Lon(),
				Label:     feature.Properties.MustString("label", ""),
			})
		case orb.LineString:
			source, okSource := numberProperty(feature.Properties, "source")
			target, okTarget := numberProperty(feature.Properties, "target")
			if !okSource || !okTarget {
				return domain.GraphData{}, fmt.Errorf("feature %d: line without source/target", i)
			}
			weight, ok := numberProperty(feature.Properties, "weight")
			if !ok {
				weight = routing.LineLength(geom)
			}
			id, _ := featureID(feature)
			data.Edges = append(data.Edges, domain.Edge{
				ID:       int64(id),
				SourceID: domain.NodeID(source),
				TargetID: domain.NodeID(target),
				Weight:   weight,
				Geometry: geom,
			})
		default:
			// polygons and other decorations are not part of the network
		}
	}
	return data, nil
}

// EncodeGeoJSON renders graph records as a FeatureCollection.
func EncodeGeoJSON(data domain.GraphData) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, n := range data.Nodes {
		f := geojson.NewFeature(n.Point())
		f.Properties["id"] = int64(n.ID)
		if n.Label != "" {
			f.Properties["label"] = n.Label
		}
		fc.Append(f)
	}
	for _, e := range data.Edges {
		f := geojson.NewFeature(e.Geometry)
		if e.ID != 0 {
			f.Properties["id"] = e.ID
		}
		f.Properties["source"] = int64(e.SourceID)
		f.Properties["target"] = int64(e.TargetID)
		f.Properties["weight"] = e.Weight
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

func featureID(f *geojson.Feature) (float64, bool) {
	if v, ok := numberProperty(f.Properties, "id"); ok {
		return v, true
	}
	switch v := f.ID.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func numberProperty(props geojson.Properties, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
