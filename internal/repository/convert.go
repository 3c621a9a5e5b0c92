package repository

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// decodeGeometry accepts the stored JSON text ([[lon, lat], ...]) or an
// already decoded list of pairs. Empty or missing geometry yields nil and is
// replaced by a straight line when the graph is loaded.
func decodeGeometry(val any) (orb.LineString, error) {
	var raw []byte
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case []any:
		return geometryFromList(v)
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", val)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	ls := make(orb.LineString, 0, len(pairs))
	for i, p := range pairs {
		if len(p) < 2 {
			return nil, fmt.Errorf("geometry point %d has %d coordinates", i, len(p))
		}
		ls = append(ls, orb.Point{p[0], p[1]})
	}
	return ls, nil
}

func geometryFromList(list []any) (orb.LineString, error) {
	ls := make(orb.LineString, 0, len(list))
	for i, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			return nil, fmt.Errorf("geometry point %d is not a coordinate pair", i)
		}
		ls = append(ls, orb.Point{toFloat64(pair[0]), toFloat64(pair[1])})
	}
	return ls, nil
}

func encodeGeometry(ls orb.LineString) (string, error) {
	pairs := make([][2]float64, 0, len(ls))
	for _, p := range ls {
		pairs = append(pairs, [2]float64{p.Lon(), p.Lat()})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}
	return string(data), nil
}
