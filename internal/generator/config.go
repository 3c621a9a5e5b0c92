package generator

// Config drives the synthetic road network generator.
type Config struct {
	Rows          int     // grid rows of the main network
	Cols          int     // grid columns of the main network
	SpacingMeters float64 // distance between neighbouring intersections
	OriginLat     float64 // south-west corner
	OriginLon     float64
	Jitter        float64 // max intersection offset as a fraction of spacing
	DropChance    float64 // chance a grid street is left out
	BendChance    float64 // chance a street gets a kink in its polyline
	MaxDetour     float64 // weight = length * (1 + U[0, MaxDetour))
	Islands       int     // small road clusters unreachable from the grid
	IsolatedNodes int     // nodes without any road
	Seed          int64
}

// DefaultConfig returns a small town-sized network around Bontang.
func DefaultConfig() Config {
	return Config{
		Rows:          20,
		Cols:          20,
		SpacingMeters: 150,
		OriginLat:     0.12,
		OriginLon:     117.47,
		Jitter:        0.15,
		DropChance:    0.08,
		BendChance:    0.3,
		MaxDetour:     0.2,
		Islands:       2,
		IsolatedNodes: 5,
		Seed:          42,
	}
}
