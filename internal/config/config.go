package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig    `toml:"http"`
	Graph   GraphConfig   `toml:"graph"`
	Source  SourceConfig  `toml:"source"`
	Routing RoutingConfig `toml:"routing"`
	Logging LoggingConfig `toml:"logging"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string        `toml:"host"`
	Port              int           `toml:"port"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	IdleTimeout       time.Duration `toml:"idle_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	MetricsEnabled    bool          `toml:"metrics_enabled"`
	AllowedOriginsCSV string        `toml:"allowed_origins"`
	RateLimit         float64       `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst         int           `toml:"rate_burst"`
}

// GraphConfig describes connectivity to the Neo4j graph database.
type GraphConfig struct {
	URI            string `toml:"uri"`
	Database       string `toml:"database"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	MaxConnections int    `toml:"max_connections"`
}

// Graph source kinds.
const (
	SourceNeo4j   = "neo4j"
	SourceSQLite  = "sqlite"
	SourceGeoJSON = "geojson"
)

// SourceConfig selects where the road network is loaded from.
type SourceConfig struct {
	Kind       string `toml:"kind"`
	File       string `toml:"file"`
	SQLitePath string `toml:"sqlite_path"`
	Watch      bool   `toml:"watch"`
}

// RoutingConfig tunes route computation.
type RoutingConfig struct {
	SpeedMetersPerMinute float64       `toml:"speed_meters_per_minute"`
	QueryTimeout         time.Duration `toml:"query_timeout"`
	MaxSnapMeters        float64       `toml:"max_snap_meters"` // 0 means unlimited
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `toml:"level"`
	Format        string `toml:"format"` // text|json
	IncludeCaller bool   `toml:"include_caller"`
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 5000
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultRateBurst        = 20
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultSourceKind       = SourceNeo4j
	defaultSpeed            = 500.0
	defaultQueryTimeout     = 5 * time.Second
)

// Defaults returns the configuration used when neither a file nor the
// environment override a value.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			RateBurst:       defaultRateBurst,
		},
		Graph: GraphConfig{
			MaxConnections: defaultGraphMaxSessions,
		},
		Source: SourceConfig{
			Kind: defaultSourceKind,
		},
		Routing: RoutingConfig{
			SpeedMetersPerMinute: defaultSpeed,
			QueryTimeout:         defaultQueryTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named by
// CONFIG_FILE, and finally environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTP.Host = valueOrDefault("SERVER_HOST", cfg.HTTP.Host)
	cfg.Logging = LoggingConfig{
		Level:         valueOrDefault("LOG_LEVEL", cfg.Logging.Level),
		Format:        valueOrDefault("LOG_FORMAT", cfg.Logging.Format),
		IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", cfg.Logging.IncludeCaller),
	}
	cfg.Graph = GraphConfig{
		URI:            valueOrDefault("GRAPH_URI", cfg.Graph.URI),
		Database:       valueOrDefault("GRAPH_DATABASE", cfg.Graph.Database),
		Username:       valueOrDefault("GRAPH_USERNAME", cfg.Graph.Username),
		Password:       valueOrDefault("GRAPH_PASSWORD", cfg.Graph.Password),
		MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", cfg.Graph.MaxConnections),
	}
	cfg.Source = SourceConfig{
		Kind:       strings.ToLower(valueOrDefault("GRAPH_SOURCE", cfg.Source.Kind)),
		File:       valueOrDefault("GRAPH_FILE", cfg.Source.File),
		SQLitePath: valueOrDefault("GRAPH_SQLITE_PATH", cfg.Source.SQLitePath),
		Watch:      parseBoolWithDefault("GRAPH_WATCH", cfg.Source.Watch),
	}

	port, err := parsePort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"ROUTING_QUERY_TIMEOUT", &cfg.Routing.QueryTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.target = parsed
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", cfg.HTTP.MetricsEnabled)
	cfg.HTTP.AllowedOriginsCSV = valueOrDefault("SERVER_ALLOWED_ORIGINS", cfg.HTTP.AllowedOriginsCSV)
	cfg.HTTP.RateBurst = parseIntWithDefault("SERVER_RATE_BURST", cfg.HTTP.RateBurst)

	floats := []struct {
		key    string
		target *float64
	}{
		{"SERVER_RATE_LIMIT", &cfg.HTTP.RateLimit},
		{"ROUTING_SPEED_MPM", &cfg.Routing.SpeedMetersPerMinute},
		{"ROUTING_MAX_SNAP_METERS", &cfg.Routing.MaxSnapMeters},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s value %q: %w", f.key, v, err)
			}
			*f.target = parsed
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceNeo4j:
	case SourceSQLite:
		if c.Source.SQLitePath == "" {
			return fmt.Errorf("GRAPH_SQLITE_PATH is required for the %s source", SourceSQLite)
		}
	case SourceGeoJSON:
		if c.Source.File == "" {
			return fmt.Errorf("GRAPH_FILE is required for the %s source", SourceGeoJSON)
		}
	default:
		return fmt.Errorf("unknown graph source %q", c.Source.Kind)
	}
	if c.Routing.SpeedMetersPerMinute <= 0 {
		return fmt.Errorf("routing speed must be positive, got %v", c.Routing.SpeedMetersPerMinute)
	}
	if c.Routing.MaxSnapMeters < 0 {
		return fmt.Errorf("max snap distance must not be negative, got %v", c.Routing.MaxSnapMeters)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	// keys absent from the file keep their current value
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
