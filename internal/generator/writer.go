package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanshika/eduroute/backend/internal/domain"
	"github.com/vanshika/eduroute/backend/internal/repository"
)

// Output formats.
const (
	FormatGeoJSON = "geojson"
	FormatSQLite  = "sqlite"
)

// FormatForPath picks the output format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatGeoJSON
	}
}

// WriteNetwork stores the network at path in the given format, creating
// parent directories as needed. An empty format is derived from the path.
func WriteNetwork(ctx context.Context, data domain.GraphData, path, format string) error {
	if format == "" {
		format = FormatForPath(path)
	}
	switch format {
	case FormatGeoJSON:
		return writeGeoJSON(data, path)
	case FormatSQLite:
		return writeSQLite(ctx, data, path)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeGeoJSON(data domain.GraphData, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	raw, err := repository.EncodeGeoJSON(data)
	if err != nil {
		return fmt.Errorf("encode geojson for %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeSQLite(ctx context.Context, data domain.GraphData, path string) error {
	store, err := repository.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ReplaceGraph(ctx, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
