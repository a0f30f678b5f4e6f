package graphs_go

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SaveGraphToFile writes g in the format implied by the extension of path.
// JSON is input-only.
func SaveGraphToFile(ctx context.Context, g *Graph, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create GOB file %s: %w", path, err)
		}
		if err := SaveGob(g, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".db", ".sqlite":
		return SaveSQLite(ctx, g, path)
	default:
		return fmt.Errorf("unsupported output extension %q (want .gob, .db or .sqlite)", filepath.Ext(path))
	}
}

// ConvertNetwork loads the network at input and writes it to output. When
// output is empty it is derived from input with a .gob extension.
func ConvertNetwork(ctx context.Context, input, output string) (string, *Graph, error) {
	if output == "" {
		ext := filepath.Ext(input)
		output = strings.TrimSuffix(input, ext) + ".gob"
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return "", nil, fmt.Errorf("input and output are the same file: %s", input)
	}
	g, err := LoadGraphFromFile(input)
	if err != nil {
		return "", nil, err
	}
	if err := SaveGraphToFile(ctx, g, output); err != nil {
		return "", nil, err
	}
	return output, g, nil
}
