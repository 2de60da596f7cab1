package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to JSON bytes.
// Nodes are sorted by ID for deterministic output.
func MarshalGraph(g *dag.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(FromDAG(g), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes project records to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(gj Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(gj, f)
}

// WriteGraph writes project records as indented JSON to an io.Writer.
func WriteGraph(gj Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(gj); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraphFile reads project records from a JSON file. The records are not
// validated; use [ToDAG] to build a graph from them.
func ReadGraphFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes project records from an io.Reader.
func ReadGraph(r io.Reader) (Graph, error) {
	var gj Graph
	if err := json.NewDecoder(r).Decode(&gj); err != nil {
		return Graph{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph")
	}
	return gj, nil
}
