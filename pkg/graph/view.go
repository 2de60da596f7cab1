package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// =============================================================================
// View - Rendering Output
// =============================================================================

// View is everything the rendering surface needs for one committed state of
// a project: positioned tasks with their levels, the edges, the critical
// path and summary statistics. Views are derived and never persisted as
// ground truth; they may be cached.
type View struct {
	ProjectID    string         `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Revision     string         `json:"revision,omitempty" bson:"revision,omitempty"`
	Nodes        []ViewNode     `json:"nodes" bson:"nodes"`
	Edges        []ViewEdge     `json:"edges" bson:"edges"`
	CriticalPath []string       `json:"criticalPath" bson:"criticalPath"`
	Statistics   dag.Statistics `json:"statistics" bson:"statistics"`
	Width        float64        `json:"width" bson:"width"`
	Height       float64        `json:"height" bson:"height"`
}

// ViewNode is a positioned task.
type ViewNode struct {
	ID       string       `json:"id" bson:"id"`
	Name     string       `json:"name,omitempty" bson:"name,omitempty"`
	Status   string       `json:"status,omitempty" bson:"status,omitempty"`
	Position layout.Point `json:"position" bson:"position"`
	Level    int          `json:"level" bson:"level"`
	Critical bool         `json:"critical,omitempty" bson:"critical,omitempty"`
}

// ViewEdge is a dependency in the view.
type ViewEdge struct {
	DependentID    string `json:"dependentId" bson:"dependentId"`
	PrerequisiteID string `json:"prerequisiteId" bson:"prerequisiteId"`
	Critical       bool   `json:"critical,omitempty" bson:"critical,omitempty"`
}

// Node returns the view node with the given ID.
func (v *View) Node(id string) (ViewNode, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ViewNode{}, false
}

// Levels returns the level of every node.
func (v *View) Levels() map[string]int {
	levels := make(map[string]int, len(v.Nodes))
	for _, n := range v.Nodes {
		levels[n.ID] = n.Level
	}
	return levels
}

// =============================================================================
// View Serialization API
// =============================================================================

// MarshalView serializes a View to pretty-printed JSON bytes.
func MarshalView(v View) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// UnmarshalView deserializes JSON bytes into a View.
func UnmarshalView(data []byte) (View, error) {
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return View{}, fmt.Errorf("unmarshal view: %w", err)
	}
	return v, nil
}

// WriteViewFile writes a View to a JSON file.
func WriteViewFile(v View, path string) error {
	data, err := MarshalView(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadViewFile reads a View from a JSON file.
func ReadViewFile(path string) (View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return View{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalView(data)
}
