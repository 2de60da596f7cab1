package graph

import (
	"fmt"
	"maps"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
)

// metaName is the metadata key the task name round-trips through.
const metaName = "name"

// =============================================================================
// Graph - Project Records
// =============================================================================

// Graph is the record format a project's tasks and dependencies are loaded
// from and saved to. Used for JSON files, API bodies and document storage.
//
// Graph is raw input: it may contain edges that reference unknown tasks,
// self loops or duplicates. Use [ToDAG] to obtain a well-formed graph plus
// the list of edges that had to be skipped.
type Graph struct {
	ProjectID string `json:"projectId,omitempty" bson:"projectId,omitempty"`
	Nodes     []Node `json:"nodes" bson:"nodes"`
	Edges     []Edge `json:"edges" bson:"edges"`
}

// Node is a task record.
type Node struct {
	ID        string         `json:"id" bson:"id"`
	Status    string         `json:"status,omitempty" bson:"status,omitempty"`
	ProjectID string         `json:"projectId,omitempty" bson:"projectId,omitempty"`
	OwnerID   string         `json:"ownerId,omitempty" bson:"ownerId,omitempty"`
	Name      string         `json:"name,omitempty" bson:"name,omitempty"`
	Meta      map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// Edge is a dependency record: DependentTaskID depends on PrerequisiteTaskID.
type Edge struct {
	DependentTaskID    string `json:"dependentTaskId" bson:"dependentTaskId"`
	PrerequisiteTaskID string `json:"prerequisiteTaskId" bson:"prerequisiteTaskId"`
}

// =============================================================================
// DAG ↔ Graph Conversion
// =============================================================================

// Records converts the wire format into dag records without validating the
// edge set. Status spellings are normalized with [dag.ParseStatus]; an
// unknown status is an INVALID_FORMAT error. A task without a project
// inherits gj.ProjectID.
func Records(gj Graph) ([]dag.Node, []dag.Edge, error) {
	nodes := make([]dag.Node, 0, len(gj.Nodes))
	for _, nj := range gj.Nodes {
		status, ok := dag.ParseStatus(nj.Status)
		if !ok && nj.Status != "" {
			return nil, nil, errors.New(errors.ErrCodeInvalidFormat, "task %q: unknown status %q", nj.ID, nj.Status)
		}
		n := dag.Node{
			ID:        nj.ID,
			Status:    status,
			ProjectID: nj.ProjectID,
			OwnerID:   nj.OwnerID,
			Meta:      maps.Clone(nj.Meta),
		}
		if n.ProjectID == "" {
			n.ProjectID = gj.ProjectID
		}
		if nj.Name != "" {
			if n.Meta == nil {
				n.Meta = dag.Metadata{}
			}
			n.Meta[metaName] = nj.Name
		}
		nodes = append(nodes, n)
	}

	edges := make([]dag.Edge, len(gj.Edges))
	for i, ej := range gj.Edges {
		edges[i] = dag.Edge{Dependent: ej.DependentTaskID, Prerequisite: ej.PrerequisiteTaskID}
	}
	return nodes, edges, nil
}

// ToDAG builds a graph from the wire format. Edges referencing unknown
// tasks, self loops and duplicates are skipped and returned as rejected.
// Only a malformed task record is an error.
func ToDAG(gj Graph) (g *dag.Graph, rejected []dag.Edge, err error) {
	nodes, edges, err := Records(gj)
	if err != nil {
		return nil, nil, err
	}
	g, rejected = dag.Build(nodes, edges)
	return g, rejected, nil
}

// FromDAG converts a graph to its wire format. Nodes and edges are sorted for
// deterministic output.
func FromDAG(g *dag.Graph) Graph {
	out := Graph{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, nodeFromDAG(n))
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{DependentTaskID: e.Dependent, PrerequisiteTaskID: e.Prerequisite})
	}
	return out
}

// nodeFromDAG is the single point of conversion for dag.Node → Node.
func nodeFromDAG(n *dag.Node) Node {
	node := Node{
		ID:        n.ID,
		Status:    string(n.Status),
		ProjectID: n.ProjectID,
		OwnerID:   n.OwnerID,
	}
	if name, ok := n.Meta[metaName].(string); ok {
		node.Name = name
	}
	if len(n.Meta) > 0 {
		meta := maps.Clone(map[string]any(n.Meta))
		delete(meta, metaName)
		if len(meta) > 0 {
			node.Meta = meta
		}
	}
	return node
}

// TaskName returns the display name stored on a dag node, falling back to
// its ID.
func TaskName(n *dag.Node) string {
	if name, ok := n.Meta[metaName].(string); ok && name != "" {
		return name
	}
	return n.ID
}

// String implements fmt.Stringer for log output.
func (e Edge) String() string {
	return fmt.Sprintf("%s → %s", e.DependentTaskID, e.PrerequisiteTaskID)
}
