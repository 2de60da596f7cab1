package pipeline

import (
	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// DeriveView computes the view of a committed graph: levels, positions,
// critical path and statistics. Nodes are ordered by ID and edges by
// dependent, then prerequisite. g is not modified.
func DeriveView(g *dag.Graph, projectID string, opts layout.Options) graph.View {
	opts = opts.WithDefaults()

	levels := transform.AssignLevels(g)
	positions := layout.ComputePositions(levels, transform.LevelBuckets(levels), opts)
	path := transform.CriticalPath(g)

	onPath := make(map[string]bool, len(path))
	pathEdges := make(map[dag.Edge]bool, len(path))
	for i, id := range path {
		onPath[id] = true
		if i+1 < len(path) {
			pathEdges[dag.Edge{Dependent: id, Prerequisite: path[i+1]}] = true
		}
	}

	v := graph.View{
		ProjectID:    projectID,
		Nodes:        make([]graph.ViewNode, 0, g.NodeCount()),
		Edges:        make([]graph.ViewEdge, 0, g.EdgeCount()),
		CriticalPath: path,
		Statistics:   dag.ComputeStatistics(g),
	}
	if v.CriticalPath == nil {
		v.CriticalPath = []string{}
	}

	for _, n := range g.Nodes() {
		p := positions[n.ID]
		v.Nodes = append(v.Nodes, graph.ViewNode{
			ID:       n.ID,
			Name:     graph.TaskName(n),
			Status:   string(n.Status),
			Position: p,
			Level:    levels[n.ID],
			Critical: onPath[n.ID],
		})
		v.Width = max(v.Width, p.X+opts.Margin)
		v.Height = max(v.Height, p.Y+opts.Margin)
	}
	for _, e := range g.Edges() {
		v.Edges = append(v.Edges, graph.ViewEdge{
			DependentID:    e.Dependent,
			PrerequisiteID: e.Prerequisite,
			Critical:       pathEdges[e],
		})
	}
	return v
}
