package dag

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All tasks must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownDependent is returned by [Graph.AddEdge] when the dependent
	// task does not exist.
	ErrUnknownDependent = errors.New("unknown dependent task")

	// ErrUnknownPrerequisite is returned by [Graph.AddEdge] when the
	// prerequisite task does not exist.
	ErrUnknownPrerequisite = errors.New("unknown prerequisite task")

	// ErrSelfDependency is returned by [Graph.AddEdge] for an edge from a
	// task to itself.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrDuplicateEdge is returned by [Graph.AddEdge] when the ordered pair is
	// already present. The graph never holds parallel edges.
	ErrDuplicateEdge = errors.New("dependency already exists")

	// ErrEdgeNotFound is returned by [Graph.RemoveEdge] when the ordered pair
	// is not present.
	ErrEdgeNotFound = errors.New("dependency not found")
)

// Metadata stores passthrough task attributes (name, assignees, description)
// that the engine carries but never interprets.
type Metadata map[string]any

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus normalizes common spellings ("in_progress", "In Progress",
// "done") to a Status. Unknown values map to StatusNotStarted and ok=false.
func ParseStatus(s string) (status Status, ok bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	switch norm {
	case "not-started", "todo", "open", "":
		return StatusNotStarted, norm != ""
	case "in-progress", "doing", "active":
		return StatusInProgress, true
	case "paused", "on-hold", "blocked":
		return StatusPaused, true
	case "completed", "done", "closed":
		return StatusCompleted, true
	}
	return StatusNotStarted, false
}

// Node is a task in the dependency graph.
//
// The zero value is not usable - ID must be set before adding to a Graph.
type Node struct {
	ID        string   // Unique opaque identifier
	Status    Status   // Lifecycle state
	ProjectID string   // Owning project
	OwnerID   string   // Owner or creator
	Meta      Metadata // Passthrough payload (never nil after AddNode)
}

// IsCompleted reports whether the task is completed.
func (n Node) IsCompleted() bool { return n.Status == StatusCompleted }

// Edge is a dependency: Dependent cannot proceed until Prerequisite is done.
// Edges point from the dependent to its prerequisite.
type Edge struct {
	Dependent    string
	Prerequisite string
}

// edgeKey is the canonical encoding of an ordered pair in the edge set.
type edgeKey struct{ dependent, prerequisite string }

func keyOf(e Edge) edgeKey { return edgeKey{e.Dependent, e.Prerequisite} }

// adjacency is a derived view over the edge set. Lists are sorted ascending.
type adjacency struct {
	prerequisites map[string][]string // dependent -> prerequisites
	dependents    map[string][]string // prerequisite -> dependents
}

// Graph holds tasks and their dependency edges.
//
// Nodes live in a stable table keyed by ID and edges in a single canonical
// set keyed by the ordered pair. Adjacency lists are derived on demand and
// discarded on every structural mutation, so there is exactly one source of
// truth for the edge set.
//
// Graph only refuses malformed edges (unknown endpoints, self loops,
// duplicates). Acyclicity, depth and fan-out limits are the rule engine's
// responsibility and are checked before an edge is committed.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes map[string]*Node
	edges map[edgeKey]Edge
	adj   *adjacency
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]Edge),
	}
}

// Build creates a Graph from loaded records. Nodes with an empty or duplicate
// ID are ignored (first wins). Edges that reference unknown tasks, point a
// task at itself or repeat an existing pair are skipped and returned as
// rejected, so a corrupted store never aborts the whole load.
func Build(nodes []Node, edges []Edge) (g *Graph, rejected []Edge) {
	g = New()
	for _, n := range nodes {
		_ = g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			rejected = append(rejected, e)
		}
	}
	return g, rejected
}

// Clone returns a deep copy of the graph structure. Node metadata maps are
// copied shallowly.
func (g *Graph) Clone() *Graph {
	c := New()
	for id, n := range g.nodes {
		cp := *n
		cp.Meta = maps.Clone(n.Meta)
		c.nodes[id] = &cp
	}
	maps.Copy(c.edges, g.edges)
	return c
}

// AddNode adds a task to the graph.
// Returns ErrInvalidNodeID if the ID is empty, or ErrDuplicateNodeID if a
// task with the same ID already exists. An empty Status defaults to
// StatusNotStarted and a nil Meta to an empty map.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Status == "" {
		n.Status = StatusNotStarted
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	g.nodes[n.ID] = &n
	return nil
}

// AddEdge records that e.Dependent depends on e.Prerequisite.
// Returns ErrSelfDependency, ErrUnknownDependent, ErrUnknownPrerequisite or
// ErrDuplicateEdge for malformed edges. AddEdge does not check for cycles.
func (g *Graph) AddEdge(e Edge) error {
	if e.Dependent == e.Prerequisite {
		return ErrSelfDependency
	}
	if _, ok := g.nodes[e.Dependent]; !ok {
		return ErrUnknownDependent
	}
	if _, ok := g.nodes[e.Prerequisite]; !ok {
		return ErrUnknownPrerequisite
	}
	k := keyOf(e)
	if _, exists := g.edges[k]; exists {
		return ErrDuplicateEdge
	}
	g.edges[k] = e
	g.adj = nil
	return nil
}

// RemoveEdge removes the dependency of dependent on prerequisite.
// Returns ErrEdgeNotFound if the edge does not exist.
func (g *Graph) RemoveEdge(dependent, prerequisite string) error {
	k := edgeKey{dependent, prerequisite}
	if _, ok := g.edges[k]; !ok {
		return ErrEdgeNotFound
	}
	delete(g.edges, k)
	g.adj = nil
	return nil
}

// HasEdge reports whether dependent already depends on prerequisite.
func (g *Graph) HasEdge(dependent, prerequisite string) bool {
	_, ok := g.edges[edgeKey{dependent, prerequisite}]
	return ok
}

// Node returns the task with the given ID and true, or nil and false if not
// found. The returned pointer refers to the graph's own node.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether a task with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all tasks sorted by ID.
func (g *Graph) Nodes() []*Node {
	nodes := slices.Collect(maps.Values(g.nodes))
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// NodeIDs returns all task IDs sorted ascending.
func (g *Graph) NodeIDs() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Edges returns all edges sorted by dependent, then prerequisite.
// The returned slice is a copy.
func (g *Graph) Edges() []Edge {
	edges := slices.Collect(maps.Values(g.edges))
	slices.SortFunc(edges, compareEdges)
	return edges
}

func compareEdges(a, b Edge) int {
	if c := strings.Compare(a.Dependent, b.Dependent); c != 0 {
		return c
	}
	return strings.Compare(a.Prerequisite, b.Prerequisite)
}

// NodeCount returns the number of tasks in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of dependencies in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Prerequisites returns the IDs the task directly depends on, sorted
// ascending. The returned slice is a read-only view.
func (g *Graph) Prerequisites(id string) []string { return g.adjacency().prerequisites[id] }

// Dependents returns the IDs that directly depend on the task, sorted
// ascending. The returned slice is a read-only view.
func (g *Graph) Dependents(id string) []string { return g.adjacency().dependents[id] }

// OutDegree returns the number of prerequisites of the task.
func (g *Graph) OutDegree(id string) int { return len(g.adjacency().prerequisites[id]) }

// InDegree returns the number of tasks depending on the task.
func (g *Graph) InDegree(id string) int { return len(g.adjacency().dependents[id]) }

// adjacency builds (or returns the cached) adjacency view.
func (g *Graph) adjacency() *adjacency {
	if g.adj != nil {
		return g.adj
	}
	a := &adjacency{
		prerequisites: make(map[string][]string),
		dependents:    make(map[string][]string),
	}
	for _, e := range g.edges {
		a.prerequisites[e.Dependent] = append(a.prerequisites[e.Dependent], e.Prerequisite)
		a.dependents[e.Prerequisite] = append(a.dependents[e.Prerequisite], e.Dependent)
	}
	for _, ids := range a.prerequisites {
		slices.Sort(ids)
	}
	for _, ids := range a.dependents {
		slices.Sort(ids)
	}
	g.adj = a
	return a
}
