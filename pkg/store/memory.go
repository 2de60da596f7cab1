package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]graph.Node
	edges map[graph.Edge]string // edge → project
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks: make(map[string]graph.Node),
		edges: make(map[graph.Edge]string),
	}
}

// LoadProject implements Store.
func (m *Memory) LoadProject(ctx context.Context, projectID string) (graph.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g := graph.Graph{ProjectID: projectID, Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	ids := make(map[string]bool)
	for e, p := range m.edges {
		if p == projectID {
			g.Edges = append(g.Edges, e)
			ids[e.PrerequisiteTaskID] = true
		}
	}
	for id, n := range m.tasks {
		if n.ProjectID == projectID || ids[id] {
			g.Nodes = append(g.Nodes, cloneNode(n))
		}
	}
	if len(g.Nodes) == 0 && len(g.Edges) == 0 {
		return graph.Graph{}, errors.New(errors.ErrCodeProjectNotFound, "project %q not found", projectID)
	}
	SortRecords(&g)
	return g, nil
}

// Task implements Store.
func (m *Memory) Task(ctx context.Context, taskID string) (graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.tasks[taskID]
	if !ok {
		return graph.Node{}, errors.New(errors.ErrCodeTaskNotFound, "task %q not found", taskID)
	}
	return cloneNode(n), nil
}

// SaveTask implements Store.
func (m *Memory) SaveTask(ctx context.Context, n graph.Node) error {
	if err := checkTask(n); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[n.ID] = cloneNode(n)
	return nil
}

// ImportProject implements Store.
func (m *Memory) ImportProject(ctx context.Context, g graph.Graph) error {
	nodes, err := ImportNodes(g)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		m.tasks[n.ID] = cloneNode(n)
	}
	maps.DeleteFunc(m.edges, func(_ graph.Edge, p string) bool { return p == g.ProjectID })
	for _, e := range g.Edges {
		m.edges[e] = g.ProjectID
	}
	return nil
}

// AddDependency implements Store.
func (m *Memory) AddDependency(ctx context.Context, e graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dep, ok := m.tasks[e.DependentTaskID]
	if !ok {
		return errors.New(errors.ErrCodeTaskNotFound, "task %q not found", e.DependentTaskID)
	}
	if _, exists := m.edges[e]; exists {
		return errors.New(errors.ErrCodeDependencyExists, "dependency %s already exists", e)
	}
	m.edges[e] = dep.ProjectID
	return nil
}

// RemoveDependency implements Store.
func (m *Memory) RemoveDependency(ctx context.Context, e graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[e]; !ok {
		return errors.New(errors.ErrCodeDependencyNotFound, "dependency %s not found", e)
	}
	delete(m.edges, e)
	return nil
}

// Projects implements Store.
func (m *Memory) Projects(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[string]bool)
	for _, n := range m.tasks {
		set[n.ProjectID] = true
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

func cloneNode(n graph.Node) graph.Node {
	n.Meta = maps.Clone(n.Meta)
	return n
}

// SortRecords orders nodes by ID and edges by dependent, then prerequisite.
func SortRecords(g *graph.Graph) {
	slices.SortFunc(g.Nodes, func(a, b graph.Node) int { return strings.Compare(a.ID, b.ID) })
	slices.SortFunc(g.Edges, func(a, b graph.Edge) int {
		if c := strings.Compare(a.DependentTaskID, b.DependentTaskID); c != 0 {
			return c
		}
		return strings.Compare(a.PrerequisiteTaskID, b.PrerequisiteTaskID)
	})
}

// ImportNodes validates an import and returns its tasks with ProjectID
// filled in from g.ProjectID where missing.
func ImportNodes(g graph.Graph) ([]graph.Node, error) {
	if err := errors.ValidateProjectID(g.ProjectID); err != nil {
		return nil, err
	}
	nodes := make([]graph.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ProjectID == "" {
			n.ProjectID = g.ProjectID
		}
		if err := checkTask(n); err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func checkTask(n graph.Node) error {
	if err := errors.ValidateTaskID(n.ID); err != nil {
		return err
	}
	return errors.ValidateProjectID(n.ProjectID)
}

var _ Store = (*Memory)(nil)
