package dag

import (
	"errors"
	"slices"
	"testing"
)

// chain builds ids[0] → ids[1] → ... where each task depends on the next.
func chain(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.AddEdge(Edge{Dependent: ids[i], Prerequisite: ids[i+1]}); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", ids[i], ids[i+1], err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want ErrInvalidNodeID", err)
	}
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode(a) = %v", err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(a) twice = %v, want ErrDuplicateNodeID", err)
	}

	n, ok := g.Node("a")
	if !ok {
		t.Fatal("Node(a) not found")
	}
	if n.Status != StatusNotStarted {
		t.Errorf("default status = %q, want %q", n.Status, StatusNotStarted)
	}
	if n.Meta == nil {
		t.Error("Meta should be initialized")
	}
}

func TestAddEdge(t *testing.T) {
	g := chain(t, "a", "b")

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"self", Edge{"a", "a"}, ErrSelfDependency},
		{"duplicate", Edge{"a", "b"}, ErrDuplicateEdge},
		{"unknown dependent", Edge{"x", "b"}, ErrUnknownDependent},
		{"unknown prerequisite", Edge{"a", "x"}, ErrUnknownPrerequisite},
		{"reverse is a different pair", Edge{"b", "a"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge(%v) = %v, want %v", tt.edge, err, tt.want)
			}
		})
	}
}

func TestRemoveEdge(t *testing.T) {
	g := chain(t, "a", "b", "c")

	if err := g.RemoveEdge("a", "b"); err != nil {
		t.Fatalf("RemoveEdge(a, b) = %v", err)
	}
	if g.HasEdge("a", "b") {
		t.Error("edge a→b still present")
	}
	if got := g.Prerequisites("a"); len(got) != 0 {
		t.Errorf("Prerequisites(a) = %v after removal, want none", got)
	}
	if err := g.RemoveEdge("a", "b"); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("second RemoveEdge = %v, want ErrEdgeNotFound", err)
	}
}

func TestAdjacencySorted(t *testing.T) {
	g := New()
	for _, id := range []string{"app", "zeta", "beta", "mid"} {
		_ = g.AddNode(Node{ID: id})
	}
	_ = g.AddEdge(Edge{"app", "zeta"})
	_ = g.AddEdge(Edge{"app", "beta"})
	_ = g.AddEdge(Edge{"app", "mid"})
	_ = g.AddEdge(Edge{"mid", "beta"})

	if got, want := g.Prerequisites("app"), []string{"beta", "mid", "zeta"}; !slices.Equal(got, want) {
		t.Errorf("Prerequisites(app) = %v, want %v", got, want)
	}
	if got, want := g.Dependents("beta"), []string{"app", "mid"}; !slices.Equal(got, want) {
		t.Errorf("Dependents(beta) = %v, want %v", got, want)
	}
}

func TestBuildSkipsDanglingEdges(t *testing.T) {
	nodes := []Node{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: ""}}
	edges := []Edge{
		{"a", "b"},
		{"a", "ghost"},
		{"ghost", "b"},
		{"b", "b"},
		{"a", "b"},
	}

	g, rejected := Build(nodes, edges)

	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if len(rejected) != 4 {
		t.Errorf("rejected %d edges, want 4: %v", len(rejected), rejected)
	}
}

func TestClone(t *testing.T) {
	g := chain(t, "a", "b")
	c := g.Clone()

	_ = c.AddNode(Node{ID: "c"})
	_ = c.AddEdge(Edge{"b", "c"})
	n, _ := c.Node("a")
	n.Meta["name"] = "changed"

	if g.HasNode("c") || g.HasEdge("b", "c") {
		t.Error("clone mutation leaked into original")
	}
	orig, _ := g.Node("a")
	if _, ok := orig.Meta["name"]; ok {
		t.Error("clone metadata mutation leaked into original")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   Status
		wantOK bool
	}{
		{"completed", StatusCompleted, true},
		{"Done", StatusCompleted, true},
		{"in_progress", StatusInProgress, true},
		{"In Progress", StatusInProgress, true},
		{"paused", StatusPaused, true},
		{"not-started", StatusNotStarted, true},
		{"", StatusNotStarted, false},
		{"exploded", StatusNotStarted, false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
