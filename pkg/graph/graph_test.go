package graph

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

func TestMarshalGraph(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *dag.Graph
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g Graph)
	}{
		{
			name:  "Empty",
			build: dag.New,
		},
		{
			name: "Simple",
			build: func() *dag.Graph {
				g := dag.New()
				_ = g.AddNode(dag.Node{ID: "a", Status: dag.StatusInProgress})
				_ = g.AddNode(dag.Node{ID: "b"})
				_ = g.AddEdge(dag.Edge{Dependent: "a", Prerequisite: "b"})
				return g
			},
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g Graph) {
				if g.Nodes[0].Status != "in-progress" || g.Nodes[1].Status != "not-started" {
					t.Errorf("statuses = %q, %q", g.Nodes[0].Status, g.Nodes[1].Status)
				}
				if g.Edges[0] != (Edge{DependentTaskID: "a", PrerequisiteTaskID: "b"}) {
					t.Errorf("edge = %+v", g.Edges[0])
				}
			},
		},
		{
			name: "NameLiftedFromMeta",
			build: func() *dag.Graph {
				g := dag.New()
				_ = g.AddNode(dag.Node{ID: "t", Meta: dag.Metadata{"name": "Write docs", "estimate": "2d"}})
				return g
			},
			wantNodes: 1,
			check: func(t *testing.T, g Graph) {
				n := g.Nodes[0]
				if n.Name != "Write docs" {
					t.Errorf("name = %q", n.Name)
				}
				if _, ok := n.Meta["name"]; ok {
					t.Error("name should not be duplicated in meta")
				}
				if n.Meta["estimate"] != "2d" {
					t.Errorf("estimate = %v", n.Meta["estimate"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalGraph(tt.build())
			if err != nil {
				t.Fatalf("MarshalGraph: %v", err)
			}

			var result Graph
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := len(result.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(result.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestToDAG(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantNodes    int
		wantEdges    int
		wantRejected int
		wantErr      errors.Code
	}{
		{
			name: "Valid",
			input: `{
				"projectId": "web",
				"nodes": [
					{"id": "A", "status": "In Progress", "name": "Build"},
					{"id": "B", "status": "done", "projectId": "api"}
				],
				"edges": [{"dependentTaskId": "A", "prerequisiteTaskId": "B"}]
			}`,
			wantNodes: 2,
			wantEdges: 1,
		},
		{
			name: "DanglingSkipped",
			input: `{
				"nodes": [{"id": "A"}, {"id": "B"}],
				"edges": [
					{"dependentTaskId": "A", "prerequisiteTaskId": "B"},
					{"dependentTaskId": "A", "prerequisiteTaskId": "ghost"},
					{"dependentTaskId": "B", "prerequisiteTaskId": "B"}
				]
			}`,
			wantNodes:    2,
			wantEdges:    1,
			wantRejected: 2,
		},
		{
			name:    "UnknownStatus",
			input:   `{"nodes": [{"id": "A", "status": "someday"}], "edges": []}`,
			wantErr: errors.ErrCodeInvalidFormat,
		},
		{
			name:    "InvalidJSON",
			input:   `{invalid json}`,
			wantErr: errors.ErrCodeInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gj, err := ReadGraph(strings.NewReader(tt.input))
			var g *dag.Graph
			var rejected []dag.Edge
			if err == nil {
				g, rejected, err = ToDAG(gj)
			}
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want code %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.NodeCount() != tt.wantNodes || g.EdgeCount() != tt.wantEdges {
				t.Errorf("nodes=%d edges=%d, want %d/%d", g.NodeCount(), g.EdgeCount(), tt.wantNodes, tt.wantEdges)
			}
			if len(rejected) != tt.wantRejected {
				t.Errorf("rejected = %v, want %d", rejected, tt.wantRejected)
			}
		})
	}
}

func TestRecords_ProjectInheritance(t *testing.T) {
	nodes, _, err := Records(Graph{
		ProjectID: "web",
		Nodes:     []Node{{ID: "a"}, {ID: "b", ProjectID: "api", Status: "done", Name: "B"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if nodes[0].ProjectID != "web" || nodes[1].ProjectID != "api" {
		t.Errorf("projects = %q, %q", nodes[0].ProjectID, nodes[1].ProjectID)
	}
	if !nodes[1].IsCompleted() {
		t.Errorf("status = %q, want completed", nodes[1].Status)
	}
	if got := TaskName(&nodes[1]); got != "B" {
		t.Errorf("TaskName() = %q, want B", got)
	}
	if got := TaskName(&nodes[0]); got != "a" {
		t.Errorf("TaskName() fallback = %q, want a", got)
	}
}

func TestRoundTrip(t *testing.T) {
	in := Graph{
		Nodes: []Node{
			{ID: "a", Status: "paused", ProjectID: "p", OwnerID: "u", Name: "Alpha", Meta: map[string]any{"points": "3"}},
			{ID: "b", Status: "completed", ProjectID: "p", OwnerID: "u"},
		},
		Edges: []Edge{{DependentTaskID: "a", PrerequisiteTaskID: "b"}},
	}
	g, _, err := ToDAG(in)
	if err != nil {
		t.Fatal(err)
	}
	out := FromDAG(g)

	a, b := mustJSON(t, in), mustJSON(t, out)
	if a != b {
		t.Errorf("round trip changed records:\n in: %s\nout: %s", a, b)
	}
}

func TestGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.json")
	in := Graph{Nodes: []Node{{ID: "x", Status: "not-started"}}, Edges: []Edge{}}
	if err := WriteGraphFile(in, path); err != nil {
		t.Fatal(err)
	}
	out, err := ReadGraphFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Nodes) != 1 || out.Nodes[0].ID != "x" {
		t.Errorf("ReadGraphFile() = %+v", out)
	}

	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "missing.json")); !stderrors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestViewFile(t *testing.T) {
	v := View{
		ProjectID:    "web",
		Nodes:        []ViewNode{{ID: "a", Position: layout.Point{X: 40, Y: 160}, Level: 1}},
		Edges:        []ViewEdge{{DependentID: "a", PrerequisiteID: "b"}},
		CriticalPath: []string{"a", "b"},
		Statistics:   dag.Statistics{TotalTasks: 2, TotalDependencies: 1},
	}
	path := filepath.Join(t.TempDir(), "view.json")
	if err := WriteViewFile(v, path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadViewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := got.Node("a"); !ok || n.Position.Y != 160 || n.Level != 1 {
		t.Errorf("node a = %+v", n)
	}
	if got.Levels()["a"] != 1 {
		t.Errorf("Levels() = %v", got.Levels())
	}

	data, _ := MarshalView(v)
	for _, key := range []string{`"dependentId"`, `"prerequisiteId"`, `"criticalPath"`, `"totalTasks"`, `"position"`} {
		if !bytes.Contains(data, []byte(key)) {
			t.Errorf("view JSON lacks %s", key)
		}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
