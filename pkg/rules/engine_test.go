package rules

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// project builds a graph of tasks in project "p" owned by "u", with
// "dependent>prerequisite" edges.
func project(t *testing.T, ids []string, pairs ...string) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, id := range ids {
		if err := g.AddNode(dag.Node{ID: id, ProjectID: "p", OwnerID: "u"}); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range pairs {
		var dep, pre string
		if _, err := fmt.Sscanf(p, "%1s>%1s", &dep, &pre); err != nil {
			t.Fatalf("bad pair %q: %v", p, err)
		}
		if err := g.AddEdge(dag.Edge{Dependent: dep, Prerequisite: pre}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func kinds(issues []Issue) []errors.Code {
	out := make([]errors.Code, len(issues))
	for i, is := range issues {
		out[i] = is.Kind
	}
	return out
}

func TestValidate_ValidEdge(t *testing.T) {
	g := project(t, []string{"A", "B"})
	v := New(Policy{}).Validate(g, "A", "B")
	if !v.Valid || len(v.Errors) != 0 || len(v.Warnings) != 0 {
		t.Errorf("Validate() = %+v, want valid without findings", v)
	}
	if v.Errors == nil || v.Warnings == nil {
		t.Error("issue slices should be non-nil for stable JSON")
	}
}

func TestValidate_CircularDependency(t *testing.T) {
	// A depends on B, B on C, C on D. D depending on A closes the loop.
	g := project(t, []string{"A", "B", "C", "D"}, "A>B", "B>C", "C>D")

	v := New(Policy{}).Validate(g, "D", "A")

	if v.Valid {
		t.Fatal("Validate() should reject a cycle")
	}
	if !slices.Equal(kinds(v.Errors), []errors.Code{errors.ErrCodeCircularDependency}) {
		t.Fatalf("errors = %v, want only CIRCULAR_DEPENDENCY", kinds(v.Errors))
	}
	if want := []string{"D", "A", "B", "C", "D"}; !slices.Equal(v.Errors[0].Path, want) {
		t.Errorf("cycle path = %v, want %v", v.Errors[0].Path, want)
	}
	if g.EdgeCount() != 3 || g.HasEdge("D", "A") {
		t.Error("Validate() must not mutate the graph")
	}
}

func TestValidate_MaxDepthExceeded(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%02d", i)
	}
	g := dag.New()
	for _, id := range ids {
		_ = g.AddNode(dag.Node{ID: id, ProjectID: "p"})
	}
	engine := New(Policy{MaxDependencyDepth: 10})

	for i := 0; i < 11; i++ {
		v := engine.Validate(g, ids[i], ids[i+1])
		if i < 10 {
			if !v.Valid {
				t.Fatalf("edge %d rejected early: %+v", i+1, v.Errors)
			}
			if err := g.AddEdge(dag.Edge{Dependent: ids[i], Prerequisite: ids[i+1]}); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if v.Valid || !v.Has(errors.ErrCodeMaxDepthExceeded) {
			t.Fatalf("11th edge: got %+v, want MAX_DEPTH_EXCEEDED", v)
		}
		if path := v.Errors[0].Path; len(path) != 12 || path[0] != "t00" || path[11] != "t11" {
			t.Errorf("depth path = %v, want the full t00..t11 chain", path)
		}
	}
}

func TestValidate_DepthCountsBothSides(t *testing.T) {
	// X above A (X>A), and B>C below: adding A>B yields X>A>B>C, depth 3.
	g := project(t, []string{"X", "A", "B", "C"}, "X>A", "B>C")
	if v := New(Policy{MaxDependencyDepth: 2}).Validate(g, "A", "B"); !v.Has(errors.ErrCodeMaxDepthExceeded) {
		t.Errorf("depth 3 with limit 2 should fail, got %+v", v)
	}
	if v := New(Policy{MaxDependencyDepth: 3}).Validate(g, "A", "B"); !v.Valid {
		t.Errorf("depth 3 with limit 3 should pass, got %+v", v)
	}
}

func TestValidate_ShortCircuits(t *testing.T) {
	tests := []struct {
		name      string
		dep, pre  string
		wantKind  errors.Code
		wantCount int
	}{
		{"unknown dependent", "Z", "A", errors.ErrCodeTaskNotFound, 1},
		{"unknown prerequisite", "A", "Z", errors.ErrCodeTaskNotFound, 1},
		{"both unknown", "Y", "Z", errors.ErrCodeTaskNotFound, 2},
		{"self dependency", "A", "A", errors.ErrCodeSelfDependency, 1},
		{"duplicate", "A", "B", errors.ErrCodeDependencyExists, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := project(t, []string{"A", "B"}, "A>B")
			// Make every later check fire, so short-circuiting is visible.
			n, _ := g.Node("B")
			n.Status = dag.StatusCompleted
			n.ProjectID = "other"

			v := New(Policy{MaxDependenciesPerTask: 1}).Validate(g, tt.dep, tt.pre)
			if v.Valid {
				t.Fatal("expected rejection")
			}
			if len(v.Errors) != tt.wantCount || v.Errors[0].Kind != tt.wantKind {
				t.Errorf("errors = %v, want [%s]", kinds(v.Errors), tt.wantKind)
			}
			if len(v.Warnings) != 0 {
				t.Errorf("warnings = %v, want none after short-circuit", kinds(v.Warnings))
			}
		})
	}
}

func TestValidate_NamesEveryUnknownTask(t *testing.T) {
	g := project(t, []string{"A"})
	v := New(Policy{}).Validate(g, "Y", "Z")
	if got := kinds(v.Errors); !slices.Equal(got, []errors.Code{errors.ErrCodeTaskNotFound, errors.ErrCodeTaskNotFound}) {
		t.Fatalf("errors = %v, want two TASK_NOT_FOUND", got)
	}
	for i, id := range []string{"Y", "Z"} {
		if !strings.Contains(v.Errors[i].Message, `"`+id+`"`) {
			t.Errorf("error %d = %q, want it to name %s", i, v.Errors[i].Message, id)
		}
	}
}

func TestValidate_DuplicateIsIdempotent(t *testing.T) {
	g := project(t, []string{"A", "B"}, "A>B")
	engine := New(Policy{})
	first := engine.Validate(g, "A", "B")
	second := engine.Validate(g, "A", "B")
	if first.Valid || second.Valid {
		t.Fatal("duplicate should be rejected")
	}
	if !slices.Equal(kinds(first.Errors), kinds(second.Errors)) {
		t.Errorf("repeat validation differs: %v vs %v", kinds(first.Errors), kinds(second.Errors))
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestValidate_Accumulates(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "A", ProjectID: "p1", OwnerID: "alice"})
	_ = g.AddNode(dag.Node{ID: "B", ProjectID: "p2", OwnerID: "bob", Status: dag.StatusCompleted})
	_ = g.AddNode(dag.Node{ID: "C", ProjectID: "p1", OwnerID: "alice"})
	_ = g.AddEdge(dag.Edge{Dependent: "A", Prerequisite: "C"})

	v := New(Policy{RequireSameOwner: true, MaxDependenciesPerTask: 1}).Validate(g, "A", "B")

	want := []errors.Code{
		errors.ErrCodeCrossProject,
		errors.ErrCodeOwnerMismatch,
		errors.ErrCodeMaxDependenciesExceeded,
	}
	if !slices.Equal(kinds(v.Errors), want) {
		t.Errorf("errors = %v, want %v", kinds(v.Errors), want)
	}
	if !slices.Equal(kinds(v.Warnings), []errors.Code{errors.ErrCodePrerequisiteCompleted}) {
		t.Errorf("warnings = %v, want PREREQUISITE_COMPLETED", kinds(v.Warnings))
	}
}

func TestValidate_PolicySwitches(t *testing.T) {
	g := dag.New()
	_ = g.AddNode(dag.Node{ID: "A", ProjectID: "p1", OwnerID: "alice"})
	_ = g.AddNode(dag.Node{ID: "B", ProjectID: "p2", OwnerID: "bob"})

	if v := New(Policy{AllowCrossProjectDependency: true}).Validate(g, "A", "B"); !v.Valid {
		t.Errorf("cross-project allowed and owners unchecked: got %v", kinds(v.Errors))
	}
	if v := New(Policy{AllowCrossProjectDependency: true, RequireSameOwner: true}).Validate(g, "A", "B"); !v.Has(errors.ErrCodeOwnerMismatch) {
		t.Errorf("owner mismatch expected, got %v", kinds(v.Errors))
	}
}

func TestValidate_CompletedPrerequisiteWarns(t *testing.T) {
	g := project(t, []string{"A", "B"})
	n, _ := g.Node("B")
	n.Status = dag.StatusCompleted

	v := New(Policy{}).Validate(g, "A", "B")
	if !v.Valid || !v.NeedsConfirmation() {
		t.Errorf("Validate() = %+v, want valid with a warning", v)
	}
}

func TestValidate_FanOutLimit(t *testing.T) {
	ids := []string{"A", "B", "C", "D"}
	g := project(t, ids, "A>B", "A>C")
	if v := New(Policy{MaxDependenciesPerTask: 3}).Validate(g, "A", "D"); !v.Valid {
		t.Errorf("third dependency within limit 3 rejected: %v", kinds(v.Errors))
	}
	if v := New(Policy{MaxDependenciesPerTask: 2}).Validate(g, "A", "D"); !v.Has(errors.ErrCodeMaxDependenciesExceeded) {
		t.Errorf("third dependency with limit 2 accepted")
	}
}

func TestValidate_DepthSkippedOnCycle(t *testing.T) {
	g := project(t, []string{"A", "B", "C"}, "A>B", "B>C")
	v := New(Policy{MaxDependencyDepth: 1}).Validate(g, "C", "A")
	if v.Has(errors.ErrCodeMaxDepthExceeded) {
		t.Errorf("depth check should be skipped after a cycle, got %v", kinds(v.Errors))
	}
}

func TestPolicy(t *testing.T) {
	p := New(Policy{}).Policy()
	if p != DefaultPolicy() {
		t.Errorf("zero policy = %+v, want defaults %+v", p, DefaultPolicy())
	}
	if err := p.Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
	err := Policy{MaxDependencyDepth: -1, MaxDependenciesPerTask: 1, LongChainThreshold: 1}.Validate()
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative depth: got %v, want INVALID_CONFIG", err)
	}
}

type recordingHooks struct {
	observability.NoopValidationHooks
	mu    sync.Mutex
	calls []string
}

func (h *recordingHooks) OnValidate(dep, pre string, errs, warns int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, fmt.Sprintf("%s>%s:%d/%d", dep, pre, errs, warns))
}

func TestValidate_EmitsHook(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetValidationHooks(hooks)
	t.Cleanup(observability.Reset)

	g := project(t, []string{"A", "B"})
	New(Policy{}).Validate(g, "A", "A")

	if want := []string{"A>A:1/0"}; !slices.Equal(hooks.calls, want) {
		t.Errorf("hook calls = %v, want %v", hooks.calls, want)
	}
}

// randomProject builds an acyclic project whose topological order is a
// random permutation of the task IDs.
func randomProject(r *rand.Rand, n int, density float64) *dag.Graph {
	g := dag.New()
	ids := make([]string, n)
	for i, p := range r.Perm(n) {
		ids[i] = fmt.Sprintf("t%02d", p)
		_ = g.AddNode(dag.Node{ID: ids[i], ProjectID: "p", OwnerID: "u"})
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.Float64() < density {
				_ = g.AddEdge(dag.Edge{Dependent: ids[i], Prerequisite: ids[j]})
			}
		}
	}
	return g
}

// TestValidate_AgreesWithWholeGraphChecks compares the incremental cycle and
// depth checks against recomputing cycles and the longest chain over the
// graph with the candidate edge added.
func TestValidate_AgreesWithWholeGraphChecks(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		g := randomProject(r, 2+r.Intn(12), 0.1+r.Float64()*0.3)
		limit := max(1, dag.MaxChain(g).Length) + r.Intn(3)
		e := New(Policy{MaxDependencyDepth: limit, MaxDependenciesPerTask: 1000})

		ids := g.NodeIDs()
		dep, pre := ids[r.Intn(len(ids))], ids[r.Intn(len(ids))]
		if dep == pre || g.HasEdge(dep, pre) {
			continue
		}
		v := e.Validate(g, dep, pre)

		with := g.Clone()
		if err := with.AddEdge(dag.Edge{Dependent: dep, Prerequisite: pre}); err != nil {
			t.Fatal(err)
		}
		cyclic := len(transform.FindCycles(with)) > 0
		if got := v.Has(errors.ErrCodeCircularDependency); got != cyclic {
			t.Fatalf("case %d: %s>%s CIRCULAR_DEPENDENCY = %v, whole-graph cycle = %v\nedges %v",
				i, dep, pre, got, cyclic, g.Edges())
		}
		if cyclic {
			continue
		}
		tooDeep := dag.MaxChain(with).Length > limit
		if got := v.Has(errors.ErrCodeMaxDepthExceeded); got != tooDeep {
			t.Fatalf("case %d: %s>%s MAX_DEPTH_EXCEEDED = %v, longest chain %d vs limit %d\nedges %v",
				i, dep, pre, got, dag.MaxChain(with).Length, limit, g.Edges())
		}
		if v.Valid != !tooDeep {
			t.Fatalf("case %d: %s>%s Valid = %v, errors %v", i, dep, pre, v.Valid, kinds(v.Errors))
		}
	}
}
