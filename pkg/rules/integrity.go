package rules

import (
	"fmt"
	"time"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// Report is the outcome of a whole-project integrity scan.
type Report struct {
	Valid       bool    `json:"valid"`
	Issues      []Issue `json:"issues"`
	Suggestions []Issue `json:"suggestions"`
}

// ScanIntegrity audits raw records, typically straight from storage.
//
// Issues: tasks with empty or duplicate IDs, edges referencing unknown tasks,
// self loops, duplicate edges, residual cycles, tasks over the fan-out limit
// and chains over the depth limit. Suggestions: isolated tasks and chains of
// at least LongChainThreshold edges. The depth check is skipped when cycles
// are present.
func (e *Engine) ScanIntegrity(nodes []dag.Node, edges []dag.Edge) Report {
	start := time.Now()
	var r Report

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		switch {
		case n.ID == "":
			r.Issues = append(r.Issues, Issue{
				Kind:    errors.ErrCodeInvalidInput,
				Message: "Task with empty ID",
			})
		case seen[n.ID]:
			r.Issues = append(r.Issues, Issue{
				Kind:    errors.ErrCodeInvalidInput,
				Message: fmt.Sprintf("Duplicate task ID %q", n.ID),
				Path:    []string{n.ID},
			})
		}
		seen[n.ID] = true
	}

	g, rejected := dag.Build(nodes, edges)
	for _, edge := range rejected {
		r.Issues = append(r.Issues, classifyRejected(g, edge))
	}

	cycles := transform.FindCycles(g)
	for _, c := range cycles {
		r.Issues = append(r.Issues, Issue{
			Kind:    errors.ErrCodeCircularDependency,
			Message: fmt.Sprintf("Circular dependency through %d tasks", len(c)-1),
			Path:    c,
		})
	}

	for _, id := range g.NodeIDs() {
		if n := g.OutDegree(id); n > e.policy.MaxDependenciesPerTask {
			r.Issues = append(r.Issues, Issue{
				Kind:    errors.ErrCodeMaxDependenciesExceeded,
				Message: fmt.Sprintf("Task %q has %d dependencies (maximum %d)", id, n, e.policy.MaxDependenciesPerTask),
				Path:    []string{id},
			})
		}
		if g.OutDegree(id) == 0 && g.InDegree(id) == 0 && g.NodeCount() > 1 {
			r.Suggestions = append(r.Suggestions, Issue{
				Kind:    errors.ErrCodeIsolatedTask,
				Message: fmt.Sprintf("Task %q has no dependencies and nothing depends on it", id),
				Path:    []string{id},
			})
		}
	}

	if len(cycles) == 0 {
		longest := dag.MaxChain(g)
		switch {
		case longest.Length > e.policy.MaxDependencyDepth:
			r.Issues = append(r.Issues, Issue{
				Kind:    errors.ErrCodeMaxDepthExceeded,
				Message: fmt.Sprintf("Dependency chain has depth %d (maximum %d)", longest.Length, e.policy.MaxDependencyDepth),
				Path:    longest.Path,
			})
		case longest.Length >= e.policy.LongChainThreshold:
			r.Suggestions = append(r.Suggestions, Issue{
				Kind:    errors.ErrCodeLongChain,
				Message: fmt.Sprintf("Dependency chain of %d tasks; consider running some of them in parallel", len(longest.Path)),
				Path:    longest.Path,
			})
		}
	}

	r.Valid = len(r.Issues) == 0
	r.Issues = nonNil(r.Issues)
	r.Suggestions = nonNil(r.Suggestions)
	observability.Validation().OnIntegrityScan(len(nodes), len(r.Issues), len(r.Suggestions), time.Since(start))
	return r
}

func classifyRejected(g *dag.Graph, e dag.Edge) Issue {
	path := []string{e.Dependent, e.Prerequisite}
	switch {
	case e.Dependent == e.Prerequisite:
		return Issue{
			Kind:    errors.ErrCodeSelfDependency,
			Message: fmt.Sprintf("Task %q depends on itself", e.Dependent),
			Path:    path,
		}
	case !g.HasNode(e.Dependent) || !g.HasNode(e.Prerequisite):
		return Issue{
			Kind:    errors.ErrCodeOrphanedDependency,
			Message: fmt.Sprintf("Dependency %q → %q references a task that does not exist", e.Dependent, e.Prerequisite),
			Path:    path,
		}
	default:
		return Issue{
			Kind:    errors.ErrCodeDependencyExists,
			Message: fmt.Sprintf("Dependency %q → %q is recorded more than once", e.Dependent, e.Prerequisite),
			Path:    path,
		}
	}
}
