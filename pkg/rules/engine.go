package rules

import (
	"fmt"
	"slices"
	"time"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/observability"
)

// Issue is one finding of a validation or scan.
type Issue struct {
	Kind    errors.Code `json:"kind"`
	Message string      `json:"message"`
	Path    []string    `json:"path,omitempty"` // cycle or chain, when relevant
}

// Verdict is the outcome of validating one proposed edge.
type Verdict struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NeedsConfirmation reports whether the edit is allowed but carries warnings.
func (v Verdict) NeedsConfirmation() bool { return v.Valid && len(v.Warnings) > 0 }

// Has reports whether the verdict contains an error or warning of kind.
func (v Verdict) Has(kind errors.Code) bool {
	match := func(i Issue) bool { return i.Kind == kind }
	return slices.ContainsFunc(v.Errors, match) || slices.ContainsFunc(v.Warnings, match)
}

// Engine validates edits against a fixed Policy. It holds no graph state and
// is safe for concurrent use.
type Engine struct {
	policy Policy
}

// New returns an Engine enforcing p. Zero fields of p take their defaults.
func New(p Policy) *Engine {
	return &Engine{policy: p.WithDefaults()}
}

// Policy returns the effective policy.
func (e *Engine) Policy() Policy { return e.policy }

// Validate evaluates the proposed edge dependentID → prerequisiteID against
// g. The graph is only read.
func (e *Engine) Validate(g *dag.Graph, dependentID, prerequisiteID string) (v Verdict) {
	start := time.Now()
	defer func() {
		v.Valid = len(v.Errors) == 0
		v.Errors = nonNil(v.Errors)
		v.Warnings = nonNil(v.Warnings)
		observability.Validation().OnValidate(dependentID, prerequisiteID, len(v.Errors), len(v.Warnings), time.Since(start))
	}()

	dep, depOK := g.Node(dependentID)
	pre, preOK := g.Node(prerequisiteID)
	if !depOK || !preOK {
		for _, missing := range []struct {
			id string
			ok bool
		}{{dependentID, depOK}, {prerequisiteID, preOK}} {
			if !missing.ok {
				v.Errors = append(v.Errors, Issue{
					Kind:    errors.ErrCodeTaskNotFound,
					Message: fmt.Sprintf("Task %q does not exist", missing.id),
				})
			}
		}
		return v
	}

	if dependentID == prerequisiteID {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeSelfDependency,
			Message: "A task cannot depend on itself",
			Path:    []string{dependentID, dependentID},
		})
		return v
	}

	if g.HasEdge(dependentID, prerequisiteID) {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeDependencyExists,
			Message: fmt.Sprintf("Task %q already depends on %q", dependentID, prerequisiteID),
		})
		return v
	}

	if !e.policy.AllowCrossProjectDependency && dep.ProjectID != pre.ProjectID {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeCrossProject,
			Message: fmt.Sprintf("Dependencies across projects are not allowed (%q vs %q)", dep.ProjectID, pre.ProjectID),
		})
	}

	if e.policy.RequireSameOwner && dep.OwnerID != pre.OwnerID {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeOwnerMismatch,
			Message: "Both tasks must have the same owner",
		})
	}

	if n := g.OutDegree(dependentID); n >= e.policy.MaxDependenciesPerTask {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeMaxDependenciesExceeded,
			Message: fmt.Sprintf("Task %q already has %d dependencies (maximum %d)", dependentID, n, e.policy.MaxDependenciesPerTask),
		})
	}

	if pre.IsCompleted() {
		v.Warnings = append(v.Warnings, Issue{
			Kind:    errors.ErrCodePrerequisiteCompleted,
			Message: fmt.Sprintf("Task %q is already completed", prerequisiteID),
		})
	}

	if cycle := dag.CyclePath(g, dependentID, prerequisiteID); cycle != nil {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeCircularDependency,
			Message: "This dependency would create a circular dependency",
			Path:    cycle,
		})
		return v
	}

	if chain := combinedChain(g, dependentID, prerequisiteID); len(chain)-1 > e.policy.MaxDependencyDepth {
		v.Errors = append(v.Errors, Issue{
			Kind:    errors.ErrCodeMaxDepthExceeded,
			Message: fmt.Sprintf("Dependency chain would reach depth %d (maximum %d)", len(chain)-1, e.policy.MaxDependencyDepth),
			Path:    chain,
		})
	}
	return v
}

// combinedChain returns the longest chain through the candidate edge: the
// longest dependents chain above dependentID, then the edge, then the longest
// prerequisite chain below prerequisiteID.
func combinedChain(g *dag.Graph, dependentID, prerequisiteID string) []string {
	up := dag.LongestChainTo(g, dependentID).Path
	down := dag.LongestChainFrom(g, prerequisiteID).Path
	chain := make([]string, 0, len(up)+len(down))
	for i := len(up) - 1; i >= 0; i-- {
		chain = append(chain, up[i])
	}
	return append(chain, down...)
}

func nonNil(issues []Issue) []Issue {
	if issues == nil {
		return []Issue{}
	}
	return issues
}
