package transform

import "github.com/matzehuels/taskgraph/pkg/dag"

const (
	white = iota
	gray
	black
)

type frame struct {
	id   string
	next int
}

// FindCycles reports residual cycles in a graph that bypassed the rule
// engine (bulk imports, migrations, concurrent writers). Each cycle is
// returned as a closed path [t0, t1, ..., t0] following prerequisite edges.
//
// The search is a three-color depth-first traversal over every task in
// ascending ID order; each back edge to a gray task yields one cycle. The
// result is deterministic but not exhaustive: cycles sharing a back edge are
// reported once. The graph is never modified.
func FindCycles(g *dag.Graph) [][]string {
	color := make(map[string]int, g.NodeCount())
	var cycles [][]string

	for _, root := range g.NodeIDs() {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			next := g.Prerequisites(top.id)
			if top.next >= len(next) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}

			child := next[top.next]
			top.next++
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				cycles = append(cycles, closeCycle(stack, child))
			}
		}
	}
	return cycles
}

// closeCycle extracts the stack suffix starting at id and closes it.
func closeCycle(stack []frame, id string) []string {
	start := 0
	for i, f := range stack {
		if f.id == id {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.id)
	}
	return append(cycle, id)
}

// BreakCycles removes one edge per cycle found by [FindCycles] (the back edge
// closing it) and returns the removed edges. After BreakCycles, g is acyclic.
// Used when importing legacy data that must be repaired before layout.
func BreakCycles(g *dag.Graph) []dag.Edge {
	var removed []dag.Edge
	for {
		cycles := FindCycles(g)
		if len(cycles) == 0 {
			return removed
		}
		for _, c := range cycles {
			e := dag.Edge{Dependent: c[len(c)-2], Prerequisite: c[len(c)-1]}
			if g.RemoveEdge(e.Dependent, e.Prerequisite) == nil {
				removed = append(removed, e)
			}
		}
	}
}
