package transform

import "github.com/matzehuels/taskgraph/pkg/dag"

// CriticalPath returns the longest end-to-end chain of dependent tasks,
// ordered from the top-most dependent down to its deepest prerequisite.
//
// Chains follow prerequisite edges. Start tasks are tried in ascending ID
// order and, within a task, prerequisites in ascending ID order; only a
// strictly longer chain replaces the current best, so among equally long
// chains the first one discovered wins. In an acyclic graph the winner always
// starts at a source (a task nothing depends on). Isolated tasks never form a
// critical path: the result is either empty or holds at least two tasks.
//
// The search memoizes the longest chain below each task, which yields exactly
// what exhaustive depth-first enumeration would report, in O(V + E).
//
// Committed edges are acyclic, but imported data may not be. The traversal
// ignores edges back into the current path rather than looping forever.
func CriticalPath(g *dag.Graph) []string {
	best := dag.MaxChain(g)
	if best.Length == 0 {
		return nil
	}
	return best.Path
}
