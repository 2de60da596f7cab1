package dag

// frame is one entry of an explicit DFS stack: the node and the index of the
// next neighbor to visit.
type frame struct {
	id   string
	next int
}

// WouldCreateCycle reports whether adding the edge dependentID →
// prerequisiteID would close a cycle, i.e. whether dependentID is already
// reachable from prerequisiteID through existing prerequisite edges.
// A self edge is always a cycle.
//
// The graph is never modified. Runs in O(V+E).
func WouldCreateCycle(g *Graph, dependentID, prerequisiteID string) bool {
	return CyclePath(g, dependentID, prerequisiteID) != nil
}

// CyclePath returns the cycle the candidate edge dependentID →
// prerequisiteID would close, starting and ending at dependentID:
//
//	[dependent, prerequisite, ..., dependent]
//
// It returns nil when the edge is safe. The search is an iterative
// depth-first traversal from prerequisiteID with an on-stack set and a
// fully-explored set, so pre-existing cycles elsewhere in the graph cannot
// trap it and very long chains cannot exhaust the goroutine stack.
// Neighbors are visited in ascending ID order, which makes the reported path
// deterministic.
func CyclePath(g *Graph, dependentID, prerequisiteID string) []string {
	if dependentID == prerequisiteID {
		return []string{dependentID, dependentID}
	}

	onStack := map[string]bool{prerequisiteID: true}
	done := make(map[string]bool)
	stack := []frame{{id: prerequisiteID}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.id == dependentID {
			path := make([]string, 0, len(stack)+1)
			path = append(path, dependentID)
			for _, f := range stack {
				path = append(path, f.id)
			}
			return path
		}

		next := g.Prerequisites(top.id)
		if top.next < len(next) {
			child := next[top.next]
			top.next++
			if onStack[child] || done[child] {
				continue
			}
			onStack[child] = true
			stack = append(stack, frame{id: child})
			continue
		}

		onStack[top.id] = false
		done[top.id] = true
		stack = stack[:len(stack)-1]
	}
	return nil
}
