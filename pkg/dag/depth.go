package dag

// Chain is a path of tasks connected by dependency edges.
// Length counts edges, so Length == len(Path)-1 for a non-empty Path.
type Chain struct {
	Length int
	Path   []string
}

// LongestChainFrom returns the longest chain of prerequisites reachable from
// id: Path[0] is id, Path[1] one of its prerequisites, and so on down to a
// task without prerequisites. Unknown IDs yield a zero Chain.
//
// The traversal tracks its own visited set, so it terminates on cyclic input
// (edges back into the current path are ignored). Ties are broken by the
// smallest prerequisite ID.
func LongestChainFrom(g *Graph, id string) Chain {
	if !g.HasNode(id) {
		return Chain{}
	}
	return newChainSolver(g.Prerequisites).solve(id)
}

// LongestChainTo is the mirror of [LongestChainFrom]: the longest chain of
// dependents above id, with Path[0] == id and the last element a task that
// nothing depends on.
func LongestChainTo(g *Graph, id string) Chain {
	if !g.HasNode(id) {
		return Chain{}
	}
	return newChainSolver(g.Dependents).solve(id)
}

// MaxChain returns the longest prerequisite chain in the whole graph. Among
// equally long chains the one starting at the smallest ID wins. An empty
// graph yields a zero Chain.
func MaxChain(g *Graph) Chain {
	s := newChainSolver(g.Prerequisites)
	var best Chain
	for _, id := range g.NodeIDs() {
		if c := s.solve(id); best.Path == nil || c.Length > best.Length {
			best = c
		}
	}
	return best
}

const (
	unvisited uint8 = iota
	visiting
	finished
)

// chainSolver memoizes longest-chain lengths over one traversal direction.
// A solver may be reused for several start nodes of the same graph.
type chainSolver struct {
	next  func(string) []string
	state map[string]uint8
	best  map[string]int
	succ  map[string]string
}

func newChainSolver(next func(string) []string) *chainSolver {
	return &chainSolver{
		next:  next,
		state: make(map[string]uint8),
		best:  make(map[string]int),
		succ:  make(map[string]string),
	}
}

func (s *chainSolver) solve(start string) Chain {
	if s.state[start] != finished {
		s.run(start)
	}
	path := []string{start}
	for cur := s.succ[start]; cur != ""; cur = s.succ[cur] {
		path = append(path, cur)
	}
	return Chain{Length: s.best[start], Path: path}
}

// run is an iterative post-order DFS. A node is finalized once all of its
// neighbors are finished; neighbors still on the stack belong to a cycle and
// are skipped. succ always points at a node finalized earlier, so following
// it cannot loop.
func (s *chainSolver) run(start string) {
	s.state[start] = visiting
	stack := []frame{{id: start}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		next := s.next(top.id)
		if top.next < len(next) {
			child := next[top.next]
			top.next++
			if s.state[child] == unvisited {
				s.state[child] = visiting
				stack = append(stack, frame{id: child})
			}
			continue
		}

		bestLen, bestNext := 0, ""
		for _, child := range next {
			if s.state[child] != finished {
				continue
			}
			if l := s.best[child] + 1; l > bestLen {
				bestLen, bestNext = l, child
			}
		}
		s.best[top.id] = bestLen
		s.succ[top.id] = bestNext
		s.state[top.id] = finished
		stack = stack[:len(stack)-1]
	}
}
