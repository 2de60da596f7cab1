package transform

import (
	"maps"
	"slices"

	"github.com/matzehuels/taskgraph/pkg/dag"
)

// AssignLevels assigns every task an integer level equal to the length of its
// longest prerequisite chain. Tasks without prerequisites sit at level 0 and
// every dependent sits strictly above all of its prerequisites.
//
// # Algorithm
//
// AssignLevels performs a Kahn-style topological traversal:
//  1. In-degree of a task = number of its prerequisites
//  2. Seed the queue with all zero in-degree tasks at level 0
//  3. Dequeue a task; for each dependent set
//     level(dependent) = max(level(dependent), level(current)+1)
//     and decrement its remaining in-degree
//  4. Enqueue dependents whose in-degree reached zero
//
// # Determinism
//
// Tie-breaks follow ascending task ID (byte-wise string order): the seed
// queue is sorted, dependents are visited in ascending order, and tasks that
// become ready during one dequeue step are appended in ascending order. Levels
// themselves do not depend on visiting order; the fixed order keeps the
// traversal, and everything derived from it, reproducible.
//
// # Cycles
//
// Tasks that never reach zero in-degree (only possible on unvalidated,
// cyclic input) are placed at maxObservedLevel+1 instead of failing, where
// maxObservedLevel is the highest level among tasks that were dequeued.
//
// # Performance
//
// O(V + E) time and O(V) space.
func AssignLevels(g *dag.Graph) map[string]int {
	ids := g.NodeIDs()
	inDegree := make(map[string]int, len(ids))
	levels := make(map[string]int, len(ids))
	queue := make([]string, 0, len(ids))

	for _, id := range ids {
		degree := g.OutDegree(id)
		inDegree[id] = degree
		if degree == 0 {
			levels[id] = 0
			queue = append(queue, id)
		}
	}

	dequeued := make(map[string]bool, len(ids))
	maxLevel := -1
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		dequeued[curr] = true
		maxLevel = max(maxLevel, levels[curr])

		var ready []string
		for _, dependent := range g.Dependents(curr) {
			if level := levels[curr] + 1; level > levels[dependent] {
				levels[dependent] = level
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	// Tasks on or behind a cycle may have been partly relaxed above; they
	// all go one level past the settled part.
	for _, id := range ids {
		if !dequeued[id] {
			levels[id] = maxLevel + 1
		}
	}

	return levels
}

// LevelBuckets groups task IDs by level. IDs within a level are sorted
// ascending.
func LevelBuckets(levels map[string]int) map[int][]string {
	buckets := make(map[int][]string)
	for _, id := range slices.Sorted(maps.Keys(levels)) {
		l := levels[id]
		buckets[l] = append(buckets[l], id)
	}
	return buckets
}
