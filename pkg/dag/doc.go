// Package dag provides the task dependency graph and the read-only queries
// the rule engine and summary panels run against it.
//
// # Overview
//
// A [Graph] holds tasks ([Node]) and "depends-on" relations ([Edge]). An edge
// points from the dependent task to its prerequisite: the dependent cannot
// proceed until the prerequisite is done.
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "ship", ProjectID: "apollo"})
//	g.AddNode(dag.Node{ID: "test", ProjectID: "apollo"})
//	g.AddEdge(dag.Edge{Dependent: "ship", Prerequisite: "test"})
//
// Edges live in one canonical set keyed by the ordered pair, so parallel
// edges are impossible. Adjacency lists ([Graph.Prerequisites],
// [Graph.Dependents]) are derived on demand and always sorted ascending,
// which is what makes every traversal in this module deterministic.
//
// Use [Build] to reconstruct a graph from persisted records; it skips (and
// returns) edges that reference unknown tasks instead of failing.
//
// # Queries
//
//   - [WouldCreateCycle] and [CyclePath]: reachability check for a candidate
//     edge, without inserting it
//   - [LongestChainFrom], [LongestChainTo], [MaxChain]: longest prerequisite
//     (or dependent) chains
//   - [ComputeStatistics]: aggregate counts for summary panels
//
// All traversals use explicit stacks rather than recursion, so pathological
// chains cannot exhaust the goroutine stack, and all of them terminate on
// cyclic input.
//
// # Invariants
//
// The graph type itself only rejects malformed edges. Acyclicity, the
// maximum chain depth and the per-task fan-out limit are enforced before an
// edge is committed by the rules package.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use, including concurrent
// reads (the adjacency view is built lazily). Callers must synchronize access.
//
// # Related Packages
//
// The [transform] subpackage derives rendering artifacts: levels
// ([transform.AssignLevels]) and the critical path ([transform.CriticalPath]).
//
// [transform]: github.com/matzehuels/taskgraph/pkg/dag/transform
package dag
