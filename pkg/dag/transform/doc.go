// Package transform provides whole-graph analyses over a task dependency
// [dag.Graph].
//
// # Level Assignment
//
// [AssignLevels] computes a level for each task from its longest chain of
// prerequisites, using a Kahn-style topological traversal. Tasks without
// prerequisites sit at level 0 and every dependent sits strictly above its
// prerequisites. [LevelBuckets] groups the result for row-based layouts.
//
// # Critical Path
//
// [CriticalPath] finds the longest chain of dependencies in the project. This
// is the sequence of tasks that bounds how quickly the project can finish;
// any delay on it delays everything above it.
//
// # Cycle Detection
//
// Edges committed through the rule engine never form cycles, but data written
// by other tools might. [FindCycles] reports residual cycles for integrity
// scans and [BreakCycles] removes the back edges so that downstream layout
// can proceed.
//
// # Determinism
//
// Every function visits tasks and neighbors in ascending ID order, so the
// same graph always produces the same result.
//
// [dag.Graph]: github.com/matzehuels/taskgraph/pkg/dag.Graph
package transform
