// Package store persists projects: their tasks and dependency edges.
//
// Stores hold raw records and never validate edges; validation is the rule
// engine's job before an edge is added, and the integrity scan's job for data
// imported in bulk. Every backend implements [Store]:
//
//   - [Memory]: in-process, for tests and one-shot CLI runs
//   - sqlite.Store: a single-file SQLite database (sqlx)
//   - mongo.Store: MongoDB collections shared by several API servers
//
// Backends are exercised by the shared suite in package storetest.
package store

import (
	"context"

	"github.com/matzehuels/taskgraph/pkg/graph"
)

// Store is the persistence contract.
//
// A project is the set of tasks whose ProjectID matches, plus the edges
// recorded under it. An edge is recorded under its dependent's project.
// LoadProject also returns foreign tasks that a project's edges point at, so
// allowed cross-project dependencies resolve.
type Store interface {
	// LoadProject returns the project's records, nodes sorted by ID and
	// edges by dependent then prerequisite. PROJECT_NOT_FOUND when the
	// project has neither tasks nor edges.
	LoadProject(ctx context.Context, projectID string) (graph.Graph, error)

	// Task returns a single task. TASK_NOT_FOUND when absent.
	Task(ctx context.Context, taskID string) (graph.Node, error)

	// SaveTask inserts or replaces a task. The task must carry a ProjectID.
	SaveTask(ctx context.Context, n graph.Node) error

	// ImportProject upserts every task of g and replaces the project's edge
	// set with g.Edges verbatim. Tasks without a ProjectID inherit
	// g.ProjectID. Duplicate edges collapse.
	ImportProject(ctx context.Context, g graph.Graph) error

	// AddDependency records an edge. TASK_NOT_FOUND when the dependent is
	// unknown, DEPENDENCY_EXISTS when the edge is already recorded.
	AddDependency(ctx context.Context, e graph.Edge) error

	// RemoveDependency deletes an edge. DEPENDENCY_NOT_FOUND when absent.
	RemoveDependency(ctx context.Context, e graph.Edge) error

	// Projects lists the IDs of all projects with at least one task, sorted.
	Projects(ctx context.Context) ([]string, error)

	Close() error
}
