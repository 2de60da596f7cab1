// Package pkg provides the core libraries for taskgraph, a dependency
// engine for project tasks.
//
// # Overview
//
// Taskgraph keeps the dependency graph of a project acyclic and within
// policy limits while tasks are linked and unlinked, and derives what a
// planning view needs from every committed state: execution levels,
// positions, the critical path and summary statistics. The pkg directory is
// organized into four main areas:
//
//  1. Domain logic: [dag], [dag/transform], [rules], [layout]
//  2. Serialization: [graph]
//  3. Orchestration: [pipeline], [editor], [api]
//  4. Infrastructure: [store], [cache], [config], [errors], [observability]
//
// # Architecture
//
// The typical data flow of one edit:
//
//	Store (memory, SQLite, MongoDB)
//	         ↓
//	    [graph] records → [dag] graph
//	         ↓
//	    [rules] validate the proposed edge (errors block, warnings ask)
//	         ↓
//	    [editor] commits to the store and the in-memory graph
//	         ↓
//	    [pipeline] levels, positions, critical path → view (cached)
//	         ↓
//	    JSON / DOT / SVG
//
// # Quick Start
//
// Open a project and add a dependency:
//
//	s := store.NewMemory()
//	_ = s.ImportProject(ctx, records)
//
//	ed, _ := editor.Open(ctx, s, "web", editor.Options{})
//	defer ed.Close()
//
//	v, err := ed.AddDependency(ctx, "ship", "test", false)
//	if errors.Is(err, errors.ErrCodeConfirmationRequired) {
//	    // show v.Warnings, then retry with confirmWarnings=true
//	}
//
//	view, _ := ed.View(ctx)
//	fmt.Println(view.CriticalPath)
//
// # Main Packages
//
// [dag] - Task graph with a canonical edge set, cycle path search and
// statistics.
//
// [dag/transform] - Level assignment, critical path and cycle detection.
//
// [rules] - Policy, per-edit validation verdicts and whole-project integrity
// scans.
//
// [layout] - Level rows to 2D positions with a bounded relaxation pass.
//
// [graph] - Record and view serialization types (JSON and BSON).
//
// [pipeline] - Build → render pipeline with view and artifact caching, and
// the latest-wins view publisher.
//
// [editor] - Serialised, validated edits to one project.
//
// [api] - HTTP API over the editor.
//
// [store] - Persistence interface with memory, [store/sqlite] and
// [store/mongo] backends sharing one test suite.
//
// [cache] - File, Redis and null caches with content-addressed keys.
//
// # Testing
//
// Run tests:
//
//	go test ./...                                      # All tests
//	go test -short ./...                               # Skip Graphviz rendering
//	TASKGRAPH_MONGO_URI=mongodb://localhost go test ./pkg/store/mongo/
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/dag/transform
// [rules]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/rules
// [layout]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/layout
// [graph]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/graph
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/pipeline
// [editor]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/editor
// [api]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/api
// [store]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/store
// [store/sqlite]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/store/sqlite
// [store/mongo]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/store/mongo
// [cache]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/observability
package pkg
