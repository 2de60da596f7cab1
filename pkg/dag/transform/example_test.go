package transform_test

import (
	"fmt"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/dag/transform"
)

func ExampleAssignLevels() {
	// Diamond: app depends on auth and cache, both depend on db.
	g := dag.New()
	for _, id := range []string{"app", "auth", "cache", "db"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_ = g.AddEdge(dag.Edge{Dependent: "app", Prerequisite: "auth"})
	_ = g.AddEdge(dag.Edge{Dependent: "app", Prerequisite: "cache"})
	_ = g.AddEdge(dag.Edge{Dependent: "auth", Prerequisite: "db"})
	_ = g.AddEdge(dag.Edge{Dependent: "cache", Prerequisite: "db"})

	buckets := transform.LevelBuckets(transform.AssignLevels(g))
	for level := 0; level < len(buckets); level++ {
		fmt.Println(level, buckets[level])
	}
	// Output:
	// 0 [db]
	// 1 [auth cache]
	// 2 [app]
}

func ExampleCriticalPath() {
	g := dag.New()
	for _, id := range []string{"design", "build", "test", "ship", "docs"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	_ = g.AddEdge(dag.Edge{Dependent: "ship", Prerequisite: "test"})
	_ = g.AddEdge(dag.Edge{Dependent: "test", Prerequisite: "build"})
	_ = g.AddEdge(dag.Edge{Dependent: "build", Prerequisite: "design"})
	_ = g.AddEdge(dag.Edge{Dependent: "docs", Prerequisite: "design"})

	fmt.Println(transform.CriticalPath(g))
	// Output:
	// [ship test build design]
}

func ExampleFindCycles() {
	g := dag.New()
	for _, id := range []string{"a", "b", "c"} {
		_ = g.AddNode(dag.Node{ID: id})
	}
	// Imported data may bypass the rule engine.
	_ = g.AddEdge(dag.Edge{Dependent: "a", Prerequisite: "b"})
	_ = g.AddEdge(dag.Edge{Dependent: "b", Prerequisite: "c"})
	_ = g.AddEdge(dag.Edge{Dependent: "c", Prerequisite: "a"})

	fmt.Println(transform.FindCycles(g))
	// Output:
	// [[a b c a]]
}
