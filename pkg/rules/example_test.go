package rules_test

import (
	"fmt"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/rules"
)

func ExampleEngine_Validate() {
	g := dag.New()
	for _, id := range []string{"deploy", "test", "build"} {
		_ = g.AddNode(dag.Node{ID: id, ProjectID: "web"})
	}
	_ = g.AddEdge(dag.Edge{Dependent: "deploy", Prerequisite: "test"})
	_ = g.AddEdge(dag.Edge{Dependent: "test", Prerequisite: "build"})

	engine := rules.New(rules.DefaultPolicy())

	v := engine.Validate(g, "build", "deploy")
	fmt.Println(v.Valid, v.Errors[0].Kind, v.Errors[0].Path)
	// Output:
	// false CIRCULAR_DEPENDENCY [build deploy test build]
}

func ExampleEngine_ScanIntegrity() {
	engine := rules.New(rules.Policy{})
	report := engine.ScanIntegrity(
		[]dag.Node{{ID: "a"}, {ID: "b"}},
		[]dag.Edge{{Dependent: "a", Prerequisite: "missing"}},
	)
	fmt.Println(report.Valid)
	for _, issue := range report.Issues {
		fmt.Println(issue.Kind)
	}
	// Output:
	// false
	// ORPHANED_DEPENDENCY
}
