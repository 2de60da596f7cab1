package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/taskgraph/pkg/graph"
)

func sampleView() graph.View {
	return graph.View{
		Nodes: []graph.ViewNode{
			{ID: "db", Name: "Schema", Status: "completed", Level: 0, Critical: true},
			{ID: "api", Status: "in-progress", Level: 1, Critical: true},
			{ID: "docs", Status: "not-started", Level: 1},
		},
		Edges: []graph.ViewEdge{
			{DependentID: "api", PrerequisiteID: "db", Critical: true},
			{DependentID: "docs", PrerequisiteID: "db"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleView(), Options{})

	for _, want := range []string{
		`"db" [label="Schema", fillcolor="#dcfce7"`,
		`"api" [label="api", fillcolor="#dbeafe"]`,
		`{ rank=same; "db"; }`,
		`{ rank=same; "api"; "docs"; }`,
		`"db" -> "api";`,
		`"db" -> "docs";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, CriticalColor) {
		t.Error("critical path highlighted without HighlightCritical")
	}
}

func TestToDOT_HighlightCritical(t *testing.T) {
	dot := ToDOT(sampleView(), Options{HighlightCritical: true, Detailed: true})

	if !strings.Contains(dot, `"db" -> "api" [color="#d62728", penwidth=2.5];`) {
		t.Errorf("critical edge not highlighted\n%s", dot)
	}
	if !strings.Contains(dot, `"db" -> "docs";`) {
		t.Errorf("non-critical edge highlighted\n%s", dot)
	}
	if !strings.Contains(dot, `label="api\nlevel: 1\nstatus: in-progress"`) {
		t.Errorf("detailed label missing\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116"><g/></svg>`
	if out != want {
		t.Errorf("normalizeViewBox =\n%s\nwant\n%s", out, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz wasm startup is slow")
	}
	svg, err := RenderSVG(context.Background(), ToDOT(sampleView(), Options{HighlightCritical: true}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "Schema") {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}
