package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/graph"
)

// Colors used for task status fills and the critical path.
const (
	CriticalColor = "#d62728"

	fillNotStarted = "white"
	fillInProgress = "#dbeafe"
	fillPaused     = "#fef3c7"
	fillCompleted  = "#dcfce7"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds level and status lines to node labels.
	Detailed bool

	// HighlightCritical draws critical-path tasks and edges in CriticalColor.
	HighlightCritical bool
}

// ToDOT converts a view to Graphviz DOT.
//
// Tasks on the same level share a rank, so the diagram reads top to bottom
// from tasks without prerequisites to the tasks that wait on them. Edges are
// drawn from prerequisite to dependent.
func ToDOT(v graph.View, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	byLevel := make(map[int][]string)
	for _, n := range v.Nodes {
		attrs := fmtAttrs(n, opts)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
		byLevel[n.Level] = append(byLevel[n.Level], n.ID)
	}

	buf.WriteString("\n")
	for _, level := range slices.Sorted(maps.Keys(byLevel)) {
		ids := byLevel[level]
		slices.Sort(ids)
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = strconv.Quote(id)
		}
		fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(quoted, "; "))
	}

	buf.WriteString("\n")
	for _, e := range v.Edges {
		if opts.HighlightCritical && e.Critical {
			fmt.Fprintf(&buf, "  %q -> %q [color=%q, penwidth=2.5];\n", e.PrerequisiteID, e.DependentID, CriticalColor)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.PrerequisiteID, e.DependentID)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n graph.ViewNode, opts Options) []string {
	label := n.ID
	if n.Name != "" {
		label = n.Name
	}
	if opts.Detailed {
		label += fmt.Sprintf("\nlevel: %d", n.Level)
		if n.Status != "" {
			label += "\nstatus: " + n.Status
		}
	}

	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", statusFill(n.Status)),
	}
	if dag.Status(n.Status) == dag.StatusCompleted {
		attrs = append(attrs, "fontcolor=\"#4b5563\"")
	}
	if opts.HighlightCritical && n.Critical {
		attrs = append(attrs, fmt.Sprintf("color=%q", CriticalColor), "penwidth=2.5")
	}
	return attrs
}

func statusFill(s string) string {
	switch dag.Status(s) {
	case dag.StatusInProgress:
		return fillInProgress
	case dag.StatusPaused:
		return fillPaused
	case dag.StatusCompleted:
		return fillCompleted
	}
	return fillNotStarted
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container: the viewBox origin moves to 0,0 and width/height match it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
