// Package nodelink renders project views as node-link diagrams.
//
// Tasks appear as rounded boxes filled by status and grouped into ranks by
// level; arrows run from each prerequisite to the tasks waiting on it. With
// [Options.HighlightCritical] the critical path is drawn in [CriticalColor].
//
//	dot := nodelink.ToDOT(view, nodelink.Options{HighlightCritical: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT source can also be saved and processed with external Graphviz
// tools. SVG rendering uses [github.com/goccy/go-graphviz], which embeds
// Graphviz as WebAssembly, so no system installation is needed.
package nodelink
