package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
)

// renderCommand creates the render command, which runs the full pipeline
// from project records to output files.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		in      input
		output  string
		formats string
		noCache bool
	)
	opts := pipeline.Options{}
	layoutFlags := layout.Options{}

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a project as JSON, DOT or SVG",
		Long: `Render a project as JSON, DOT or SVG.

Builds the view (levels, positions, critical path) and writes one file per
format: <output>.view.json, <output>.dot and <output>.svg. A .view.json
file written by 'taskgraph layout' is rendered without recomputing it.

Examples:
  taskgraph render plan.json
  taskgraph render plan.json -f svg,dot --highlight
  taskgraph render plan.view.json -f dot
  taskgraph render --project web -f json -o web`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			opts.Formats = parseFormats(formats)
			opts.Layout = mergeLayout(c.cfg.Layout, layoutFlags)
			return c.runRender(cmd.Context(), in, opts, output, noCache)
		},
	}

	in.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path prefix (default: <input> without extension)")
	cmd.Flags().StringVarP(&formats, "format", "f", "", "output formats: svg (default), dot, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.HighlightCritical, "highlight", false, "highlight the critical path")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "show level and status in node labels")
	addLayoutFlags(cmd, &layoutFlags)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, in input, opts pipeline.Options, output string, noCache bool) error {
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var spinner *Spinner
	if slices.Contains(opts.Formats, pipeline.FormatSVG) {
		spinner = newSpinnerWithContext(ctx, "Rendering SVG...")
		spinner.Start()
	}

	out, err := c.renderInput(ctx, runner, in, opts)
	if err != nil {
		if spinner != nil {
			spinner.StopWithError("Render failed")
		}
		return fmt.Errorf("render: %w", err)
	}
	if spinner != nil {
		spinner.Stop()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if out.rejected > 0 {
		printWarning("Skipped %d invalid dependencies (run 'taskgraph scan' for details)", out.rejected)
	}

	base := output
	if base == "" {
		base = outputBase(in.file, in.project)
	}

	printSuccess("Rendered %s", in.label())
	for _, format := range opts.Formats {
		path := base + extension(format)
		if err := os.WriteFile(path, out.artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(out.tasks, out.deps, out.cached)
	return nil
}

type rendered struct {
	artifacts   map[string][]byte
	tasks, deps int
	rejected    int
	cached      bool
}

// renderInput renders a saved view file as is; any other input goes
// through the full pipeline.
func (c *CLI) renderInput(ctx context.Context, runner *pipeline.Runner, in input, opts pipeline.Options) (rendered, error) {
	if isViewFile(in.file) {
		v, err := graph.ReadViewFile(in.file)
		if err != nil {
			return rendered{}, err
		}
		artifacts, err := runner.Render(ctx, v, opts)
		if err != nil {
			return rendered{}, err
		}
		return rendered{artifacts: artifacts, tasks: len(v.Nodes), deps: len(v.Edges)}, nil
	}

	records, err := c.load(ctx, in)
	if err != nil {
		return rendered{}, err
	}
	result, err := runner.Execute(ctx, records, opts)
	if err != nil {
		return rendered{}, err
	}
	c.Logger.Debug("render timings", "build", result.Stats.BuildTime, "render", result.Stats.RenderTime)
	return rendered{
		artifacts: result.Artifacts,
		tasks:     result.Stats.NodeCount,
		deps:      result.Stats.EdgeCount,
		rejected:  len(result.Rejected),
		cached:    result.CacheInfo.ViewHit,
	}, nil
}

func isViewFile(path string) bool {
	return strings.HasSuffix(path, viewSuffix)
}

// viewSuffix marks JSON views written by layout and render. The compound
// suffix keeps a view from overwriting a graph.json input.
const viewSuffix = ".view.json"

// extension maps a format to its output file suffix.
func extension(format string) string {
	if format == pipeline.FormatJSON {
		return viewSuffix
	}
	return "." + format
}
