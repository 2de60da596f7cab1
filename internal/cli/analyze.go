package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/taskgraph/pkg/dag"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// validateCommand creates the validate command for checking a proposed
// dependency without committing it.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		in                      input
		dependent, prerequisite string
	)

	cmd := &cobra.Command{
		Use:   "validate [graph.json] --dependent ID --prerequisite ID",
		Short: "Check whether a dependency may be added",
		Long: `Check whether a dependency may be added.

Runs every rule against the project as it would look with the new edge:
self and duplicate dependencies, cycles, the depth and fan-out limits,
cross-project and owner checks, and completed prerequisites. Nothing is
written. Exits non-zero when the dependency would be rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			return c.runValidate(cmd.Context(), in, dependent, prerequisite)
		},
	}

	in.addFlags(cmd)
	cmd.Flags().StringVarP(&dependent, "dependent", "d", "", "task that would depend on the prerequisite")
	cmd.Flags().StringVarP(&prerequisite, "prerequisite", "r", "", "task that must be done first")
	_ = cmd.MarkFlagRequired("dependent")
	_ = cmd.MarkFlagRequired("prerequisite")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, in input, dependent, prerequisite string) error {
	for _, id := range []string{dependent, prerequisite} {
		if err := errors.ValidateTaskID(id); err != nil {
			return err
		}
	}

	_, g, err := c.loadDAG(ctx, in)
	if err != nil {
		return err
	}

	v := c.newEngine().Validate(g, dependent, prerequisite)
	printVerdict(dependent, prerequisite, v)
	if !v.Valid {
		return failed("dependency rejected")
	}
	return nil
}

// layoutCommand creates the layout command for computing levels and
// positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		in      input
		output  string
		noCache bool
		quiet   bool
	)
	opts := layout.Options{}

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute levels, positions and the critical path",
		Long: `Compute levels, positions and the critical path.

The output is a view JSON file (same format as 'render -f json') holding
every task with its level and position, the edges, the critical path and
summary statistics. Layout flags override the configuration file.

Results are cached for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), in, mergeLayout(c.cfg.Layout, opts), output, noCache, quiet)
		},
	}

	in.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.view.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the level table")
	addLayoutFlags(cmd, &opts)

	return cmd
}

// addLayoutFlags registers flags for the layout parameters. Unset flags
// stay zero and fall back to the configuration.
func addLayoutFlags(cmd *cobra.Command, opts *layout.Options) {
	cmd.Flags().Float64Var(&opts.RowSpacing, "row-spacing", 0, fmt.Sprintf("vertical distance between levels (default %g)", layout.DefaultRowSpacing))
	cmd.Flags().Float64Var(&opts.ColumnSpacing, "column-spacing", 0, fmt.Sprintf("horizontal distance between tasks (default %g)", layout.DefaultColumnSpacing))
	cmd.Flags().IntVar(&opts.Iterations, "iterations", 0, fmt.Sprintf("relaxation passes, negative to disable (default %d)", layout.DefaultIterations))
}

// mergeLayout overlays non-zero flag values on the configured options.
func mergeLayout(base, flags layout.Options) layout.Options {
	if flags.RowSpacing != 0 {
		base.RowSpacing = flags.RowSpacing
	}
	if flags.ColumnSpacing != 0 {
		base.ColumnSpacing = flags.ColumnSpacing
	}
	if flags.Iterations != 0 {
		base.Iterations = flags.Iterations
	}
	return base
}

func (c *CLI) runLayout(ctx context.Context, in input, opts layout.Options, output string, noCache, quiet bool) error {
	records, err := c.load(ctx, in)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	v, cacheHit, err := runner.BuildViewWithCacheInfo(ctx, records, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	prog.done("computed layout", "tasks", len(v.Nodes), "cached", cacheHit)

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(in.file, in.project) + viewSuffix
	}
	if err := graph.WriteViewFile(v, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	if !quiet {
		fmt.Println(levelsTable(v))
	}
	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(v.Nodes), len(v.Edges), cacheHit)
	printNewline()
	printNextStep("Render", "taskgraph render "+in.label())

	return nil
}

// criticalCommand creates the critical command for printing the longest
// prerequisite chain.
func (c *CLI) criticalCommand() *cobra.Command {
	var in input

	cmd := &cobra.Command{
		Use:   "critical [graph.json]",
		Short: "Print the critical path",
		Long: `Print the critical path: the longest chain of prerequisites, from the
task that waits longest down to the task that has to start first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			records, g, err := c.loadDAG(cmd.Context(), in)
			if err != nil {
				return err
			}
			v, err := c.deriveView(cmd.Context(), records.ProjectID, g)
			if err != nil {
				return err
			}
			printCriticalPath(v)
			return nil
		},
	}

	in.addFlags(cmd)
	return cmd
}

func printCriticalPath(v graph.View) {
	if len(v.CriticalPath) == 0 {
		printInfo("No tasks")
		return
	}
	printKeyValue("Length", fmt.Sprintf("%d tasks, %d dependencies", len(v.CriticalPath), len(v.CriticalPath)-1))
	for i, id := range v.CriticalPath {
		name := id
		if n, ok := v.Node(id); ok && n.Name != "" && n.Name != id {
			name = fmt.Sprintf("%s %s", id, StyleDim.Render("("+n.Name+")"))
		}
		fmt.Printf("  %s %s\n", StyleNumber.Render(fmt.Sprintf("%2d", i+1)), name)
	}
}

// statsCommand creates the stats command for summary statistics.
func (c *CLI) statsCommand() *cobra.Command {
	var in input

	cmd := &cobra.Command{
		Use:   "stats [graph.json]",
		Short: "Print summary statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			_, g, err := c.loadDAG(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Println(statsTable(dag.ComputeStatistics(g)))
			return nil
		},
	}

	in.addFlags(cmd)
	return cmd
}

// scanCommand creates the scan command for auditing stored records.
func (c *CLI) scanCommand() *cobra.Command {
	var in input

	cmd := &cobra.Command{
		Use:   "scan [graph.json]",
		Short: "Audit a project for integrity issues",
		Long: `Audit a project for integrity issues.

Reports dependencies on missing tasks, self and duplicate dependencies,
cycles and policy violations, and suggests attention for isolated tasks
and long chains. Exits non-zero when issues are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.fromArgs(args); err != nil {
				return err
			}
			records, err := c.load(cmd.Context(), in)
			if err != nil {
				return err
			}
			nodes, edges, err := graph.Records(records)
			if err != nil {
				return err
			}
			r := c.newEngine().ScanIntegrity(nodes, edges)
			printReport(in.label(), r)
			if !r.Valid {
				return failed("integrity scan found %d issues", len(r.Issues))
			}
			return nil
		},
	}

	in.addFlags(cmd)
	return cmd
}

// deriveView builds an uncached view of g with the configured layout.
func (c *CLI) deriveView(ctx context.Context, projectID string, g *dag.Graph) (graph.View, error) {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return graph.View{}, err
	}
	defer runner.Close()
	return runner.BuildViewFromDAG(ctx, projectID, g, c.cfg.Layout)
}
